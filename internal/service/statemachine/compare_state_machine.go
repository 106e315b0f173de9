package statemachine

import (
	"fmt"

	"k8s.io/klog/v2"

	"github.com/scriber/fundcompare/internal/model"
)

// CompareTransition 比对子状态迁移
type CompareTransition struct {
	From model.CompareStatus
	To   model.CompareStatus
}

// CompareStateMachine 一致性/章节比对的子状态机
// 约束 default -> doing -> done/failed，重比对允许从终态回到 doing
type CompareStateMachine struct {
	allowedTransitions map[CompareTransition]bool
}

func NewCompareStateMachine() *CompareStateMachine {
	sm := &CompareStateMachine{
		allowedTransitions: make(map[CompareTransition]bool),
	}

	transitions := []CompareTransition{
		// 正常执行流程
		{model.CompareDefault, model.CompareDoing},
		{model.CompareDoing, model.CompareDone},
		{model.CompareDoing, model.CompareFailed},

		// 重比对流程
		{model.CompareDone, model.CompareDoing},
		{model.CompareFailed, model.CompareDoing},

		// 启动清理：进程重启后比对中的任务直接置为失败
		{model.CompareDoing, model.CompareFailed},
	}
	for _, t := range transitions {
		sm.allowedTransitions[t] = true
	}
	return sm
}

// CanTransition 检查状态迁移是否合法
func (sm *CompareStateMachine) CanTransition(from, to model.CompareStatus) bool {
	if from == to {
		return false // 不允许状态不变
	}
	return sm.allowedTransitions[CompareTransition{From: from, To: to}]
}

// ValidateTransition 验证状态迁移并返回错误
func (sm *CompareStateMachine) ValidateTransition(from, to model.CompareStatus) error {
	if !sm.CanTransition(from, to) {
		return &InvalidStateTransitionError{
			From: fmt.Sprintf("%d", from),
			To:   fmt.Sprintf("%d", to),
		}
	}
	return nil
}

// Transition 执行状态迁移（带日志）
func (sm *CompareStateMachine) Transition(from, to model.CompareStatus, taskID uint) error {
	if err := sm.ValidateTransition(from, to); err != nil {
		klog.V(6).Infof("比对状态迁移被拒绝: taskID=%d, %d -> %d, error=%v", taskID, from, to, err)
		return err
	}
	klog.V(6).Infof("比对状态迁移成功: taskID=%d, %d -> %d", taskID, from, to)
	return nil
}

// InvalidStateTransitionError 无效的状态迁移错误
type InvalidStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid compare state transition: %s -> %s", e.From, e.To)
}

// IsTerminal 判断比对子状态是否为终态
func IsTerminal(status model.CompareStatus) bool {
	return status == model.CompareDone || status == model.CompareFailed
}

// IsDoing 比对是否进行中
func IsDoing(status model.CompareStatus) bool {
	return status == model.CompareDoing
}
