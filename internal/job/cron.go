package job

import (
	"time"

	"github.com/robfig/cron/v3"
	"k8s.io/klog/v2"

	"github.com/scriber/fundcompare/internal/repository"
)

// stuckTimeout 比对中状态的最长存活时间，超过视为进程异常退出留下的残留
const stuckTimeout = 30 * time.Minute

// Scheduler 周期性后台任务
type Scheduler struct {
	cron  *cron.Cron
	tasks repository.CompareTaskRepository
}

func NewScheduler(tasks repository.CompareTaskRepository) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		tasks: tasks,
	}
}

// Start 注册并启动周期任务
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@every 10m", s.cleanupStuckTasks); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop 停止调度，等待正在执行的任务结束
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) cleanupStuckTasks() {
	affected, err := s.tasks.CleanupStuckTasks(stuckTimeout)
	if err != nil {
		klog.Errorf("cleanup stuck tasks error: %v", err)
		return
	}
	if affected > 0 {
		klog.V(6).Infof("cleanup %d stuck compare tasks", affected)
	}
}
