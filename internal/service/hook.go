package service

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/scriber/fundcompare/internal/eventbus"
)

// RegisterHooks 订阅文件事件，把提取进度接到比对任务的推进上
func RegisterHooks(bus *eventbus.FileEventBus, tasks *CompareTaskService) {
	bus.Subscribe(eventbus.FileEventExtracted, func(ctx context.Context, event eventbus.FileEvent) error {
		klog.V(6).Infof("file %d extracted, question %d", event.FileID, event.QuestionID)
		return tasks.OnFileExtracted(ctx, event.FileID)
	})
}
