package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"k8s.io/klog/v2"
)

// Stage 比对作业的阶段
type Stage string

const (
	// StageFullCompare 完整比对：单文档、跨文档、章节
	StageFullCompare Stage = "full_compare"
	// StageChapterOnly 只重做章节比对
	StageChapterOnly Stage = "chapter_only"
)

// Job 一次比对作业
type Job struct {
	TaskID     uint
	Stage      Stage
	EnqueuedAt time.Time
	RetryCount int
	MaxRetries int
	Timeout    time.Duration
}

// CompareExecutor 比对作业的执行方
type CompareExecutor interface {
	ExecuteCompare(ctx context.Context, taskID uint, stage Stage) error
}

type Orchestrator struct {
	jobQueue    *jobQueue
	retryQueue  *jobQueue
	retryTicker *time.Ticker

	pool *ants.Pool

	executor CompareExecutor

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once

	activeCancellations map[uint]context.CancelFunc
	cancelMutex         sync.Mutex
}

var (
	ErrOrchestratorStopped = errors.New("orchestrator is stopped")
	ErrQueueFull           = errors.New("job queue is full")
)

// NewCompareJob 创建一个比对作业，初始化重试与超时
func NewCompareJob(taskID uint, stage Stage) *Job {
	return &Job{
		TaskID:     taskID,
		Stage:      stage,
		EnqueuedAt: time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
		Timeout:    10 * time.Minute,
	}
}

func NewOrchestrator(maxWorkers int, executor CompareExecutor) (*Orchestrator, error) {
	ctx, cancel := context.WithCancel(context.Background())

	jobQ := newJobQueue(120)
	retryQ := newJobQueue(120)

	pool, err := ants.NewPool(maxWorkers,
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(1000),
		ants.WithExpiryDuration(5*time.Minute),
	)
	if err != nil {
		cancel()
		klog.Errorf("ants pool initialization failed: %v", err)
		return nil, err
	}

	return &Orchestrator{
		jobQueue:            jobQ,
		retryQueue:          retryQ,
		retryTicker:         time.NewTicker(500 * time.Millisecond),
		pool:                pool,
		activeCancellations: make(map[uint]context.CancelFunc),
		executor:            executor,
		ctx:                 ctx,
		cancel:              cancel,
	}, nil
}

func (o *Orchestrator) Start() {
	go o.dispatchLoop()
	go o.processRetryQueue()
}

func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		klog.V(6).Infof("Orchestrator stopping...")

		// 1. 停止接收新作业，关闭队列
		o.cancel()
		o.jobQueue.Close()
		o.retryQueue.Close()

		// 2. 等待队列中待执行的作业全部分发完毕
		for {
			if o.jobQueue.Len() == 0 && o.retryQueue.Len() == 0 {
				break
			}
			time.Sleep(100 * time.Millisecond)
			klog.V(6).Infof("Waiting for queues to empty: main=%d, retry=%d", o.jobQueue.Len(), o.retryQueue.Len())
		}

		// 3. 等待正在执行的比对完成
		runningTasks := o.pool.Running()
		if runningTasks > 0 {
			klog.V(6).Infof("Waiting for %d running jobs to complete (timeout: 12min)", runningTasks)
		}

		// ReleaseTimeout 覆盖作业超时时间
		timeout := 12 * time.Minute
		if rErr := o.pool.ReleaseTimeout(timeout); rErr == nil {
			klog.V(6).Infof("All running jobs completed before timeout")
		} else {
			klog.Warningf("Timeout after %v: some running jobs may be forced to stop", timeout)
		}

		klog.V(6).Infof("Orchestrator stopped completely")
	})
}

func (o *Orchestrator) EnqueueJob(job *Job) error {
	select {
	case <-o.ctx.Done():
		return ErrOrchestratorStopped
	default:
	}

	if err := o.jobQueue.Enqueue(job); err != nil {
		if errors.Is(err, ErrQueueFull) {
			klog.Warningf("Job queue full: taskID=%d", job.TaskID)
		}
		return err
	}
	klog.V(6).Infof("Job enqueued: taskID=%d, stage=%s", job.TaskID, job.Stage)
	return nil
}

func (o *Orchestrator) EnqueueBatch(jobs []*Job) error {
	var failedJobs []*Job
	for _, job := range jobs {
		if err := o.EnqueueJob(job); err != nil {
			klog.Warningf("Batch enqueue failed for taskID=%d: %v", job.TaskID, err)
			failedJobs = append(failedJobs, job)
		}
	}
	if len(failedJobs) > 0 {
		return fmt.Errorf("failed to enqueue %d jobs (total %d)", len(failedJobs), len(jobs))
	}
	return nil
}

func (o *Orchestrator) registerCancel(taskID uint, cancel context.CancelFunc) {
	o.cancelMutex.Lock()
	defer o.cancelMutex.Unlock()
	o.activeCancellations[taskID] = cancel
}

func (o *Orchestrator) unregisterCancel(taskID uint) {
	o.cancelMutex.Lock()
	defer o.cancelMutex.Unlock()
	delete(o.activeCancellations, taskID)
}

// CancelTask 取消正在执行的比对
func (o *Orchestrator) CancelTask(taskID uint) bool {
	o.cancelMutex.Lock()
	cancel, ok := o.activeCancellations[taskID]
	o.cancelMutex.Unlock()
	if !ok {
		return false
	}

	klog.V(6).Infof("Cancelling job: taskID=%d", taskID)
	cancel()

	select {
	case <-time.After(5 * time.Second):
		klog.Warningf("Job cancel timeout: taskID=%d", taskID)
	case <-o.ctx.Done():
	}

	return true
}

func (o *Orchestrator) dispatchLoop() {
	for {
		select {
		case <-o.ctx.Done():
			return
		default:
			job, ok := o.jobQueue.Dequeue()
			if !ok {
				continue
			}
			o.tryDispatch(job)
		}
	}
}

func (o *Orchestrator) processRetryQueue() {
	defer o.retryTicker.Stop()
	// 协程级 panic 防护，避免循环退出
	defer func() {
		if r := recover(); r != nil {
			klog.Errorf("Retry queue loop panic recovered: %v", r)
		}
	}()
	for {
		select {
		case <-o.ctx.Done():
			return
		case <-o.retryTicker.C:
			for range 10 {
				job, ok := o.retryQueue.Dequeue()
				if !ok {
					break
				}
				// 单个作业 panic 不影响整个循环
				func() {
					defer func() {
						if r := recover(); r != nil {
							klog.Errorf("Retry dispatch panic: taskID=%d, err=%v",
								job.TaskID, r)
						}
					}()
					o.tryDispatch(job)
				}()
			}
		}
	}
}

// tryDispatch 尝试分发作业到协程池执行；池提交失败时按重试上限重试入队
func (o *Orchestrator) tryDispatch(job *Job) {
	if job.MaxRetries <= 0 || job.RetryCount >= job.MaxRetries {
		klog.Warningf("作业重试已达上限，放弃入队: taskID=%d, retry=%d/%d", job.TaskID, job.RetryCount, job.MaxRetries)
		return
	}
	if err := o.pool.Submit(func() {
		o.executeJob(job)
	}); err == nil {
		return
	} else {
		klog.Errorf("提交作业到协程池失败: taskID=%d, err=%v", job.TaskID, err)
	}

	job.RetryCount++
	if err := o.retryQueue.Enqueue(job); err != nil {
		klog.Errorf("作业重试入队失败: taskID=%d, err=%v", job.TaskID, err)
	}
}

// executeJob 统一控制重试
func (o *Orchestrator) executeJob(job *Job) {
	defer func() {
		if r := recover(); r != nil {
			klog.Errorf("Job panic recovered: taskID=%d, err=%v", job.TaskID, r)
			o.unregisterCancel(job.TaskID)
		}
	}()

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(o.ctx, timeout)
	defer cancel()
	runCtx, manualCancel := context.WithCancel(ctx)
	defer manualCancel()

	o.registerCancel(job.TaskID, manualCancel)
	defer o.unregisterCancel(job.TaskID)

	for i := job.RetryCount; i < job.MaxRetries; i++ {
		job.RetryCount = i

		err := o.executor.ExecuteCompare(runCtx, job.TaskID, job.Stage)
		if err == nil {
			klog.V(6).Infof("Job completed: taskID=%d, stage=%s", job.TaskID, job.Stage)
			return
		}

		backoff := time.Second << i
		if backoff > 5*time.Minute {
			backoff = 5 * time.Minute
		}

		klog.Warningf("作业重试失败: taskID=%d, retry=%d/%d, err=%v, backoff=%v",
			job.TaskID, i+1, job.MaxRetries, err, backoff)

		select {
		case <-runCtx.Done():
			klog.Warningf("作业被取消或超时: taskID=%d", job.TaskID)
			return
		case <-time.After(backoff):
		}
	}

	klog.Errorf("作业执行失败且超过重试上限: taskID=%d", job.TaskID)
}

type QueueStatus struct {
	QueueLength   int `json:"queue_length"`
	ActiveWorkers int `json:"active_workers"`
}

func (o *Orchestrator) GetQueueStatus() *QueueStatus {
	return &QueueStatus{
		QueueLength:   o.jobQueue.Len(),
		ActiveWorkers: o.pool.Running(),
	}
}

// jobQueue 有界队列，满则拒绝新作业
type jobQueue struct {
	maxSize int
	items   []*Job
	mutex   sync.Mutex
	cond    *sync.Cond
	closed  bool
}

func newJobQueue(maxSize int) *jobQueue {
	q := &jobQueue{
		maxSize: maxSize,
		items:   make([]*Job, 0, maxSize),
	}
	q.cond = sync.NewCond(&q.mutex)
	return q
}

func (q *jobQueue) Enqueue(job *Job) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if q.closed {
		return ErrOrchestratorStopped
	}
	if q.maxSize > 0 && len(q.items) >= q.maxSize {
		return ErrQueueFull
	}
	q.items = append(q.items, job)
	q.cond.Signal()
	return nil
}

func (q *jobQueue) Dequeue() (*Job, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	job := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return job, true
}

func (q *jobQueue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.items)
}

func (q *jobQueue) Close() {
	q.mutex.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mutex.Unlock()
}

// -------------------- Global Orchestrator --------------------
var (
	globalOrchestrator *Orchestrator
	orchestratorOnce   sync.Once
)

func InitGlobalOrchestrator(maxWorkers int, executor CompareExecutor) error {
	var initErr error
	orchestratorOnce.Do(func() {
		orch, err := NewOrchestrator(maxWorkers, executor)
		if err != nil {
			initErr = err
			return
		}
		globalOrchestrator = orch
		globalOrchestrator.Start()
		klog.V(6).Infof("Global orchestrator initialized: maxWorkers=%d", maxWorkers)
	})
	return initErr
}

func GetGlobalOrchestrator() *Orchestrator {
	return globalOrchestrator
}

func ShutdownGlobalOrchestrator() {
	if globalOrchestrator != nil {
		globalOrchestrator.Stop()
		klog.V(6).Infof("Global orchestrator shutdown")
	}
}
