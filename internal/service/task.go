package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"k8s.io/klog/v2"

	"github.com/scriber/fundcompare/config"
	"github.com/scriber/fundcompare/internal/answer"
	"github.com/scriber/fundcompare/internal/model"
	"github.com/scriber/fundcompare/internal/pdfreader"
	"github.com/scriber/fundcompare/internal/repository"
	"github.com/scriber/fundcompare/internal/service/compare"
	"github.com/scriber/fundcompare/internal/service/orchestrator"
	"github.com/scriber/fundcompare/internal/service/statemachine"
)

var (
	ErrTaskNotRetryable = errors.New("task is not retryable")
	ErrTaskNameExists   = errors.New("task name already exists")
	ErrFileNotInProject = errors.New("file does not belong to project")
)

// CompareTaskService 比对任务的编排：建任务、启动、重比对与比对执行
type CompareTaskService struct {
	tasks       repository.CompareTaskRepository
	files       repository.FileRepository
	questions   repository.QuestionRepository
	fileAnswers repository.FileAnswerRepository
	projects    repository.ProjectRepository

	fileService *FileService
	sm          *statemachine.CompareStateMachine
	dataDir     string

	// 入队钩子，测试中可替换
	enqueue func(job *orchestrator.Job) error
}

func NewCompareTaskService(
	tasks repository.CompareTaskRepository,
	files repository.FileRepository,
	questions repository.QuestionRepository,
	fileAnswers repository.FileAnswerRepository,
	projects repository.ProjectRepository,
	fileService *FileService,
) *CompareTaskService {
	return &CompareTaskService{
		tasks:       tasks,
		files:       files,
		questions:   questions,
		fileAnswers: fileAnswers,
		projects:    projects,
		fileService: fileService,
		sm:          statemachine.NewCompareStateMachine(),
		dataDir:     config.GetConfig().Data.Dir,
		enqueue: func(job *orchestrator.Job) error {
			return orchestrator.GetGlobalOrchestrator().EnqueueJob(job)
		},
	}
}

// CreateTask 创建比对任务，name 为空时自动命名为 <项目名><日期>(序号)
func (s *CompareTaskService) CreateTask(projectID uint, name string, fids []uint) (*model.CompareTask, error) {
	project, err := s.projects.Get(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.validateFiles(projectID, fids); err != nil {
		return nil, err
	}

	if name == "" {
		name, err = s.autoName(project)
		if err != nil {
			return nil, err
		}
	} else if _, err := s.tasks.GetByName(projectID, name); err == nil {
		return nil, ErrTaskNameExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	task := &model.CompareTask{
		ProjectID: projectID,
		OwnerID:   project.OwnerID,
		Name:      name,
		FileIDs:   datatypes.NewJSONSlice(fids),
	}
	if err := s.tasks.Create(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *CompareTaskService) autoName(project *model.Project) (string, error) {
	prefix := fmt.Sprintf("%s%s", project.Name, time.Now().Format("20060102"))
	count, err := s.tasks.CountNamePrefix(project.ID, prefix)
	if err != nil {
		return "", err
	}
	if count == 0 {
		return prefix, nil
	}
	return fmt.Sprintf("%s(%d)", prefix, count), nil
}

func (s *CompareTaskService) validateFiles(projectID uint, fids []uint) error {
	files, err := s.files.GetByIDs(fids)
	if err != nil {
		return err
	}
	if len(files) != len(fids) {
		return ErrFileNotInProject
	}
	byType := make(map[string]int)
	for _, file := range files {
		if file.ProjectID != projectID {
			return ErrFileNotInProject
		}
		byType[file.Source]++
	}
	for source, count := range byType {
		fileType, ok := config.GetSelfConfig().FileTypeByName(source)
		if !ok {
			continue
		}
		if fileType.QuantityLimit > 0 && count > fileType.QuantityLimit {
			return fmt.Errorf("%w: %s 最多选择 %d 份", ErrQuantityExceeded, source, fileType.QuantityLimit)
		}
	}
	return nil
}

// UpdateTask 更新任务成员或名称，成员变更在行锁内提交
func (s *CompareTaskService) UpdateTask(taskID uint, name string, fids []uint) (*model.CompareTask, error) {
	var updated *model.CompareTask
	err := s.tasks.Transaction(func(txRepo repository.CompareTaskRepository) error {
		task, err := txRepo.GetForUpdate(taskID)
		if err != nil {
			return err
		}
		if name != "" && name != task.Name {
			if _, err := txRepo.GetByName(task.ProjectID, name); err == nil {
				return ErrTaskNameExists
			} else if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			task.Name = name
		}
		if fids != nil {
			if err := s.validateFiles(task.ProjectID, fids); err != nil {
				return err
			}
			task.FileIDs = datatypes.NewJSONSlice(fids)
		}
		if err := txRepo.Save(task); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// TaskView 任务及其推导状态
type TaskView struct {
	*model.CompareTask
	ComputedStatus model.TaskStatus          `json:"computed_status"`
	FileStatuses   map[uint]model.FileStatus `json:"file_statuses"`
	Retryable      bool                      `json:"retryable"`
}

// GetTask 返回任务与按成员文件推导出的状态
func (s *CompareTaskService) GetTask(taskID uint) (*TaskView, error) {
	task, err := s.tasks.Get(taskID)
	if err != nil {
		return nil, err
	}
	return s.buildView(task)
}

// ListTasks 项目下的任务列表，附推导状态
func (s *CompareTaskService) ListTasks(projectID uint) ([]*TaskView, error) {
	tasks, err := s.tasks.GetByProject(projectID)
	if err != nil {
		return nil, err
	}
	views := make([]*TaskView, 0, len(tasks))
	for i := range tasks {
		view, err := s.buildView(&tasks[i])
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *CompareTaskService) buildView(task *model.CompareTask) (*TaskView, error) {
	calc, err := s.calculator(task)
	if err != nil {
		return nil, err
	}
	return &TaskView{
		CompareTask:    task,
		ComputedStatus: calc.Status(),
		FileStatuses:   calc.StatusByFid(),
		Retryable:      calc.Retryable(),
	}, nil
}

func (s *CompareTaskService) calculator(task *model.CompareTask) (*compare.TaskStatusCalculator, error) {
	files, err := s.files.GetByIDs(task.FileIDs)
	if err != nil {
		return nil, err
	}
	minimals := make([]compare.MinimalFile, 0, len(files))
	for i := range files {
		compareStatus := model.CompareDefault
		if fa, err := s.fileAnswers.GetByTaskAndFile(task.ID, files[i].ID); err == nil {
			compareStatus = model.CompareStatus(fa.Status)
		}
		minimals = append(minimals, compare.MinimalFileFrom(&files[i], compareStatus))
	}
	return &compare.TaskStatusCalculator{
		Task:  compare.MinimalTask{ID: task.ID, Started: task.Started, Status: model.TaskStatus(task.Status)},
		Files: minimals,
	}, nil
}

// GetFileAnswer 某成员文件的单文档比对结果
func (s *CompareTaskService) GetFileAnswer(taskID, fid uint) (*model.FileAnswer, error) {
	task, err := s.tasks.Get(taskID)
	if err != nil {
		return nil, err
	}
	if !task.HasFile(fid) {
		return nil, ErrFileNotInProject
	}
	return s.fileAnswers.GetByTaskAndFile(taskID, fid)
}

// DeleteTask 删除任务及其单文档比对结果
func (s *CompareTaskService) DeleteTask(taskID uint) error {
	if err := s.fileAnswers.DeleteByTask(taskID); err != nil {
		return err
	}
	return s.tasks.Delete(taskID)
}

// Start 启动任务：置 started 并在就绪时入队比对
func (s *CompareTaskService) Start(taskID uint) error {
	err := s.tasks.Transaction(func(txRepo repository.CompareTaskRepository) error {
		task, err := txRepo.GetForUpdate(taskID)
		if err != nil {
			return err
		}
		if task.Started {
			return nil
		}
		return txRepo.UpdateFields(taskID, map[string]interface{}{"started": true})
	})
	if err != nil {
		return err
	}
	return s.enqueueIfReady(taskID)
}

// Redo 重新比对：仅允许可重试状态，按失败环节分流
func (s *CompareTaskService) Redo(ctx context.Context, taskID uint) error {
	task, err := s.tasks.Get(taskID)
	if err != nil {
		return err
	}
	calc, err := s.calculator(task)
	if err != nil {
		return err
	}
	if !calc.Retryable() {
		return ErrTaskNotRetryable
	}

	status := calc.Status()
	if err := s.tasks.UpdateFields(taskID, map[string]interface{}{
		"status":             int(model.TaskStatusUnset),
		"started":            true,
		"consistency_status": int(model.CompareDefault),
		"chapter_status":     int(model.CompareDefault),
	}); err != nil {
		return err
	}

	switch status {
	case model.TaskDiffDone, model.TaskDiffFailed:
		// 提取结果还在，直接重跑比对
		return s.enqueueIfReady(taskID)
	default:
		// 提取环节失败：尚未进入比对的文件全部重新送审，强制重新预测
		return s.reprocessFiles(ctx, task, calc.StatusByFid())
	}
}

func (s *CompareTaskService) reprocessFiles(ctx context.Context, task *model.CompareTask, statusByFid map[uint]model.FileStatus) error {
	files, err := s.files.GetByIDs(task.FileIDs)
	if err != nil {
		return err
	}
	for i := range files {
		if statusByFid[files[i].ID] > model.FileAIFinish {
			continue
		}
		if err := s.fileService.Reprocess(ctx, &files[i], true); err != nil {
			return err
		}
	}
	return nil
}

// RedoChapter 只重做章节比对，仅章节比对失败时允许
func (s *CompareTaskService) RedoChapter(taskID uint) error {
	task, err := s.tasks.Get(taskID)
	if err != nil {
		return err
	}
	if model.CompareStatus(task.ChapterStatus) != model.CompareFailed {
		return ErrTaskNotRetryable
	}
	return s.enqueue(orchestrator.NewCompareJob(taskID, orchestrator.StageChapterOnly))
}

// CleanupStuck 把超时卡在比对中的任务置为失败，运维入口
func (s *CompareTaskService) CleanupStuck(timeout time.Duration) (int64, error) {
	return s.tasks.CleanupStuckTasks(timeout)
}

// OnFileExtracted 某文件提取完成后的挂钩：把就绪的已启动任务送入比对
func (s *CompareTaskService) OnFileExtracted(ctx context.Context, fid uint) error {
	tasks, err := s.tasks.GetStartedByFile(fid)
	if err != nil {
		return err
	}
	var errs []error
	for i := range tasks {
		if err := s.enqueueIfReady(tasks[i].ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// enqueueIfReady 必传文档齐全且提取全部到达终态才入队
func (s *CompareTaskService) enqueueIfReady(taskID uint) error {
	task, err := s.tasks.Get(taskID)
	if err != nil {
		return err
	}
	files, err := s.files.GetByIDs(task.FileIDs)
	if err != nil {
		return err
	}
	ready, err := s.readyToDiff(task, files)
	if err != nil {
		return err
	}
	if !ready {
		return nil
	}
	return s.enqueue(orchestrator.NewCompareJob(taskID, orchestrator.StageFullCompare))
}

// readyToDiff 必传文档齐全且所有提取单元都是预测成功
func (s *CompareTaskService) readyToDiff(task *model.CompareTask, files []model.File) (bool, error) {
	sources := make([]string, 0, len(files))
	fids := make([]uint, 0, len(files))
	for i := range files {
		sources = append(sources, files[i].Source)
		fids = append(fids, files[i].ID)
	}
	if !compare.IsFileReady(sources, config.GetSelfConfig().RequiredTypes()) {
		klog.V(6).Infof("task %d required file missing", task.ID)
		return false, nil
	}
	unfinished, err := s.questions.UnfinishedExists(fids)
	if err != nil {
		return false, err
	}
	if unfinished {
		klog.V(6).Infof("task %d is not ready to diff", task.ID)
		return false, nil
	}
	// 终态但非预测成功的提取单元由重比对入口处理，这里不进比对
	for i := range files {
		for _, q := range files[i].Questions {
			if model.AIStatus(q.AIStatus) != model.AIFinish {
				klog.V(6).Infof("task %d has failed predictions", task.ID)
				return false, nil
			}
		}
	}
	return true, nil
}

// ExecuteCompare 编排器回调入口
func (s *CompareTaskService) ExecuteCompare(ctx context.Context, taskID uint, stage orchestrator.Stage) error {
	switch stage {
	case orchestrator.StageChapterOnly:
		return s.RunChapterDiffTask(ctx, taskID)
	default:
		return s.RunCompareTask(ctx, taskID)
	}
}

// RunCompareTask 完整比对：单文档、跨文档、章节，入队后再次核对就绪门槛
func (s *CompareTaskService) RunCompareTask(ctx context.Context, taskID uint) error {
	task, err := s.tasks.Get(taskID)
	if err != nil {
		return err
	}
	files, err := s.files.GetByIDs(task.FileIDs)
	if err != nil {
		return err
	}
	ready, err := s.readyToDiff(task, files)
	if err != nil {
		return err
	}
	if !ready {
		return nil
	}

	if err := s.tasks.UpdateFields(taskID, map[string]interface{}{"status": int(model.TaskDiffDoing)}); err != nil {
		return err
	}

	runErr := func() error {
		for i := range files {
			if err := s.singleFileDiff(ctx, task, &files[i]); err != nil {
				return err
			}
		}
		return s.consistencyDiff(ctx, task, files)
	}()

	if runErr != nil {
		klog.Errorf("task %d compare failed: %v", taskID, runErr)
		return s.tasks.UpdateFields(taskID, map[string]interface{}{
			"status": int(model.TaskDiffFailed), "started": false,
		})
	}

	// 章节比对失败不影响比对任务的状态
	if err := s.chapterDiff(ctx, task, files); err != nil {
		klog.Errorf("task %d chapter diff failed: %v", taskID, err)
	}

	return s.tasks.UpdateFields(taskID, map[string]interface{}{
		"status": int(model.TaskDiffDone), "started": false,
	})
}

// RunChapterDiffTask 只跑章节比对
func (s *CompareTaskService) RunChapterDiffTask(ctx context.Context, taskID uint) error {
	task, err := s.tasks.Get(taskID)
	if err != nil {
		return err
	}
	files, err := s.files.GetByIDs(task.FileIDs)
	if err != nil {
		return err
	}
	if err := s.chapterDiff(ctx, task, files); err != nil {
		klog.Errorf("task %d chapter diff failed: %v", taskID, err)
	}
	return nil
}

// 非章节 schema 的提取单元
func nonChapterQuestion(file *model.File) *model.Question {
	for i := range file.Questions {
		q := &file.Questions[i]
		if q.Mold != nil && !isChapterMold(q.Mold.Name) {
			return q
		}
	}
	return nil
}

func isChapterMold(name string) bool {
	_, ok := config.GetSelfConfig().CheckPointsMolds()[name]
	return ok
}

func (s *CompareTaskService) openReader(file *model.File) (*pdfreader.Reader, error) {
	return pdfreader.NewReader(file.PdfinsightPath(s.dataDir))
}

// singleFileDiff 单文档一致性比对，结果按 (task, file) 覆盖写入
func (s *CompareTaskService) singleFileDiff(ctx context.Context, task *model.CompareTask, file *model.File) error {
	klog.V(6).Infof("start single diff for task %d, file %d", task.ID, file.ID)
	defer klog.V(6).Infof("end single diff for task %d, file %d", task.ID, file.ID)

	if err := s.fileAnswers.DeleteByTaskAndFile(task.ID, file.ID); err != nil {
		return err
	}

	runErr := func() error {
		question := nonChapterQuestion(file)
		if question == nil {
			return fmt.Errorf("file %d has no extraction question", file.ID)
		}
		node, err := answer.ParseNode(question.PresetAnswer, file.ID, question.Mold.Name)
		if err != nil {
			return err
		}
		if node == nil {
			return fmt.Errorf("file %d has no prediction answer", file.ID)
		}
		reader, err := s.openReader(file)
		if err != nil {
			return err
		}
		groups, items, err := compare.SingleQuestionDiff(node, file.Source, reader)
		if err != nil {
			return err
		}
		answerJSON, err := marshalJSON(items)
		if err != nil {
			return err
		}
		return s.fileAnswers.Upsert(&model.FileAnswer{
			TaskID: task.ID,
			FileID: file.ID,
			Status: int(model.CompareDone),
			Schema: datatypes.NewJSONSlice(groups.Labels()),
			Answer: answerJSON,
		})
	}()

	if runErr != nil {
		if err := s.fileAnswers.Upsert(&model.FileAnswer{
			TaskID: task.ID,
			FileID: file.ID,
			Status: int(model.CompareFailed),
		}); err != nil {
			klog.Errorf("save failed file answer error: %v", err)
		}
		return runErr
	}
	return nil
}

// consistencyDiff 多文档一致性比对
func (s *CompareTaskService) consistencyDiff(ctx context.Context, task *model.CompareTask, files []model.File) error {
	klog.V(6).Infof("start consistency diff for task %d", task.ID)
	defer klog.V(6).Infof("end consistency diff for task %d", task.ID)

	if err := s.sm.Transition(model.CompareStatus(task.ConsistencyStatus), model.CompareDoing, task.ID); err != nil {
		return err
	}
	if err := s.tasks.UpdateFields(task.ID, map[string]interface{}{
		"consistency_status": int(model.CompareDoing),
	}); err != nil {
		return err
	}

	runErr := func() error {
		var sources []compare.SourceAnswers
		readers := make(map[uint]*pdfreader.Reader, len(files))
		for i := range files {
			file := &files[i]
			question := nonChapterQuestion(file)
			if question == nil {
				return fmt.Errorf("file %d has no extraction question", file.ID)
			}
			node, err := answer.ParseNode(question.PresetAnswer, file.ID, question.Mold.Name)
			if err != nil {
				return err
			}
			if node == nil {
				return fmt.Errorf("file %d has no prediction answer", file.ID)
			}
			sources = append(sources, compare.SourceAnswers{
				Source: file.Source,
				Groups: answer.GroupByLabel(node),
			})
			reader, err := s.openReader(file)
			if err != nil {
				return err
			}
			readers[file.ID] = reader
		}

		diffAnswer, err := compare.ConsistencyDiff(sources, readers)
		if err != nil {
			return err
		}
		answerJSON, err := marshalJSON(diffAnswer)
		if err != nil {
			return err
		}
		return s.tasks.UpdateFields(task.ID, map[string]interface{}{
			"consistency_status": int(model.CompareDone),
			"consistency_answer": answerJSON,
		})
	}()

	if runErr != nil {
		if err := s.tasks.UpdateFields(task.ID, map[string]interface{}{
			"consistency_status": int(model.CompareFailed),
		}); err != nil {
			klog.Errorf("save consistency status error: %v", err)
		}
		return runErr
	}
	return nil
}

// chapterDiff 章节比对，失败只落章节状态
func (s *CompareTaskService) chapterDiff(ctx context.Context, task *model.CompareTask, files []model.File) error {
	klog.V(6).Infof("start chapter diff task: %d", task.ID)
	defer klog.V(6).Infof("end chapter diff task: %d", task.ID)

	if err := s.sm.Transition(model.CompareStatus(task.ChapterStatus), model.CompareDoing, task.ID); err != nil {
		return err
	}
	if err := s.tasks.UpdateFields(task.ID, map[string]interface{}{
		"chapter_status": int(model.CompareDoing),
	}); err != nil {
		return err
	}

	runErr := func() error {
		checkPointMolds := config.GetSelfConfig().CheckPointsMolds()
		metas := make(map[string]*compare.ChapterMeta)
		for i := range files {
			if len(metas) == len(checkPointMolds) {
				break
			}
			file := &files[i]
			for j := range file.Questions {
				question := &file.Questions[j]
				if question.Mold == nil {
					continue
				}
				keys, ok := checkPointMolds[question.Mold.Name]
				if !ok {
					continue
				}
				node, err := answer.ParseNode(question.PresetAnswer, file.ID, question.Mold.Name)
				if err != nil {
					return err
				}
				if node == nil {
					metas[question.Mold.Name] = nil
					continue
				}
				reader, err := s.openReader(file)
				if err != nil {
					return err
				}
				metas[question.Mold.Name] = compare.NewChapterMeta(node, reader, keys)
			}
		}

		result, err := compare.ChapterDiffAnswers(metas)
		if err != nil {
			return err
		}
		answerJSON, err := marshalJSON(result)
		if err != nil {
			return err
		}
		return s.tasks.UpdateFields(task.ID, map[string]interface{}{
			"chapter_status": int(model.CompareDone),
			"chapter_answer": answerJSON,
		})
	}()

	if runErr != nil {
		if err := s.tasks.UpdateFields(task.ID, map[string]interface{}{
			"chapter_status": int(model.CompareFailed),
		}); err != nil {
			klog.Errorf("save chapter status error: %v", err)
		}
		return runErr
	}
	return nil
}
