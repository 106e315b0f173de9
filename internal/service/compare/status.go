package compare

import (
	"github.com/scriber/fundcompare/internal/model"
)

// MinimalFile 状态计算所需的文件快照
type MinimalFile struct {
	ID             uint
	Source         string
	PDFParseStatus model.PDFParseStatus
	AIStatuses     []model.AIStatus
	CompareStatus  model.CompareStatus // 只有显示单文件状态时需要
}

// MinimalFileFrom 从文件与其提取单元构建快照
func MinimalFileFrom(file *model.File, compareStatus model.CompareStatus) MinimalFile {
	mf := MinimalFile{
		ID:             file.ID,
		Source:         file.Source,
		PDFParseStatus: model.PDFParseStatus(file.PDFParseStatus),
		CompareStatus:  compareStatus,
	}
	for _, q := range file.Questions {
		mf.AIStatuses = append(mf.AIStatuses, model.AIStatus(q.AIStatus))
	}
	return mf
}

func (f MinimalFile) hasAIStatus(status model.AIStatus) bool {
	for _, s := range f.AIStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Status 文件级状态，按解析、预测、比对依次归并
func (f MinimalFile) Status() model.FileStatus {
	if f.PDFParseStatus == model.PDFParseFailed {
		return model.FilePDFFailed
	}
	if f.PDFParseStatus != model.PDFParseComplete {
		return model.FilePDFParsing
	}
	if f.hasAIStatus(model.AIDisable) {
		return model.FileAIDisable
	}
	if f.hasAIStatus(model.AIFailed) {
		return model.FileAIFailed
	}
	if f.hasAIStatus(model.AITodo) {
		return model.FileAITodo
	}
	if f.hasAIStatus(model.AIDoing) {
		return model.FileAIDoing
	}
	switch f.CompareStatus {
	case model.CompareFailed:
		return model.FileCmpFailed
	case model.CompareDoing:
		return model.FileCmpDoing
	case model.CompareDone:
		return model.FileCmpFinish
	}
	return model.FileAIFinish
}

// MinimalTask 状态计算所需的任务快照
type MinimalTask struct {
	ID      uint
	Started bool
	Status  model.TaskStatus
}

// TaskStatusCalculator 任务状态推导
// 任务自身已有状态时直接采信，否则按成员文件状态级联推导
type TaskStatusCalculator struct {
	Task  MinimalTask
	Files []MinimalFile
}

// Status 推导任务状态
func (c *TaskStatusCalculator) Status() model.TaskStatus {
	if c.Task.Status != model.TaskStatusUnset {
		return c.Task.Status
	}
	if !(c.filesReady() && c.Task.Started) {
		return model.TaskToBeUploaded
	}

	for _, file := range c.Files {
		if file.PDFParseStatus == model.PDFParseFailed {
			return model.TaskParseFailed
		}
	}
	for _, file := range c.Files {
		if file.PDFParseStatus != model.PDFParseComplete {
			return model.TaskParsing
		}
	}

	aiStatuses := make(map[model.AIStatus]struct{})
	for _, file := range c.Files {
		for _, s := range file.AIStatuses {
			aiStatuses[s] = struct{}{}
		}
	}
	if len(aiStatuses) == 0 {
		return model.TaskParsed
	}

	// 文件都已解析完成, 需进一步根据预测状态判断
	if _, ok := aiStatuses[model.AIDisable]; ok {
		return model.TaskAIDisable
	}
	if _, ok := aiStatuses[model.AIFailed]; ok {
		return model.TaskAIFailed
	}
	if _, todo := aiStatuses[model.AITodo]; todo {
		return model.TaskAIDoing
	}
	if _, doing := aiStatuses[model.AIDoing]; doing {
		return model.TaskAIDoing
	}
	return model.TaskDiffDoing
}

// Retryable 当前状态是否允许重新发起比对
func (c *TaskStatusCalculator) Retryable() bool {
	switch c.Status() {
	case model.TaskParseFailed, model.TaskAIFailed, model.TaskAIDisable,
		model.TaskDiffDone, model.TaskDiffFailed:
		return true
	}
	return false
}

// StatusByFid 每个成员文件的文件级状态
func (c *TaskStatusCalculator) StatusByFid() map[uint]model.FileStatus {
	statuses := make(map[uint]model.FileStatus, len(c.Files))
	for _, file := range c.Files {
		statuses[file.ID] = file.Status()
	}
	return statuses
}

func (c *TaskStatusCalculator) filesReady() bool {
	sources := make([]string, 0, len(c.Files))
	for _, file := range c.Files {
		sources = append(sources, file.Source)
	}
	return IsFileReady(sources, requiredTypes())
}
