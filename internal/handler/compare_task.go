package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scriber/fundcompare/internal/model"
	"github.com/scriber/fundcompare/internal/repository"
	"github.com/scriber/fundcompare/internal/service"
	"github.com/scriber/fundcompare/internal/service/orchestrator"
)

type CompareTaskHandler struct {
	service *service.CompareTaskService
}

func NewCompareTaskHandler(svc *service.CompareTaskService) *CompareTaskHandler {
	return &CompareTaskHandler{service: svc}
}

type createTaskRequest struct {
	ProjectID uint   `json:"project_id" binding:"required"`
	Name      string `json:"name"`
	Fids      []uint `json:"fids" binding:"required"`
}

func (h *CompareTaskHandler) Create(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.service.CreateTask(req.ProjectID, req.Name, req.Fids)
	if errors.Is(err, service.ErrTaskNameExists) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "任务名称已存在"})
		return
	}
	if errors.Is(err, service.ErrFileNotInProject) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "文件不属于该项目"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *CompareTaskHandler) List(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Query("project_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	views, err := h.service.ListTasks(uint(projectID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *CompareTaskHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	view, err := h.service.GetTask(uint(id))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

type updateTaskRequest struct {
	Name string `json:"name"`
	Fids []uint `json:"fids"`
}

func (h *CompareTaskHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.service.UpdateTask(uint(id), req.Name, req.Fids)
	if errors.Is(err, service.ErrTaskNameExists) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "任务名称已存在"})
		return
	}
	if errors.Is(err, service.ErrFileNotInProject) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "文件不属于该项目"})
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *CompareTaskHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	if err := h.service.DeleteTask(uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}

// Start 启动任务，文档齐全且提取完成后自动进入比对
func (h *CompareTaskHandler) Start(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	if err := h.service.Start(uint(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task started"})
}

// Redo 重新比对，仅失败或已完成的任务允许
func (h *CompareTaskHandler) Redo(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	if err := h.service.Redo(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, service.ErrTaskNotRetryable) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "当前状态不允许重新比对"})
			return
		}
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task redo accepted"})
}

// RedoChapter 只重做章节比对
func (h *CompareTaskHandler) RedoChapter(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	if err := h.service.RedoChapter(uint(id)); err != nil {
		if errors.Is(err, service.ErrTaskNotRetryable) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "章节比对尚未结束"})
			return
		}
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "chapter redo accepted"})
}

// FileAnswer 单文档比对结果，比对未完成返回 400
func (h *CompareTaskHandler) FileAnswer(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	fid, err := strconv.ParseUint(c.Param("fid"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	fa, err := h.service.GetFileAnswer(uint(id), uint(fid))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "比对未完成"})
		return
	}
	if errors.Is(err, service.ErrFileNotInProject) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "文件不属于该任务"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	switch model.CompareStatus(fa.Status) {
	case model.CompareDone:
		c.JSON(http.StatusOK, fa)
	case model.CompareFailed:
		c.JSON(http.StatusBadRequest, gin.H{"error": "比对失败"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "比对未完成"})
	}
}

// ConsistencyAnswer 跨文档一致性比对结果，比对未完成返回 400
func (h *CompareTaskHandler) ConsistencyAnswer(c *gin.Context) {
	h.taskAnswer(c, func(task *model.CompareTask) (model.CompareStatus, interface{}) {
		return model.CompareStatus(task.ConsistencyStatus), task.ConsistencyAnswer
	})
}

// ChapterAnswer 章节比对结果，比对未完成返回 400
// doc_type 可选，取 fund_contract 或 custody_agreement 只看一侧
func (h *CompareTaskHandler) ChapterAnswer(c *gin.Context) {
	docType := c.Query("doc_type")
	if docType != "" && docType != "fund_contract" && docType != "custody_agreement" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid doc_type"})
		return
	}

	h.taskAnswer(c, func(task *model.CompareTask) (model.CompareStatus, interface{}) {
		status := model.CompareStatus(task.ChapterStatus)
		if docType == "" || status != model.CompareDone {
			return status, task.ChapterAnswer
		}
		var byDoc map[string]json.RawMessage
		if err := json.Unmarshal(task.ChapterAnswer, &byDoc); err != nil {
			return status, task.ChapterAnswer
		}
		return status, byDoc[docType]
	})
}

func (h *CompareTaskHandler) taskAnswer(c *gin.Context, pick func(*model.CompareTask) (model.CompareStatus, interface{})) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	view, err := h.service.GetTask(uint(id))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status, answer := pick(view.CompareTask)
	switch status {
	case model.CompareDone:
		c.JSON(http.StatusOK, gin.H{"answer": answer})
	case model.CompareFailed:
		c.JSON(http.StatusBadRequest, gin.H{"error": "比对失败"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "比对未完成"})
	}
}

// QueueStatus 比对队列的运行状态
func (h *CompareTaskHandler) QueueStatus(c *gin.Context) {
	c.JSON(http.StatusOK, orchestrator.GetGlobalOrchestrator().GetQueueStatus())
}

// CleanupStuck 清理超时卡在比对中的任务
func (h *CompareTaskHandler) CleanupStuck(c *gin.Context) {
	// 默认超时时间为 30 分钟
	timeout := 30 * time.Minute
	if t := c.Query("timeout"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	affected, err := h.service.CleanupStuck(timeout)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "cleanup completed",
		"affected": affected,
		"timeout":  timeout.String(),
	})
}
