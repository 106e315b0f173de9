package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/scriber/fundcompare/internal/repository"
	"github.com/scriber/fundcompare/internal/service"
)

type ProjectHandler struct {
	service     *service.ProjectService
	fileService *service.FileService
}

func NewProjectHandler(svc *service.ProjectService, fileService *service.FileService) *ProjectHandler {
	return &ProjectHandler{
		service:     svc,
		fileService: fileService,
	}
}

type createProjectRequest struct {
	Name    string `json:"name" binding:"required"`
	OwnerID uint   `json:"owner_id"`
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.service.Create(req.Name, req.OwnerID)
	if errors.Is(err, service.ErrProjectExists) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "项目名称已存在"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, project)
}

type xingyunRequest struct {
	Name    string   `json:"name" binding:"required"`
	OwnerID uint     `json:"owner_id"`
	DeptIDs []string `json:"dept_ids"`
}

// Xingyun 星云系统单据跳转入口，同名项目直接复用
func (h *ProjectHandler) Xingyun(c *gin.Context) {
	var req xingyunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.service.CreateOrGetXingyun(req.Name, req.OwnerID, req.DeptIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) List(c *gin.Context) {
	ownerID, _ := strconv.ParseUint(c.Query("owner_id"), 10, 32)
	projects, err := h.service.List(uint(ownerID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	project, err := h.service.Get(uint(id))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	info, err := h.service.GetInfo(project.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	files, err := h.fileService.ListByProject(project.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"project": project,
		"info":    info,
		"files":   files,
	})
}

type renameProjectRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *ProjectHandler) Rename(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}
	var req renameProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.service.Rename(uint(id), req.Name)
	if errors.Is(err, service.ErrProjectExists) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "项目名称已存在"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "project deleted"})
}

// Samples 范文：schema 名到范文文件与提取单元的映射
func (h *ProjectHandler) Samples(c *gin.Context) {
	samples, err := h.service.Samples()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, samples)
}
