package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/scriber/fundcompare/internal/pkg/extractor"
	"github.com/scriber/fundcompare/internal/service"
)

// CallbackHandler 外部解析/预测服务的回调入口
type CallbackHandler struct {
	fileService *service.FileService
}

func NewCallbackHandler(fileService *service.FileService) *CallbackHandler {
	return &CallbackHandler{fileService: fileService}
}

// Parse 解析结果回调
func (h *CallbackHandler) Parse(c *gin.Context) {
	var cb extractor.ParseCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	klog.V(6).Infof("parse callback: file=%d status=%d", cb.FileID, cb.Status)

	if err := h.fileService.HandleParseCallback(c.Request.Context(), &cb); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0})
}

// Predict 预测结果回调
func (h *CallbackHandler) Predict(c *gin.Context) {
	var cb extractor.PredictCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	klog.V(6).Infof("predict callback: question=%d status=%d", cb.QuestionID, cb.Status)

	if err := h.fileService.HandlePredictCallback(c.Request.Context(), &cb); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0})
}
