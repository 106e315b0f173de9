package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/scriber/fundcompare/config"
	"github.com/scriber/fundcompare/internal/eventbus"
	"github.com/scriber/fundcompare/internal/model"
	"github.com/scriber/fundcompare/internal/pkg/extractor"
	"github.com/scriber/fundcompare/internal/repository"
)

var (
	ErrInvalidFileType  = errors.New("unknown file type")
	ErrQuantityExceeded = errors.New("file quantity limit exceeded")
)

// presignExpiry 发给预测服务的下载地址有效期，需覆盖其排队时间
const presignExpiry = 24 * time.Hour

// ObjectStorage 原始文件的对象存储
type ObjectStorage interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, objectName string) error
}

// Extractor 外部解析/预测服务
type Extractor interface {
	ProcessFile(ctx context.Context, req *extractor.ProcessRequest) error
}

// FileService 文件上传、送审与回调处理
type FileService struct {
	files     repository.FileRepository
	questions repository.QuestionRepository
	molds     repository.MoldRepository
	storage   ObjectStorage
	extractor Extractor
	bus       *eventbus.FileEventBus
	dataDir   string
}

func NewFileService(
	files repository.FileRepository,
	questions repository.QuestionRepository,
	molds repository.MoldRepository,
	storage ObjectStorage,
	ext Extractor,
	bus *eventbus.FileEventBus,
) *FileService {
	return &FileService{
		files:     files,
		questions: questions,
		molds:     molds,
		storage:   storage,
		extractor: ext,
		bus:       bus,
		dataDir:   config.GetConfig().Data.Dir,
	}
}

// Upload 上传文件并发起解析+预测
// 每个文档类型限制数量，提取单元按类型的 schema 目录创建
func (s *FileService) Upload(ctx context.Context, projectID uint, name, source string, reader io.Reader, size int64) (*model.File, error) {
	fileType, ok := config.GetSelfConfig().FileTypeByName(source)
	if !ok {
		return nil, ErrInvalidFileType
	}
	count, err := s.files.CountByType(projectID, source)
	if err != nil {
		return nil, err
	}
	if fileType.QuantityLimit > 0 && count >= int64(fileType.QuantityLimit) {
		return nil, fmt.Errorf("%w: %s 最多上传 %d 份", ErrQuantityExceeded, source, fileType.QuantityLimit)
	}

	file := &model.File{
		ProjectID:      projectID,
		Name:           name,
		Source:         source,
		PDFParseStatus: int(model.PDFParsePending),
		ObjectKey:      fmt.Sprintf("%d/%s.pdf", projectID, uuid.NewString()),
	}
	if err := s.files.Create(file); err != nil {
		return nil, err
	}

	if err := s.storage.Upload(ctx, file.ObjectKey, reader, size, "application/pdf"); err != nil {
		return nil, err
	}

	for _, moldName := range fileType.Molds {
		mold, err := s.molds.GetOrCreate(moldName)
		if err != nil {
			return nil, err
		}
		question := &model.Question{
			FileID:   file.ID,
			MoldID:   mold.ID,
			AIStatus: int(model.AITodo),
			Mold:     mold,
		}
		if err := s.questions.Create(question); err != nil {
			return nil, err
		}
		file.Questions = append(file.Questions, *question)
	}

	if err := s.process(ctx, file, false); err != nil {
		return nil, err
	}
	return file, nil
}

// Reprocess 重新送审：解析状态回到排队中、提取单元置为预测中后再次下发
func (s *FileService) Reprocess(ctx context.Context, file *model.File, forcePredict bool) error {
	if err := s.files.UpdateParseStatus(file.ID, model.PDFParsePending); err != nil {
		return err
	}
	if len(file.Questions) == 0 {
		questions, err := s.questions.GetByFile(file.ID)
		if err != nil {
			return err
		}
		file.Questions = questions
	}
	for i := range file.Questions {
		if err := s.questions.UpdateAIStatus(file.Questions[i].ID, model.AIDoing); err != nil {
			return err
		}
	}
	return s.process(ctx, file, forcePredict)
}

func (s *FileService) process(ctx context.Context, file *model.File, forcePredict bool) error {
	url, err := s.storage.PresignedURL(ctx, file.ObjectKey, presignExpiry)
	if err != nil {
		return err
	}
	req := &extractor.ProcessRequest{
		FileID:       file.ID,
		FileURL:      url,
		ForcePredict: forcePredict,
	}
	for i := range file.Questions {
		question := &file.Questions[i]
		if question.Mold == nil {
			return fmt.Errorf("question %d has no mold", question.ID)
		}
		req.Molds = append(req.Molds, extractor.MoldRequest{
			QuestionID: question.ID,
			Name:       question.Mold.Name,
		})
	}
	return s.extractor.ProcessFile(ctx, req)
}

// Get 文件及其提取单元
func (s *FileService) Get(fid uint) (*model.File, error) {
	return s.files.GetWithQuestions(fid)
}

// ListByProject 项目下的文件，按文档类型目录顺序排序
func (s *FileService) ListByProject(projectID uint) ([]model.File, error) {
	files, err := s.files.GetByProject(projectID)
	if err != nil {
		return nil, err
	}
	sortFilesByType(files)
	return files, nil
}

func sortFilesByType(files []model.File) {
	cfg := config.GetSelfConfig()
	sort.SliceStable(files, func(i, j int) bool {
		return cfg.TypeIndex(files[i].Source) < cfg.TypeIndex(files[j].Source)
	})
}

// DownloadURL 原始文件的临时下载地址
func (s *FileService) DownloadURL(ctx context.Context, fid uint) (string, error) {
	file, err := s.files.Get(fid)
	if err != nil {
		return "", err
	}
	return s.storage.PresignedURL(ctx, file.ObjectKey, presignExpiry)
}

// Delete 删除文件、对象与提取单元
func (s *FileService) Delete(ctx context.Context, fid uint) error {
	file, err := s.files.Get(fid)
	if err != nil {
		return err
	}
	if file.ObjectKey != "" {
		if err := s.storage.Delete(ctx, file.ObjectKey); err != nil {
			klog.Errorf("delete object %s error: %v", file.ObjectKey, err)
		}
	}
	if err := os.Remove(file.PdfinsightPath(s.dataDir)); err != nil && !os.IsNotExist(err) {
		klog.Errorf("delete pdfinsight file error: %v", err)
	}
	if err := s.questions.DeleteByFile(fid); err != nil {
		return err
	}
	if err := s.files.Delete(fid); err != nil {
		return err
	}
	return s.bus.Publish(ctx, eventbus.FileEventDeleted, eventbus.FileEvent{
		Type:      eventbus.FileEventDeleted,
		ProjectID: file.ProjectID,
		FileID:    fid,
	})
}

// HandleParseCallback 解析回调：落盘解析结果并更新解析状态
func (s *FileService) HandleParseCallback(ctx context.Context, cb *extractor.ParseCallback) error {
	file, err := s.files.Get(cb.FileID)
	if err != nil {
		return err
	}

	status := model.PDFParseStatus(cb.Status)
	if status != model.PDFParseComplete {
		klog.V(6).Infof("file %d parse failed: %s", cb.FileID, cb.ErrMsg)
		if err := s.files.UpdateParseStatus(cb.FileID, model.PDFParseFailed); err != nil {
			return err
		}
		return s.bus.Publish(ctx, eventbus.FileEventParseFailed, eventbus.FileEvent{
			Type:      eventbus.FileEventParseFailed,
			ProjectID: file.ProjectID,
			FileID:    cb.FileID,
		})
	}

	path := file.PdfinsightPath(s.dataDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建解析结果目录失败: %w", err)
	}
	if err := os.WriteFile(path, cb.Document, 0644); err != nil {
		return fmt.Errorf("写入解析结果失败: %w", err)
	}
	if err := s.files.UpdateParseStatus(cb.FileID, model.PDFParseComplete); err != nil {
		return err
	}
	return s.bus.Publish(ctx, eventbus.FileEventParseFinished, eventbus.FileEvent{
		Type:      eventbus.FileEventParseFinished,
		ProjectID: file.ProjectID,
		FileID:    cb.FileID,
	})
}

// HandlePredictCallback 预测回调：答案落库后发布提取完成事件
// 订阅方据此检查任务是否可以进入比对
func (s *FileService) HandlePredictCallback(ctx context.Context, cb *extractor.PredictCallback) error {
	question, err := s.questions.Get(cb.QuestionID)
	if err != nil {
		return err
	}

	status := model.AIStatus(cb.Status)
	if status != model.AIFinish && status != model.AIFailed && status != model.AIDisable {
		return fmt.Errorf("预测回调状态非终态: %d", cb.Status)
	}
	if cb.ErrMsg != "" {
		klog.V(6).Infof("question %d predict message: %s", cb.QuestionID, cb.ErrMsg)
	}
	if err := s.questions.SaveAnswer(cb.QuestionID, status, cb.Answer); err != nil {
		return err
	}

	file, err := s.files.Get(question.FileID)
	if err != nil {
		return err
	}
	return s.bus.Publish(ctx, eventbus.FileEventExtracted, eventbus.FileEvent{
		Type:       eventbus.FileEventExtracted,
		ProjectID:  file.ProjectID,
		FileID:     question.FileID,
		QuestionID: cb.QuestionID,
	})
}
