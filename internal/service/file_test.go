package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/scriber/fundcompare/config"
	"github.com/scriber/fundcompare/internal/eventbus"
	"github.com/scriber/fundcompare/internal/model"
	"github.com/scriber/fundcompare/internal/pkg/extractor"
)

func uploadPDF(t *testing.T, f *fixture, projectID uint, fileType string) *model.File {
	t.Helper()
	body := bytes.NewReader([]byte("%PDF-1.4"))
	file, err := f.fileService.Upload(context.Background(), projectID, fileType+".pdf", fileType, body, 8)
	if err != nil {
		t.Fatalf("upload error: %v", err)
	}
	return file
}

func TestUploadCreatesQuestionsAndNotifiesExtractor(t *testing.T) {
	f := newFixture(t)
	project := f.createProject(t, "上传项目")

	file := uploadPDF(t, f, project.ID, "基金合同")

	// 基金合同类型声明了提取 schema 与章节 schema 两个提取单元
	if len(file.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(file.Questions))
	}
	if len(f.storage.uploads) != 1 || f.storage.uploads[0] != file.ObjectKey {
		t.Fatalf("unexpected uploads: %v", f.storage.uploads)
	}

	if len(f.extractor.requests) != 1 {
		t.Fatalf("expected 1 extractor request, got %d", len(f.extractor.requests))
	}
	req := f.extractor.requests[0]
	if req.FileID != file.ID || len(req.Molds) != 2 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if !strings.Contains(req.FileURL, file.ObjectKey) {
		t.Fatalf("file url should point to object: %s", req.FileURL)
	}
	if req.Molds[0].Name != config.MoldFundContract || req.Molds[1].Name != config.ChapterMoldFund {
		t.Fatalf("unexpected molds: %+v", req.Molds)
	}
}

func TestUploadQuantityLimit(t *testing.T) {
	f := newFixture(t)
	project := f.createProject(t, "限量项目")

	uploadPDF(t, f, project.ID, "基金合同")
	body := bytes.NewReader([]byte("%PDF-1.4"))
	_, err := f.fileService.Upload(context.Background(), project.ID, "第二份.pdf", "基金合同", body, 8)
	if !errors.Is(err, ErrQuantityExceeded) {
		t.Fatalf("expected ErrQuantityExceeded, got %v", err)
	}

	// 承诺函允许 5 份
	for i := 0; i < 5; i++ {
		uploadPDF(t, f, project.ID, "承诺函")
	}
	body = bytes.NewReader([]byte("%PDF-1.4"))
	if _, err := f.fileService.Upload(context.Background(), project.ID, "第六份.pdf", "承诺函", body, 8); !errors.Is(err, ErrQuantityExceeded) {
		t.Fatalf("expected ErrQuantityExceeded for sixth letter, got %v", err)
	}
}

func TestUploadUnknownFileType(t *testing.T) {
	f := newFixture(t)
	project := f.createProject(t, "未知类型项目")

	body := bytes.NewReader([]byte("%PDF-1.4"))
	_, err := f.fileService.Upload(context.Background(), project.ID, "x.pdf", "年度报告", body, 8)
	if !errors.Is(err, ErrInvalidFileType) {
		t.Fatalf("expected ErrInvalidFileType, got %v", err)
	}
}

func TestHandleParseCallback(t *testing.T) {
	f := newFixture(t)
	project := f.createProject(t, "回调项目")
	file := uploadPDF(t, f, project.ID, "基金合同")

	var events []eventbus.FileEvent
	f.bus.Subscribe(eventbus.FileEventParseFinished, func(ctx context.Context, event eventbus.FileEvent) error {
		events = append(events, event)
		return nil
	})

	doc, err := json.Marshal(map[string]interface{}{"pages": 1, "elements": []interface{}{}})
	if err != nil {
		t.Fatalf("marshal document error: %v", err)
	}
	err = f.fileService.HandleParseCallback(context.Background(), &extractor.ParseCallback{
		FileID:   file.ID,
		Status:   int(model.PDFParseComplete),
		Document: doc,
	})
	if err != nil {
		t.Fatalf("handle parse callback error: %v", err)
	}

	got, err := f.files.Get(file.ID)
	if err != nil {
		t.Fatalf("get file error: %v", err)
	}
	if model.PDFParseStatus(got.PDFParseStatus) != model.PDFParseComplete {
		t.Fatalf("unexpected parse status: %d", got.PDFParseStatus)
	}
	if _, err := os.Stat(file.PdfinsightPath(f.dataDir)); err != nil {
		t.Fatalf("pdfinsight file should exist: %v", err)
	}
	if len(events) != 1 || events[0].FileID != file.ID {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestHandleParseCallbackFailed(t *testing.T) {
	f := newFixture(t)
	project := f.createProject(t, "解析失败项目")
	file := uploadPDF(t, f, project.ID, "基金合同")

	err := f.fileService.HandleParseCallback(context.Background(), &extractor.ParseCallback{
		FileID: file.ID,
		Status: int(model.PDFParseFailed),
		ErrMsg: "文件损坏",
	})
	if err != nil {
		t.Fatalf("handle parse callback error: %v", err)
	}

	got, err := f.files.Get(file.ID)
	if err != nil {
		t.Fatalf("get file error: %v", err)
	}
	if model.PDFParseStatus(got.PDFParseStatus) != model.PDFParseFailed {
		t.Fatalf("unexpected parse status: %d", got.PDFParseStatus)
	}
}

func TestHandlePredictCallbackRejectsNonTerminal(t *testing.T) {
	f := newFixture(t)
	project := f.createProject(t, "预测回调项目")
	file := uploadPDF(t, f, project.ID, "基金合同")

	err := f.fileService.HandlePredictCallback(context.Background(), &extractor.PredictCallback{
		QuestionID: file.Questions[0].ID,
		Status:     int(model.AIDoing),
	})
	if err == nil {
		t.Fatal("expected error for non-terminal status")
	}
}

func TestDeleteFile(t *testing.T) {
	f := newFixture(t)
	project := f.createProject(t, "删除项目")
	file := uploadPDF(t, f, project.ID, "基金合同")

	if err := f.fileService.Delete(context.Background(), file.ID); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if len(f.storage.deletes) != 1 || f.storage.deletes[0] != file.ObjectKey {
		t.Fatalf("unexpected deletes: %v", f.storage.deletes)
	}
	if _, err := f.files.Get(file.ID); err == nil {
		t.Fatal("file should be deleted")
	}
	questions, err := f.questions.GetByFile(file.ID)
	if err != nil {
		t.Fatalf("get questions error: %v", err)
	}
	if len(questions) != 0 {
		t.Fatalf("questions should be deleted, got %d", len(questions))
	}
}

func TestReprocessResetsStatuses(t *testing.T) {
	f := newFixture(t)
	project := f.createProject(t, "重送项目")
	file := uploadPDF(t, f, project.ID, "基金合同")

	if err := f.files.UpdateParseStatus(file.ID, model.PDFParseFailed); err != nil {
		t.Fatalf("update parse status error: %v", err)
	}

	if err := f.fileService.Reprocess(context.Background(), file, true); err != nil {
		t.Fatalf("reprocess error: %v", err)
	}

	got, err := f.files.Get(file.ID)
	if err != nil {
		t.Fatalf("get file error: %v", err)
	}
	if model.PDFParseStatus(got.PDFParseStatus) != model.PDFParsePending {
		t.Fatalf("parse status should reset to pending, got %d", got.PDFParseStatus)
	}
	questions, err := f.questions.GetByFile(file.ID)
	if err != nil {
		t.Fatalf("get questions error: %v", err)
	}
	for _, question := range questions {
		if model.AIStatus(question.AIStatus) != model.AIDoing {
			t.Fatalf("question %d should be doing after reprocess, got %d", question.ID, question.AIStatus)
		}
	}
	if len(f.extractor.requests) != 2 {
		t.Fatalf("expected 2 extractor requests, got %d", len(f.extractor.requests))
	}
	if !f.extractor.requests[1].ForcePredict {
		t.Fatal("reprocess should force predict")
	}
}
