package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/scriber/fundcompare/config"
)

// Client 外部解析/预测服务的客户端
// 服务异步处理，结果通过回调地址回写本服务
type Client struct {
	cfg        *config.ExtractorConfig
	httpClient *http.Client
}

func NewClient(cfg *config.ExtractorConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecond) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// MoldRequest 一个提取单元：question 与 schema 名
type MoldRequest struct {
	QuestionID uint   `json:"question_id"`
	Name       string `json:"name"`
}

// ProcessRequest 解析并预测一个文件
type ProcessRequest struct {
	FileID          uint          `json:"file_id"`
	FileURL         string        `json:"file_url"`
	Molds           []MoldRequest `json:"molds"`
	ParseCallback   string        `json:"parse_callback"`
	PredictCallback string        `json:"predict_callback"`
	ForcePredict    bool          `json:"force_predict,omitempty"`
}

type processResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

// ProcessFile 发起解析+预测，结果走回调
func (c *Client) ProcessFile(ctx context.Context, req *ProcessRequest) error {
	if req.ParseCallback == "" {
		req.ParseCallback = c.cfg.CallbackBase + "/api/v1/callbacks/parse"
	}
	if req.PredictCallback == "" {
		req.PredictCallback = c.cfg.CallbackBase + "/api/v1/callbacks/predict"
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/v1/process", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "*/*")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var result processResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}
	if result.Code != 0 {
		return fmt.Errorf("extractor API error: %s", result.Message)
	}
	return nil
}

// ParseCallback 解析服务的回调体
type ParseCallback struct {
	FileID   uint            `json:"file_id"`
	Status   int             `json:"status"`
	Document json.RawMessage `json:"document,omitempty"`
	ErrMsg   string          `json:"err_msg,omitempty"`
}

// PredictCallback 预测服务的回调体
type PredictCallback struct {
	QuestionID uint            `json:"question_id"`
	Status     int             `json:"status"`
	Answer     json.RawMessage `json:"answer,omitempty"`
	ErrMsg     string          `json:"err_msg,omitempty"`
}
