package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"imagegen/common"
	"imagegen/internal/genai"
)

// 默认请求超时时间，与官方 SDK 的默认值一致
const defaultOpenAITimeout = 600 * time.Second

const (
	generatePath = "/v1/images/generations"
	editPath     = "/v1/images/edits"
)

// Client OpenAI 图片接口客户端（gpt-image-1）
type Client struct {
	httpClient *http.Client

	baseURL string
	apiKey  string
	// 分别用于图片生成与图片编辑的模型名称
	genModel  string
	editModel string
}

// Config OpenAI 客户端配置
type Config struct {
	BaseURL   string
	APIKey    string
	GenModel  string
	EditModel string
	Timeout   time.Duration
}

// NewOpenAIClientFromConfig 从通用配置创建 OpenAI 客户端。
// 仅当 common.Config.GenAIProvider=openai 时使用。
func NewOpenAIClientFromConfig(cfg *common.Config) (*Client, error) {
	return NewClient(Config{
		BaseURL:   cfg.GenAIBaseURL,
		APIKey:    cfg.GenAIAPIKey,
		GenModel:  cfg.GenAIGenModelName,
		EditModel: cfg.GenAIEditModelName,
		Timeout:   time.Duration(cfg.GenAITimeoutSeconds) * time.Second,
	})
}

// NewClient 创建 OpenAI 客户端
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOpenAITimeout
	}

	// 如果只配置了一个模型，另一个复用它
	genModel := cfg.GenModel
	editModel := cfg.EditModel
	if genModel == "" {
		genModel = editModel
	}
	if editModel == "" {
		editModel = genModel
	}
	if genModel == "" {
		genModel, editModel = "gpt-image-1", "gpt-image-1"
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		genModel:   genModel,
		editModel:  editModel,
	}, nil
}

// Close 预留关闭方法，当前未持有需要显式关闭的资源。
func (c *Client) Close() error {
	return nil
}

// imageRequest 文生图请求体
type imageRequest struct {
	Model      string `json:"model"`
	Prompt     string `json:"prompt"`
	Size       string `json:"size,omitempty"`
	Quality    string `json:"quality,omitempty"`
	N          int    `json:"n,omitempty"`
	Moderation string `json:"moderation,omitempty"`
}

// imageResponse 图片接口的返回结构
//
//	{
//	  "created": 1713833628,
//	  "data": [{ "b64_json": "..." }]
//	}
type imageResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		B64JSON string `json:"b64_json,omitempty"`
		URL     string `json:"url,omitempty"`
	} `json:"data"`
}

// errorResponse OpenAI 错误结构
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Generate 文生图
func (c *Client) Generate(ctx context.Context, params *genai.GenerateParams) ([]genai.Payload, error) {
	common.WithFields(map[string]interface{}{
		"model":    c.genModel,
		"size":     params.Size,
		"quality":  params.Quality,
		"n":        params.N,
		"endpoint": c.baseURL + generatePath,
	}).Info("Generating image with OpenAI")

	payload := imageRequest{
		Model:      c.genModel,
		Prompt:     params.Prompt,
		Size:       params.Size,
		Quality:    params.Quality,
		N:          params.N,
		Moderation: params.Moderation,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	body, err := c.doRequest(ctx, generatePath, bytes.NewReader(data), "application/json")
	if err != nil {
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}
	return parseImageResponse(body)
}

// Edit 图片编辑；多张图片时以 image[] 字段上传，蒙版仅在调用方提供时发送
func (c *Client) Edit(ctx context.Context, params *genai.EditParams) ([]genai.Payload, error) {
	if len(params.Images) == 0 {
		return nil, common.InvalidParam("image", "At least one image is required")
	}

	common.WithFields(map[string]interface{}{
		"model":          c.editModel,
		"size":           params.Size,
		"quality":        params.Quality,
		"n":              params.N,
		"image_count":    len(params.Images),
		"has_mask":       params.Mask != nil,
		"input_fidelity": params.InputFidelity,
		"endpoint":       c.baseURL + editPath,
	}).Info("Editing image with OpenAI")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	imageField := "image"
	if len(params.Images) > 1 {
		imageField = "image[]"
	}
	for _, img := range params.Images {
		if err := writeFilePart(writer, imageField, img); err != nil {
			return nil, err
		}
	}
	if params.Mask != nil {
		if err := writeFilePart(writer, "mask", *params.Mask); err != nil {
			return nil, err
		}
	}

	fields := [][2]string{
		{"model", c.editModel},
		{"prompt", params.Prompt},
		{"n", strconv.Itoa(params.N)},
		{"size", params.Size},
		{"quality", params.Quality},
	}
	if params.InputFidelity != "" {
		fields = append(fields, [2]string{"input_fidelity", params.InputFidelity})
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", f[0], err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	body, err := c.doRequest(ctx, editPath, &buf, writer.FormDataContentType())
	if err != nil {
		return nil, fmt.Errorf("failed to edit image: %w", err)
	}
	return parseImageResponse(body)
}

// writeFilePart 写入文件字段；接口会校验 MIME 类型，因此不能使用 application/octet-stream
func writeFilePart(writer *multipart.Writer, field string, img genai.ImageFile) error {
	name := filepath.Base(img.Name)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, escapeQuotes(name)))
	header.Set("Content-Type", contentTypeFor(name))

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create form file %s: %w", field, err)
	}
	if _, err := io.Copy(part, img.Content); err != nil {
		return fmt.Errorf("failed to copy %s into request: %w", name, err)
	}
	return nil
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "image/png"
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// doRequest 统一封装 HTTP 请求逻辑，非 2xx 响应转为 ProviderError
func (c *Client) doRequest(ctx context.Context, path string, body io.Reader, contentType string) ([]byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &common.ProviderError{Message: fmt.Sprintf("connection error: %v", err), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &common.ProviderError{Message: fmt.Sprintf("failed to read response body: %v", err), StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		common.WithFields(map[string]interface{}{
			"status_code": resp.StatusCode,
			"url":         url,
			"body":        truncateForLog(string(respBody), 512),
		}).Error("OpenAI API returned non-success status")

		message := fmt.Sprintf("openai api error: status %d", resp.StatusCode)
		var apiErr errorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		return nil, &common.ProviderError{
			Message:    message,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	return respBody, nil
}

func parseImageResponse(body []byte) ([]genai.Payload, error) {
	var resp imageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		common.WithError(err).WithField("body", truncateForLog(string(body), 256)).Error("Failed to parse OpenAI image response")
		return nil, common.MalformedResponse("failed to parse image response: %v", err)
	}

	payloads := make([]genai.Payload, 0, len(resp.Data))
	for _, d := range resp.Data {
		payloads = append(payloads, genai.Payload{B64JSON: d.B64JSON, URL: d.URL})
	}
	return payloads, nil
}

// truncateForLog 截断长字符串用于日志，避免打印过长内容（如 base64）
func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
