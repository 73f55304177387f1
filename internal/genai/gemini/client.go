package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"imagegen/common"
	"imagegen/internal/genai"

	googlegenai "google.golang.org/genai"
)

// 默认请求超时时间（调用 Gemini 接口）
const defaultGenAITimeout = 600 * time.Second

// contentGenerator 是 genai.Models 中本客户端用到的部分，便于测试替换
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*googlegenai.Content, config *googlegenai.GenerateContentConfig) (*googlegenai.GenerateContentResponse, error)
}

// Client Gemini 图片客户端，将内联图片重新编码为 base64，复用统一的解码流程
type Client struct {
	models    contentGenerator
	genModel  string
	editModel string
	timeout   time.Duration
}

// Config Gemini 客户端配置
type Config struct {
	APIKey    string // API Key
	BaseURL   string // 自定义 Base URL，如果为空则使用默认值
	GenModel  string // 文生图模型，例如：gemini-2.5-flash-image
	EditModel string // 图片编辑模型，为空时复用 GenModel
	Timeout   time.Duration
}

// NewGeminiClientFromConfig 从通用配置创建 Gemini 客户端。
// 仅当 common.Config.GenAIProvider=gemini 时使用。
func NewGeminiClientFromConfig(cfg *common.Config) (*Client, error) {
	return NewClient(Config{
		APIKey:    cfg.GenAIAPIKey,
		BaseURL:   cfg.GenAIBaseURL,
		GenModel:  cfg.GenAIGenModelName,
		EditModel: cfg.GenAIEditModelName,
		Timeout:   time.Duration(cfg.GenAITimeoutSeconds) * time.Second,
	})
}

// NewClient 创建新的 Gemini 客户端
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.GenModel == "" {
		return nil, fmt.Errorf("model name is required")
	}

	clientConfig := &googlegenai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: googlegenai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = googlegenai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		}
	}

	client, err := googlegenai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return newClient(client.Models, cfg), nil
}

func newClient(models contentGenerator, cfg Config) *Client {
	editModel := cfg.EditModel
	if editModel == "" {
		editModel = cfg.GenModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGenAITimeout
	}
	return &Client{
		models:    models,
		genModel:  cfg.GenModel,
		editModel: editModel,
		timeout:   timeout,
	}
}

// Close 关闭客户端（genai.Client 不需要显式关闭）
func (c *Client) Close() error {
	return nil
}

// Generate 文生图。Gemini 每次调用只返回一张图片，n 张图片对应 n 次调用
func (c *Client) Generate(ctx context.Context, params *genai.GenerateParams) ([]genai.Payload, error) {
	common.WithFields(map[string]interface{}{
		"model": c.genModel,
		"size":  params.Size,
		"n":     params.N,
	}).Info("Generating image with Gemini")

	parts := []*googlegenai.Part{{Text: params.Prompt}}
	return c.generateN(ctx, c.genModel, parts, params.N)
}

// Edit 图片编辑。Gemini 不支持蒙版，提供时会被忽略
func (c *Client) Edit(ctx context.Context, params *genai.EditParams) ([]genai.Payload, error) {
	if len(params.Images) == 0 {
		return nil, common.InvalidParam("image", "At least one image is required")
	}
	if params.Mask != nil {
		common.Warn("Gemini does not support masks, mask is ignored")
	}

	common.WithFields(map[string]interface{}{
		"model":       c.editModel,
		"image_count": len(params.Images),
		"n":           params.N,
	}).Info("Editing image with Gemini")

	parts := make([]*googlegenai.Part, 0, len(params.Images)+1)
	for _, img := range params.Images {
		data, err := io.ReadAll(img.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to read image %s: %w", img.Name, err)
		}
		parts = append(parts, &googlegenai.Part{
			InlineData: &googlegenai.Blob{Data: data, MIMEType: mimeTypeFor(img.Name)},
		})
	}
	parts = append(parts, &googlegenai.Part{Text: params.Prompt})

	return c.generateN(ctx, c.editModel, parts, params.N)
}

func (c *Client) generateN(ctx context.Context, model string, parts []*googlegenai.Part, n int) ([]genai.Payload, error) {
	if n <= 0 {
		n = 1
	}

	payloads := make([]genai.Payload, 0, n)
	for i := 0; i < n; i++ {
		result, err := c.generateOnce(ctx, model, parts)
		if err != nil {
			common.WithError(err).WithField("model", model).Error("Failed to call Gemini API")
			return nil, &common.ProviderError{Message: err.Error(), Err: err}
		}
		payload, err := extractPayload(result)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, payload)
	}
	return payloads, nil
}

// generateOnce 每次调用单独计算超时，n 张图片不共享同一个超时时间
func (c *Client) generateOnce(ctx context.Context, model string, parts []*googlegenai.Part) (*googlegenai.GenerateContentResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.models.GenerateContent(ctx, model, []*googlegenai.Content{{Parts: parts}}, nil)
}

// extractPayload 取第一个候选中的图片：内联数据编码为 base64，文件 URI 作为 URL 返回
func extractPayload(result *googlegenai.GenerateContentResponse) (genai.Payload, error) {
	if result == nil || len(result.Candidates) == 0 {
		return genai.Payload{}, common.MalformedResponse("no candidates in response")
	}
	candidate := result.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return genai.Payload{}, common.MalformedResponse("no content in candidate")
	}

	for _, part := range candidate.Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return genai.Payload{B64JSON: base64.StdEncoding.EncodeToString(part.InlineData.Data)}, nil
		}
		if part.FileData != nil && part.FileData.FileURI != "" {
			return genai.Payload{URL: part.FileData.FileURI}, nil
		}
	}
	return genai.Payload{}, common.MalformedResponse("no image data found in response")
}

// mimeTypeFor 根据扩展名推断 MIME 类型（不区分大小写）
func mimeTypeFor(name string) string {
	if mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); mt != "" {
		return mt
	}
	return "image/png"
}
