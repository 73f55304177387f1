package imagegen

import (
	"context"
	"fmt"
	"io"
	"os"

	"imagegen/common"
	"imagegen/internal/genai"
	"imagegen/internal/genai/gemini"
	"imagegen/internal/genai/openai"
	"imagegen/internal/oss"
	"imagegen/internal/storage"
)

// Service 组合提供方客户端与存储：调用接口、解码、保存
type Service struct {
	provider genai.ImageIface
	writer   *storage.Writer
}

// Output 结果文件命名方式；Base 为空时按 {kind}_{id}_{index}.png 命名
type Output struct {
	Base string
}

// Result 一次调用的结果
type Result struct {
	Artifacts []storage.Artifact
	Warnings  []string
	HadMask   bool // 是否向接口发送了蒙版
}

// NewService 创建 Service
func NewService(provider genai.ImageIface, writer *storage.Writer) *Service {
	return &Service{provider: provider, writer: writer}
}

// NewServiceFromConfig 根据配置选择提供方，并按需启用 OSS 镜像
func NewServiceFromConfig(cfg *common.Config) (*Service, error) {
	provider, err := NewProviderFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	var opts []storage.Option
	mirror, err := oss.NewArtifactMirrorFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS mirror: %w", err)
	}
	if mirror != nil {
		common.WithField("bucket", cfg.OSSBucket).Info("OSS mirror enabled")
		opts = append(opts, storage.WithMirror(mirror))
	}

	return NewService(provider, storage.NewWriter(cfg.OutputDir, opts...)), nil
}

// NewProviderFromConfig 根据 GENAI_PROVIDER 创建提供方客户端
func NewProviderFromConfig(cfg *common.Config) (genai.ImageIface, error) {
	switch cfg.GenAIProvider {
	case "openai":
		return openai.NewOpenAIClientFromConfig(cfg)
	case "gemini":
		return gemini.NewGeminiClientFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported GENAI_PROVIDER: %s", cfg.GenAIProvider)
	}
}

// Writer 输出存储
func (s *Service) Writer() *storage.Writer {
	return s.writer
}

// Close 关闭提供方客户端
func (s *Service) Close() error {
	if c, ok := s.provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Generate 文生图并保存
func (s *Service) Generate(ctx context.Context, req *GenerationRequest, out Output) (*Result, error) {
	payloads, err := s.provider.Generate(ctx, BuildGenerate(req))
	if err != nil {
		return nil, err
	}

	artifacts, err := s.save(ctx, storage.KindGenerated, payloads, out)
	if err != nil {
		return nil, err
	}
	return &Result{Artifacts: artifacts}, nil
}

// Edit 图片编辑并保存。打开的源图和蒙版在所有退出路径上关闭
func (s *Service) Edit(ctx context.Context, req *EditRequest, out Output) (*Result, error) {
	call := BuildEdit(req)
	for _, w := range call.Warnings {
		common.Warn(w)
	}

	var files []*os.File
	defer func() {
		for _, f := range files {
			if err := f.Close(); err != nil {
				common.WithError(err).WithField("file", f.Name()).Warn("Failed to close input file")
			}
		}
	}()

	open := func(path string) (genai.ImageFile, error) {
		f, err := os.Open(path)
		if err != nil {
			return genai.ImageFile{}, common.InvalidParam("image", "Cannot open %s: %v", path, err)
		}
		files = append(files, f)
		return genai.ImageFile{Name: path, Content: f}, nil
	}

	for _, path := range call.ImagePaths {
		img, err := open(path)
		if err != nil {
			return nil, err
		}
		call.Params.Images = append(call.Params.Images, img)
	}
	if call.HasMask() {
		mask, err := open(call.MaskPath)
		if err != nil {
			return nil, err
		}
		call.Params.Mask = &mask
	}

	payloads, err := s.provider.Edit(ctx, &call.Params)
	if err != nil {
		return nil, err
	}

	artifacts, err := s.save(ctx, storage.KindEdited, payloads, out)
	if err != nil {
		return nil, err
	}
	return &Result{Artifacts: artifacts, Warnings: call.Warnings, HadMask: call.HasMask()}, nil
}

func (s *Service) save(ctx context.Context, kind storage.Kind, payloads []genai.Payload, out Output) ([]storage.Artifact, error) {
	images, err := DecodePayloads(payloads)
	if err != nil {
		common.WithError(err).Error("Failed to decode provider response")
		return nil, err
	}
	if out.Base != "" {
		return s.writer.SaveNamed(ctx, out.Base, images)
	}
	return s.writer.Save(ctx, kind, images)
}
