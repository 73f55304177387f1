package genai

import (
	"context"
	"io"
)

// ImageIface 图片提供方接口，生成与编辑均为同步调用。
// 调用不保证幂等：重试会再次计费，且返回的图片不同。
type ImageIface interface {
	Generate(ctx context.Context, params *GenerateParams) ([]Payload, error)
	Edit(ctx context.Context, params *EditParams) ([]Payload, error)
}

// Payload 单张图片的返回内容，B64JSON 与 URL 二选一
type Payload struct {
	B64JSON string
	URL     string
}

// ImageFile 作为输入上传的图片（源图或蒙版）
type ImageFile struct {
	Name    string // 文件名，用于推断 MIME 类型
	Content io.Reader
}

// GenerateParams 文生图调用参数
type GenerateParams struct {
	Prompt     string
	Size       string
	Quality    string
	N          int
	Moderation string
}

// EditParams 图片编辑调用参数
type EditParams struct {
	Prompt  string
	Size    string
	Quality string
	N       int
	Images  []ImageFile

	// 可选字段：nil / 空字符串表示不发送
	Mask          *ImageFile
	InputFidelity string
}
