package imagegen

import (
	"imagegen/internal/genai"
)

// WarnMaskDropped 多图编辑时丢弃蒙版的提示
const WarnMaskDropped = "Masks are not supported with multiple images, ignoring mask"

// EditCall 编辑调用的参数。Params 中的 Images / Mask 由调用方打开文件后填入
type EditCall struct {
	Params     genai.EditParams
	ImagePaths []string
	MaskPath   string // 空字符串表示不发送蒙版
	Warnings   []string
}

// HasMask 是否会向接口发送蒙版
func (c *EditCall) HasMask() bool {
	return c.MaskPath != ""
}

// BuildGenerate 将文生图请求转换为接口参数
func BuildGenerate(req *GenerationRequest) *genai.GenerateParams {
	return &genai.GenerateParams{
		Prompt:     req.Prompt,
		Size:       req.Size,
		Quality:    req.Quality,
		N:          req.Count,
		Moderation: req.Moderation,
	}
}

// BuildEdit 将编辑请求转换为接口参数。
// 多图时蒙版被丢弃并记录一次警告；保真度仅在 high / low 时发送。
func BuildEdit(req *EditRequest) *EditCall {
	call := &EditCall{
		Params: genai.EditParams{
			Prompt:  req.Prompt,
			Size:    req.Size,
			Quality: req.Quality,
			N:       req.Count,
		},
		ImagePaths: append([]string(nil), req.Images...),
	}

	if req.Mask != "" {
		if len(req.Images) == 1 {
			call.MaskPath = req.Mask
		} else {
			call.Warnings = append(call.Warnings, WarnMaskDropped)
		}
	}

	if req.Fidelity.Recognized() {
		call.Params.InputFidelity = string(req.Fidelity)
	}

	return call
}
