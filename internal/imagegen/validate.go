package imagegen

import (
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"imagegen/common"
)

// 默认参数，与 CLI 和 Web 表单的默认值保持一致
const (
	DefaultSize       = "1024x1024"
	DefaultQuality    = "high"
	DefaultModeration = "low"
	DefaultCount      = 1

	// SizeAuto 仅 Web 生成接口接受，映射为 DefaultSize
	SizeAuto = "auto"

	MinCount = 1
	MaxCount = 10
)

var (
	// Sizes 生成与编辑支持的尺寸（方形、竖版、横版）
	Sizes = []string{"1024x1024", "1024x1536", "1536x1024"}

	// GenerateQualities 文生图不允许 auto
	GenerateQualities = []string{"high", "medium", "low", "standard"}
	// EditQualities 图片编辑允许 auto
	EditQualities = []string{"high", "medium", "low", "auto"}

	Moderations = []string{"auto", "low"}

	// AllowedExtensions 源图与蒙版允许的扩展名（不区分大小写）
	AllowedExtensions = []string{"png", "jpg", "jpeg", "gif"}
)

// Fidelity 输入保真度，空值表示不发送
type Fidelity string

const (
	FidelityUnset Fidelity = ""
	FidelityHigh  Fidelity = "high"
	FidelityLow   Fidelity = "low"
)

// Recognized 是否为接口认可的取值
func (f Fidelity) Recognized() bool {
	return f == FidelityHigh || f == FidelityLow
}

// ParseFidelity 严格解析保真度；空字符串表示未设置
func ParseFidelity(s string) (Fidelity, error) {
	f := Fidelity(strings.ToLower(strings.TrimSpace(s)))
	if f == FidelityUnset || f.Recognized() {
		return f, nil
	}
	return FidelityUnset, common.InvalidParam("input_fidelity", "Input fidelity must be one of: high, low")
}

// GenerateInput 未校验的文生图参数
type GenerateInput struct {
	Prompt     string
	Size       string
	Quality    string
	Count      int
	Moderation string
}

// EditInput 未校验的图片编辑参数，Images / Mask 为本地文件路径
type EditInput struct {
	GenerateInput
	Images   []string
	Mask     string
	Fidelity Fidelity
}

// GenerationRequest 校验通过的文生图请求，每次调用重新构建
type GenerationRequest struct {
	Prompt     string
	Size       string
	Quality    string
	Count      int
	Moderation string
}

// EditRequest 校验通过的图片编辑请求
type EditRequest struct {
	GenerationRequest
	Images   []string
	Mask     string // 空字符串表示没有蒙版
	Fidelity Fidelity
}

// ValidateGenerate 校验文生图参数，失败时返回 InvalidParameter
func ValidateGenerate(in GenerateInput) (*GenerationRequest, error) {
	return validateCommon(in, GenerateQualities)
}

// ValidateEdit 校验图片编辑参数。
// 多图加蒙版不在这里拒绝，由 Builder 丢弃蒙版并给出警告。
func ValidateEdit(in EditInput) (*EditRequest, error) {
	req, err := validateCommon(in.GenerateInput, EditQualities)
	if err != nil {
		return nil, err
	}

	if len(in.Images) == 0 {
		return nil, common.InvalidParam("image", "Image file is required")
	}
	for _, img := range in.Images {
		if strings.TrimSpace(img) == "" {
			return nil, common.InvalidParam("image", "No image selected")
		}
		if !AllowedFile(img) {
			return nil, common.InvalidParam("image", "Invalid file type. Allowed: PNG, JPG, JPEG, GIF")
		}
	}
	if in.Mask != "" && !AllowedFile(in.Mask) {
		return nil, common.InvalidParam("mask", "Invalid mask file type. Allowed: PNG, JPG, JPEG, GIF")
	}
	if in.Fidelity != FidelityUnset && !in.Fidelity.Recognized() {
		return nil, common.InvalidParam("input_fidelity", "Input fidelity must be one of: high, low")
	}

	return &EditRequest{
		GenerationRequest: *req,
		Images:            append([]string(nil), in.Images...),
		Mask:              in.Mask,
		Fidelity:          in.Fidelity,
	}, nil
}

// CheckMaskUsage 入口层的前置检查：蒙版只能配合单张源图
func CheckMaskUsage(imageCount int, mask string) error {
	if mask != "" && imageCount > 1 {
		return common.InvalidParam("mask", "Mask can only be used with a single image")
	}
	return nil
}

// NormalizeSize 将 Web 生成接口的 auto 映射为默认尺寸
func NormalizeSize(size string) string {
	if size == SizeAuto {
		return DefaultSize
	}
	return size
}

// ParseCount 解析字符串形式的数量，非数字单独报错
func ParseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultCount, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, common.InvalidParam("n", "Number of images must be a valid integer")
	}
	return n, nil
}

// AllowedFile 扩展名白名单检查
func AllowedFile(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return ext != "" && slices.Contains(AllowedExtensions, ext)
}

func validateCommon(in GenerateInput, qualities []string) (*GenerationRequest, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return nil, common.InvalidParam("prompt", "Prompt is required")
	}

	size := orDefault(in.Size, DefaultSize)
	if !slices.Contains(Sizes, size) {
		return nil, common.InvalidParam("size", "Size must be one of: %s", strings.Join(Sizes, ", "))
	}

	quality := orDefault(in.Quality, DefaultQuality)
	if !slices.Contains(qualities, quality) {
		return nil, common.InvalidParam("quality", "Quality must be one of: %s", strings.Join(qualities, ", "))
	}

	if in.Count < MinCount || in.Count > MaxCount {
		return nil, common.InvalidParam("n", "Number of images must be between %d and %d", MinCount, MaxCount)
	}

	moderation := orDefault(in.Moderation, DefaultModeration)
	if !slices.Contains(Moderations, moderation) {
		return nil, common.InvalidParam("moderation", "Moderation must be one of: %s", strings.Join(Moderations, ", "))
	}

	return &GenerationRequest{
		Prompt:     prompt,
		Size:       size,
		Quality:    quality,
		Count:      in.Count,
		Moderation: moderation,
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
