package storage

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
	unsafePromptChars   = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// 提示词前缀最多保留的字符数
const promptPrefixLen = 40

// SecureFilename 去掉目录部分和不安全字符，结果只包含 [A-Za-z0-9_.-]。
// 可能返回空字符串，调用方需要自行处理。
func SecureFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// SanitizePrompt 把提示词转换为可用作文件名的前缀
func SanitizePrompt(prompt string) string {
	s := unsafePromptChars.ReplaceAllString(prompt, "_")
	if len(s) > promptPrefixLen {
		s = s[:promptPrefixLen]
	}
	return s
}

// PromptFileBase CLI 输出文件名（不含序号和扩展名），例如 output_a_red_cube
func PromptFileBase(prefix, prompt string) string {
	return prefix + "_" + SanitizePrompt(prompt)
}

// newID 生成不带连字符的 uuid
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
