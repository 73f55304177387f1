package tools

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imagegen/internal/genai"
	"imagegen/internal/imagegen"
	"imagegen/internal/storage"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls int
	edit  *genai.EditParams
}

func (f *fakeProvider) Generate(ctx context.Context, params *genai.GenerateParams) ([]genai.Payload, error) {
	f.calls++
	return []genai.Payload{{B64JSON: base64.StdEncoding.EncodeToString([]byte("img"))}}, nil
}

func (f *fakeProvider) Edit(ctx context.Context, params *genai.EditParams) ([]genai.Payload, error) {
	f.calls++
	f.edit = params
	return []genai.Payload{{B64JSON: base64.StdEncoding.EncodeToString([]byte("img"))}}, nil
}

func newTools(t *testing.T) (*imageTools, *fakeProvider, string) {
	t.Helper()
	dir := t.TempDir()
	provider := &fakeProvider{}
	return &imageTools{service: imagegen.NewService(provider, storage.NewWriter(dir))}, provider, dir
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	return mcp.GetTextFromContent(res.Content[0])
}

func TestRegisterImageTools(t *testing.T) {
	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	require.NoError(t, RegisterImageTools(s, imagegen.NewService(&fakeProvider{}, storage.NewWriter(t.TempDir()))))
}

func TestGenerateTool(t *testing.T) {
	tools, provider, dir := newTools(t)

	res, err := tools.generate(context.Background(), call(map[string]any{"prompt": "a red cube", "n": float64(1)}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	out := text(t, res)
	assert.True(t, strings.HasPrefix(out, "Generated 1 image(s):"))
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, dir, filepath.Dir(lines[1]))
	assert.FileExists(t, lines[1])
	assert.Equal(t, 1, provider.calls)
}

func TestGenerateTool_InvalidInput(t *testing.T) {
	tools, provider, _ := newTools(t)

	for _, args := range []map[string]any{
		{},
		{"prompt": "x", "n": float64(11)},
		{"prompt": "x", "quality": "auto"},
	} {
		res, err := tools.generate(context.Background(), call(args))
		require.NoError(t, err)
		assert.True(t, res.IsError, args)
	}
	assert.Equal(t, 0, provider.calls)
}

func TestEditTool(t *testing.T) {
	tools, provider, dir := newTools(t)
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o644))

	res, err := tools.edit(context.Background(), call(map[string]any{
		"prompt":         "combine",
		"images":         []any{a, b},
		"input_fidelity": "low",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	assert.True(t, strings.HasPrefix(text(t, res), "Edited 1 image(s):"))
	require.NotNil(t, provider.edit)
	assert.Len(t, provider.edit.Images, 2)
	assert.Equal(t, "low", provider.edit.InputFidelity)
}

func TestEditTool_Rejections(t *testing.T) {
	tools, provider, dir := newTools(t)
	a := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))

	for name, args := range map[string]map[string]any{
		"missing images":   {"prompt": "x"},
		"mask multi image": {"prompt": "x", "images": []any{a, a}, "mask": a},
		"bad fidelity":     {"prompt": "x", "images": []any{a}, "input_fidelity": "max"},
		"bad extension":    {"prompt": "x", "images": []any{"notes.txt"}},
	} {
		res, err := tools.edit(context.Background(), call(args))
		require.NoError(t, err)
		assert.True(t, res.IsError, name)
	}
	assert.Equal(t, 0, provider.calls)
}
