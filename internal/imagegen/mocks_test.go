package imagegen

import (
	"context"
	"io"

	"imagegen/internal/genai"
)

// fakeProvider 记录调用参数，返回预设结果
type fakeProvider struct {
	payloads []genai.Payload
	err      error

	generateCalls int
	editCalls     int
	lastGenerate  *genai.GenerateParams
	lastEdit      *genai.EditParams
	imageBodies   []string
	maskBody      string
	closed        bool
}

func (f *fakeProvider) Generate(ctx context.Context, params *genai.GenerateParams) ([]genai.Payload, error) {
	f.generateCalls++
	f.lastGenerate = params
	return f.payloads, f.err
}

func (f *fakeProvider) Edit(ctx context.Context, params *genai.EditParams) ([]genai.Payload, error) {
	f.editCalls++
	f.lastEdit = params
	for _, img := range params.Images {
		data, _ := io.ReadAll(img.Content)
		f.imageBodies = append(f.imageBodies, string(data))
	}
	if params.Mask != nil {
		data, _ := io.ReadAll(params.Mask.Content)
		f.maskBody = string(data)
	}
	return f.payloads, f.err
}

func (f *fakeProvider) Close() error {
	f.closed = true
	return nil
}
