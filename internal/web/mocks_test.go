package web

import (
	"context"
	"encoding/base64"

	"imagegen/internal/genai"
)

type fakeProvider struct {
	payloads []genai.Payload
	err      error

	calls    int
	lastEdit *genai.EditParams
}

func (f *fakeProvider) Generate(ctx context.Context, params *genai.GenerateParams) ([]genai.Payload, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.payloads != nil {
		return f.payloads, nil
	}
	out := make([]genai.Payload, params.N)
	for i := range out {
		out[i] = genai.Payload{B64JSON: base64.StdEncoding.EncodeToString([]byte("png-data"))}
	}
	return out, nil
}

func (f *fakeProvider) Edit(ctx context.Context, params *genai.EditParams) ([]genai.Payload, error) {
	f.calls++
	f.lastEdit = params
	if f.err != nil {
		return nil, f.err
	}
	return []genai.Payload{{B64JSON: base64.StdEncoding.EncodeToString([]byte("edited-data"))}}, nil
}
