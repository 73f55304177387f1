package storage

import (
	"context"
	"errors"
)

type fakeMirror struct {
	uploaded map[string][]byte
	fail     bool
}

func (m *fakeMirror) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if m.fail {
		return "", errors.New("bucket unavailable")
	}
	if m.uploaded == nil {
		m.uploaded = map[string][]byte{}
	}
	m.uploaded[name] = data
	return "https://cdn.example.com/images/" + name, nil
}
