package oss

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOSS struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (f *fakeOSS) UploadFile(ctx context.Context, bucket, key string, reader io.Reader, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	f.bucket, f.key, f.contentType, f.body = bucket, key, contentType, body
	return bucket + "/" + key, nil
}

func (f *fakeOSS) UploadFileWithURL(ctx context.Context, bucket, key string, reader io.Reader, contentType string) (string, error) {
	if _, err := f.UploadFile(ctx, bucket, key, reader, contentType); err != nil {
		return "", err
	}
	return ObjectURL("", "us-east-1", bucket, key), nil
}

func TestArtifactMirror_Upload(t *testing.T) {
	fake := &fakeOSS{}
	m := NewArtifactMirror(fake, "my-bucket")
	m.now = func() time.Time { return time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC) }

	url, err := m.Upload(context.Background(), "generated_abc_0.png", []byte("png"))
	require.NoError(t, err)

	assert.Equal(t, "my-bucket", fake.bucket)
	assert.Equal(t, "images/2025-03-07/generated_abc_0.png", fake.key)
	assert.Equal(t, "image/png", fake.contentType)
	assert.Equal(t, []byte("png"), fake.body)
	assert.Equal(t, "https://my-bucket.s3.us-east-1.amazonaws.com/images/2025-03-07/generated_abc_0.png", url)
}

func TestArtifactMirror_UploadError(t *testing.T) {
	m := NewArtifactMirror(&fakeOSS{err: errors.New("access denied")}, "b")
	_, err := m.Upload(context.Background(), "x.png", []byte("x"))
	assert.ErrorContains(t, err, "access denied")
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "https://b.oss-cn-beijing.aliyuncs.com/k.png", ObjectURL("oss-cn-beijing.aliyuncs.com", "cn-beijing", "b", "k.png"))
	assert.Equal(t, "https://b.s3.amazonaws.com/k.png", ObjectURL("", "", "b", "k.png"))
}
