package oss

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"imagegen/common"
)

// ArtifactMirror 将保存到本地的图片同步到 bucket，key 为 images/yyyy-mm-dd/<文件名>
type ArtifactMirror struct {
	client OSSIface
	bucket string
	now    func() time.Time
}

// NewArtifactMirror 创建镜像上传器
func NewArtifactMirror(client OSSIface, bucket string) *ArtifactMirror {
	return &ArtifactMirror{client: client, bucket: bucket, now: time.Now}
}

// NewArtifactMirrorFromConfig 从配置创建镜像上传器，未配置 bucket 时返回 nil
func NewArtifactMirrorFromConfig(cfg *common.Config) (*ArtifactMirror, error) {
	if !cfg.OSSEnabled() {
		return nil, nil
	}
	client, err := NewS3Client(S3Config{
		Endpoint:  cfg.OSSEndpoint,
		Region:    cfg.OSSRegion,
		AccessKey: cfg.OSSAccessKey,
		SecretKey: cfg.OSSSecretKey,
	})
	if err != nil {
		return nil, err
	}
	return NewArtifactMirror(client, cfg.OSSBucket), nil
}

// Upload 上传 PNG 图片，返回访问 URL
func (m *ArtifactMirror) Upload(ctx context.Context, name string, data []byte) (string, error) {
	key := ObjectKey(m.now(), name)
	url, err := m.client.UploadFileWithURL(ctx, m.bucket, key, bytes.NewReader(data), "image/png")
	if err != nil {
		return "", fmt.Errorf("failed to mirror %s: %w", name, err)
	}
	return url, nil
}

// ObjectKey 生成对象 key：images/yyyy-mm-dd/<name>
func ObjectKey(t time.Time, name string) string {
	return fmt.Sprintf("images/%s/%s", t.Format("2006-01-02"), name)
}
