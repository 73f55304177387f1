package oss

import (
	"context"
	"io"
)

// OSSIface 对象存储客户端接口
type OSSIface interface {
	// UploadFile 上传文件，返回 bucket/key 形式的路径
	UploadFile(ctx context.Context, bucket, key string, reader io.Reader, contentType string) (string, error)

	// UploadFileWithURL 上传文件并返回对象的公开访问 URL
	UploadFileWithURL(ctx context.Context, bucket, key string, reader io.Reader, contentType string) (string, error)
}
