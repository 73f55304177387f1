package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"imagegen/common"
)

// Uploads 单次请求的上传文件作用域，Cleanup 删除本作用域保存的所有文件
type Uploads struct {
	dir   string
	paths []string
}

// NewUploads 创建上传作用域
func NewUploads(dir string) *Uploads {
	return &Uploads{dir: dir}
}

// Save 将上传内容保存为 {prefix}_{id}_{name}，返回本地路径
func (u *Uploads) Save(prefix, name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return "", &common.StorageError{Op: "create directory", Path: u.dir, Err: err}
	}

	safe := SecureFilename(name)
	if safe == "" {
		safe = "upload"
	}
	path := filepath.Join(u.dir, fmt.Sprintf("%s_%s_%s", prefix, newID(), safe))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return "", &common.StorageError{Op: "create", Path: path, Err: err}
	}
	// 先登记，写入失败时同样会被清理
	u.paths = append(u.paths, path)

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", &common.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &common.StorageError{Op: "close", Path: path, Err: err}
	}
	return path, nil
}

// Paths 已保存的文件
func (u *Uploads) Paths() []string {
	return append([]string(nil), u.paths...)
}

// Cleanup 尽力删除所有上传文件，失败只记录日志
func (u *Uploads) Cleanup() {
	for _, path := range u.paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			common.WithError(&common.StorageError{Op: "remove", Path: path, Err: err}).Warn("Failed to clean up upload")
		}
	}
	u.paths = nil
}
