package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"imagegen/common"
)

// ErrNotFound 文件不存在或文件名不安全
var ErrNotFound = errors.New("file not found")

// Kind 输出文件类别，同时作为文件名前缀
type Kind string

const (
	KindGenerated Kind = "generated"
	KindEdited    Kind = "edited"
)

// Artifact 已保存的图片，创建后不再修改
type Artifact struct {
	ID        string // 本次调用的唯一标识
	Name      string // 输出目录下的文件名
	Path      string // 本地路径
	RemoteURL string // 镜像上传后的访问地址，未配置镜像时为空
}

// Mirror 将保存的图片同步到远端存储，返回访问地址
type Mirror interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// Writer 将解码后的图片写入输出目录
type Writer struct {
	dir    string
	mirror Mirror
	newID  func() string
}

// Option Writer 可选配置
type Option func(*Writer)

// WithMirror 保存后同步上传到远端存储
func WithMirror(m Mirror) Option {
	return func(w *Writer) {
		w.mirror = m
	}
}

// NewWriter 创建 Writer，输出目录在首次写入时创建
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{dir: dir, newID: newID}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir 输出目录
func (w *Writer) Dir() string {
	return w.dir
}

// Save 保存为 {kind}_{id}_{index}.png，index 从 0 开始，同一次调用共用一个 id
func (w *Writer) Save(ctx context.Context, kind Kind, images [][]byte) ([]Artifact, error) {
	id := w.newID()
	names := make([]string, len(images))
	for i := range images {
		names[i] = fmt.Sprintf("%s_%s_%d.png", kind, id, i)
	}
	return w.write(ctx, id, names, images)
}

// SaveNamed 按给定前缀保存：单张为 {base}.png，多张为 {base}_{n}.png（n 从 1 开始）。
// 同名文件会被覆盖。
func (w *Writer) SaveNamed(ctx context.Context, base string, images [][]byte) ([]Artifact, error) {
	names := make([]string, len(images))
	for i := range images {
		if len(images) > 1 {
			names[i] = fmt.Sprintf("%s_%d.png", base, i+1)
		} else {
			names[i] = base + ".png"
		}
	}
	return w.write(ctx, w.newID(), names, images)
}

func (w *Writer) write(ctx context.Context, id string, names []string, images [][]byte) ([]Artifact, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, &common.StorageError{Op: "create directory", Path: w.dir, Err: err}
	}

	artifacts := make([]Artifact, 0, len(images))
	written := make([]string, 0, len(images))
	for i, data := range images {
		path := filepath.Join(w.dir, names[i])
		if err := writeFileAtomic(path, data); err != nil {
			removeWritten(written)
			return nil, err
		}
		written = append(written, path)

		artifact := Artifact{ID: id, Name: names[i], Path: path}
		if w.mirror != nil {
			url, err := w.mirror.Upload(ctx, names[i], data)
			if err != nil {
				// 镜像失败只记录日志，不影响本地结果
				common.WithError(&common.StorageError{Op: "mirror", Path: names[i], Err: err}).Warn("Failed to mirror image")
			} else {
				artifact.RemoteURL = url
			}
		}

		common.WithFields(map[string]interface{}{
			"file": path,
			"size": len(data),
		}).Info("Image saved")
		artifacts = append(artifacts, artifact)
	}
	return artifacts, nil
}

// removeWritten 删除本次调用已写入的文件，一次保存要么全部成功要么不留文件
func removeWritten(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			common.WithError(err).WithField("file", path).Warn("Failed to remove partially saved image")
		}
	}
}

// writeFileAtomic 先写临时文件再重命名，避免读到写了一半的图片
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &common.StorageError{Op: "create temp file in", Path: dir, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &common.StorageError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &common.StorageError{Op: "close", Path: tmpName, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return &common.StorageError{Op: "chmod", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &common.StorageError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// Resolve 将下载请求中的文件名解析为输出目录下的路径。
// 文件名会先经过 SecureFilename，结果不在输出目录内或文件不存在时返回 ErrNotFound。
func (w *Writer) Resolve(name string) (string, error) {
	safe := SecureFilename(name)
	if safe == "" {
		return "", ErrNotFound
	}

	path := filepath.Join(w.dir, safe)
	rel, err := filepath.Rel(w.dir, path)
	if err != nil || rel != safe {
		return "", ErrNotFound
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return path, nil
}
