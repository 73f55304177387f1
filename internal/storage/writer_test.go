package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"imagegen/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	w := NewWriter(dir)

	artifacts, err := w.Save(context.Background(), KindGenerated, [][]byte{[]byte("one"), []byte("two")})
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	pattern := regexp.MustCompile(`^generated_[0-9a-f]{32}_\d\.png$`)
	for i, a := range artifacts {
		assert.Regexp(t, pattern, a.Name)
		assert.Equal(t, filepath.Join(dir, a.Name), a.Path)
		assert.Equal(t, artifacts[0].ID, a.ID)
		assert.Empty(t, a.RemoteURL)
		assert.Contains(t, a.Name, "_"+string(rune('0'+i))+".png")
	}

	data, err := os.ReadFile(artifacts[1].Path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	// 不应残留临时文件
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWriter_SaveUniqueAcrossCalls(t *testing.T) {
	w := NewWriter(t.TempDir())
	first, err := w.Save(context.Background(), KindEdited, [][]byte{[]byte("a")})
	require.NoError(t, err)
	second, err := w.Save(context.Background(), KindEdited, [][]byte{[]byte("b")})
	require.NoError(t, err)
	assert.NotEqual(t, first[0].Name, second[0].Name)
}

func TestWriter_SaveNamed(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	single, err := w.SaveNamed(context.Background(), "output_a_red_cube", [][]byte{[]byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "output_a_red_cube.png", single[0].Name)

	multi, err := w.SaveNamed(context.Background(), "edited_stars", [][]byte{[]byte("1"), []byte("2")})
	require.NoError(t, err)
	assert.Equal(t, "edited_stars_1.png", multi[0].Name)
	assert.Equal(t, "edited_stars_2.png", multi[1].Name)

	// 同名覆盖
	_, err = w.SaveNamed(context.Background(), "output_a_red_cube", [][]byte{[]byte("y")})
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "output_a_red_cube.png"))
	require.NoError(t, err)
	assert.Equal(t, "y", string(data))
}

func TestWriter_Mirror(t *testing.T) {
	t.Run("records remote url", func(t *testing.T) {
		mirror := &fakeMirror{}
		w := NewWriter(t.TempDir(), WithMirror(mirror))
		artifacts, err := w.Save(context.Background(), KindGenerated, [][]byte{[]byte("img")})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/images/"+artifacts[0].Name, artifacts[0].RemoteURL)
		assert.Equal(t, []byte("img"), mirror.uploaded[artifacts[0].Name])
	})

	t.Run("failure keeps local file", func(t *testing.T) {
		w := NewWriter(t.TempDir(), WithMirror(&fakeMirror{fail: true}))
		artifacts, err := w.Save(context.Background(), KindGenerated, [][]byte{[]byte("img")})
		require.NoError(t, err)
		assert.Empty(t, artifacts[0].RemoteURL)
		assert.FileExists(t, artifacts[0].Path)
	})
}

func TestWriter_SaveFailsOnUnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	w := NewWriter(filepath.Join(file, "outputs"))
	_, err := w.Save(context.Background(), KindGenerated, [][]byte{[]byte("x")})
	assert.ErrorIs(t, err, common.ErrStorage)
}

func TestWriter_FailedSaveLeavesNoFiles(t *testing.T) {
	dir := t.TempDir()
	// 第二张图片的目标位置被目录占用，重命名失败
	require.NoError(t, os.Mkdir(filepath.Join(dir, "x_2.png"), 0o755))

	w := NewWriter(dir)
	_, err := w.SaveNamed(context.Background(), "x", [][]byte{[]byte("a"), []byte("b")})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrStorage)

	assert.NoFileExists(t, filepath.Join(dir, "x_1.png"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "x_2.png", entries[0].Name())
	assert.True(t, entries[0].IsDir())
}

func TestWriter_Resolve(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "outputs")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "generated_x_0.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.txt"), []byte("secret"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "subdir"), 0o755))

	w := NewWriter(dir)

	path, err := w.Resolve("generated_x_0.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "generated_x_0.png"), path)

	for _, name := range []string{"../secret.txt", "..%2Fsecret.txt", "..", "", "missing.png", "subdir"} {
		_, err := w.Resolve(name)
		assert.ErrorIs(t, err, ErrNotFound, name)
	}
}
