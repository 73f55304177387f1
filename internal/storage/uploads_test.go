package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imagegen/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestUploads_SaveAndCleanup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	u := NewUploads(dir)

	img, err := u.Save("temp", "../cat photo.png", strings.NewReader("image"))
	require.NoError(t, err)
	mask, err := u.Save("mask", "mask.png", strings.NewReader("mask"))
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(img))
	assert.True(t, strings.HasPrefix(filepath.Base(img), "temp_"))
	assert.True(t, strings.HasSuffix(img, "_cat_photo.png"))
	assert.True(t, strings.HasPrefix(filepath.Base(mask), "mask_"))
	assert.Equal(t, []string{img, mask}, u.Paths())

	data, err := os.ReadFile(img)
	require.NoError(t, err)
	assert.Equal(t, "image", string(data))

	u.Cleanup()
	assert.NoFileExists(t, img)
	assert.NoFileExists(t, mask)
	assert.Empty(t, u.Paths())
}

func TestUploads_FailedWriteIsCleanedUp(t *testing.T) {
	dir := t.TempDir()
	u := NewUploads(dir)

	_, err := u.Save("temp", "a.png", failingReader{})
	assert.ErrorIs(t, err, common.ErrStorage)
	require.Len(t, u.Paths(), 1)

	u.Cleanup()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploads_CleanupToleratesMissingFiles(t *testing.T) {
	u := NewUploads(t.TempDir())
	path, err := u.Save("temp", "a.png", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	assert.NotPanics(t, u.Cleanup)
}
