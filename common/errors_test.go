package common

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	t.Run("param error names the field", func(t *testing.T) {
		err := InvalidParam("size", "Size must be one of: %v", []string{"1024x1024"})
		assert.ErrorIs(t, err, ErrInvalidParameter)
		assert.NotErrorIs(t, err, ErrProvider)

		var pe *ParamError
		assert.True(t, errors.As(err, &pe))
		assert.Equal(t, "size", pe.Field)
		assert.Equal(t, "Size must be one of: [1024x1024]", err.Error())
	})

	t.Run("provider error survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("failed to edit image: %w", &ProviderError{Message: "rate limited", StatusCode: 429})
		assert.ErrorIs(t, err, ErrProvider)
		assert.Contains(t, err.Error(), "rate limited (status 429)")
	})

	t.Run("malformed response", func(t *testing.T) {
		err := MalformedResponse("image %d has no inline data", 0)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("storage error unwraps cause", func(t *testing.T) {
		err := &StorageError{Op: "write", Path: "outputs/x.png", Err: os.ErrPermission}
		assert.ErrorIs(t, err, ErrStorage)
		assert.ErrorIs(t, err, os.ErrPermission)
	})
}
