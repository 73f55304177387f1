package imagegen

import (
	"errors"
	"testing"

	"imagegen/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() GenerateInput {
	return GenerateInput{Prompt: "a red cube", Size: "1024x1024", Quality: "high", Count: 1, Moderation: "low"}
}

func TestValidateGenerate_AcceptsAllLegalCombinations(t *testing.T) {
	for _, size := range Sizes {
		for _, quality := range GenerateQualities {
			for _, count := range []int{MinCount, 5, MaxCount} {
				in := GenerateInput{Prompt: "p", Size: size, Quality: quality, Count: count}
				req, err := ValidateGenerate(in)
				require.NoError(t, err, "%s/%s/%d", size, quality, count)

				params := BuildGenerate(req)
				assert.Equal(t, size, params.Size)
				assert.Equal(t, quality, params.Quality)
				assert.Equal(t, count, params.N)
				assert.Equal(t, DefaultModeration, params.Moderation)
			}
		}
	}
}

func TestValidateGenerate_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		in    func(*GenerateInput)
		field string
		msg   string
	}{
		{"empty prompt", func(in *GenerateInput) { in.Prompt = "" }, "prompt", "Prompt is required"},
		{"blank prompt", func(in *GenerateInput) { in.Prompt = "  \t\n" }, "prompt", "Prompt is required"},
		{"unknown size", func(in *GenerateInput) { in.Size = "512x512" }, "size", "Size must be one of: 1024x1024, 1024x1536, 1536x1024"},
		{"auto size outside web", func(in *GenerateInput) { in.Size = "auto" }, "size", ""},
		{"auto quality", func(in *GenerateInput) { in.Quality = "auto" }, "quality", "Quality must be one of: high, medium, low, standard"},
		{"count zero", func(in *GenerateInput) { in.Count = 0 }, "n", "Number of images must be between 1 and 10"},
		{"count eleven", func(in *GenerateInput) { in.Count = 11 }, "n", "Number of images must be between 1 and 10"},
		{"negative count", func(in *GenerateInput) { in.Count = -1 }, "n", ""},
		{"bad moderation", func(in *GenerateInput) { in.Moderation = "high" }, "moderation", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.in(&in)
			req, err := ValidateGenerate(in)
			assert.Nil(t, req)
			require.ErrorIs(t, err, common.ErrInvalidParameter)

			var pe *common.ParamError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.field, pe.Field)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, pe.Message)
			}
		})
	}
}

func TestValidateGenerate_DefaultsAndTrim(t *testing.T) {
	req, err := ValidateGenerate(GenerateInput{Prompt: "  hello ", Count: 1})
	require.NoError(t, err)
	assert.Equal(t, &GenerationRequest{
		Prompt: "hello", Size: DefaultSize, Quality: DefaultQuality, Count: 1, Moderation: DefaultModeration,
	}, req)
}

func TestValidateEdit(t *testing.T) {
	base := func() EditInput {
		in := validInput()
		return EditInput{GenerateInput: in, Images: []string{"photo.PNG"}}
	}

	t.Run("accepts auto quality and all extensions", func(t *testing.T) {
		for _, name := range []string{"a.png", "b.JPG", "c.jpeg", "d.Gif"} {
			in := base()
			in.Quality = "auto"
			in.Images = []string{name}
			in.Mask = "mask.png"
			in.Fidelity = FidelityHigh
			req, err := ValidateEdit(in)
			require.NoError(t, err, name)
			assert.Equal(t, "auto", req.Quality)
			assert.Equal(t, "mask.png", req.Mask)
		}
	})

	t.Run("standard quality is generation only", func(t *testing.T) {
		in := base()
		in.Quality = "standard"
		_, err := ValidateEdit(in)
		assert.ErrorIs(t, err, common.ErrInvalidParameter)
	})

	t.Run("rejections", func(t *testing.T) {
		cases := map[string]func(*EditInput){
			"no images":     func(in *EditInput) { in.Images = nil },
			"empty name":    func(in *EditInput) { in.Images = []string{""} },
			"bad extension": func(in *EditInput) { in.Images = []string{"photo.webp"} },
			"no extension":  func(in *EditInput) { in.Images = []string{"photo"} },
			"bad mask":      func(in *EditInput) { in.Mask = "mask.bmp" },
			"bad fidelity":  func(in *EditInput) { in.Fidelity = "medium" },
		}
		for name, mutate := range cases {
			in := base()
			mutate(&in)
			_, err := ValidateEdit(in)
			assert.ErrorIs(t, err, common.ErrInvalidParameter, name)
		}
	})

	t.Run("error messages", func(t *testing.T) {
		in := base()
		in.Images = nil
		_, err := ValidateEdit(in)
		assert.EqualError(t, err, "Image file is required")

		in = base()
		in.Images = []string{"x.txt"}
		_, err = ValidateEdit(in)
		assert.EqualError(t, err, "Invalid file type. Allowed: PNG, JPG, JPEG, GIF")

		in = base()
		in.Mask = "m.txt"
		_, err = ValidateEdit(in)
		assert.EqualError(t, err, "Invalid mask file type. Allowed: PNG, JPG, JPEG, GIF")
	})

	t.Run("mask with multiple images passes validation", func(t *testing.T) {
		in := base()
		in.Images = []string{"a.png", "b.png"}
		in.Mask = "m.png"
		_, err := ValidateEdit(in)
		assert.NoError(t, err)
	})
}

func TestCheckMaskUsage(t *testing.T) {
	assert.NoError(t, CheckMaskUsage(1, "m.png"))
	assert.NoError(t, CheckMaskUsage(3, ""))
	assert.ErrorIs(t, CheckMaskUsage(2, "m.png"), common.ErrInvalidParameter)
}

func TestParseCount(t *testing.T) {
	n, err := ParseCount(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = ParseCount("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCount, n)

	_, err = ParseCount("three")
	assert.ErrorIs(t, err, common.ErrInvalidParameter)
	assert.EqualError(t, err, "Number of images must be a valid integer")

	// 超出范围交给 ValidateGenerate 处理
	n, err = ParseCount("11")
	require.NoError(t, err)
	assert.Equal(t, 11, n)
}

func TestParseFidelity(t *testing.T) {
	f, err := ParseFidelity("HIGH")
	require.NoError(t, err)
	assert.Equal(t, FidelityHigh, f)

	f, err = ParseFidelity("")
	require.NoError(t, err)
	assert.Equal(t, FidelityUnset, f)

	_, err = ParseFidelity("max")
	assert.ErrorIs(t, err, common.ErrInvalidParameter)
}

func TestNormalizeSize(t *testing.T) {
	assert.Equal(t, DefaultSize, NormalizeSize("auto"))
	assert.Equal(t, "1536x1024", NormalizeSize("1536x1024"))
}
