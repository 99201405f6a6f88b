// File: internal/captcha/preprocess_test.go
package captcha

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareRegion_OutputShape(t *testing.T) {
	roi := canvas(14, 30)
	ink(roi, 4, 4, 6, 22)

	input := PrepareRegion(roi)
	require.Len(t, input, InputSize*InputSize)
	for i, v := range input {
		assert.GreaterOrEqual(t, v, float32(0), "index %d", i)
		assert.LessOrEqual(t, v, float32(1), "index %d", i)
	}
}

func TestPrepareRegion_NilAndEmpty(t *testing.T) {
	assert.Nil(t, PrepareRegion(nil))
	assert.Nil(t, PrepareRegion(image.NewGray(image.Rect(0, 0, 0, 10))))
	assert.Nil(t, PrepareRegion(image.NewGray(image.Rect(0, 0, 10, 0))))
}

func TestPrepareRegion_PadsSymmetrically(t *testing.T) {
	// A black column on an otherwise bright crop. Padding with the
	// zero value makes both margins dark, so a centered stroke must
	// stay centered after the resize.
	roi := image.NewGray(image.Rect(0, 0, 11, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 11; x++ {
			roi.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	for y := 0; y < 30; y++ {
		roi.SetGray(5, y, color.Gray{Y: 0})
	}

	input := PrepareRegion(roi)
	require.Len(t, input, InputSize*InputSize)

	row := input[16*InputSize : 17*InputSize]
	var left, right float32
	for x := 0; x < InputSize/2; x++ {
		left += row[x]
		right += row[InputSize-1-x]
	}
	assert.InDelta(t, left, right, 1.5, "padding shifted the stroke off center")
}

func TestPrepareRegion_WiderThanTallNotPadded(t *testing.T) {
	roi := canvas(40, 20)
	input := PrepareRegion(roi)
	require.Len(t, input, InputSize*InputSize)
	// All-white input stays white after resize without padding.
	for _, v := range input {
		assert.InDelta(t, 1.0, v, 1e-6)
	}
}

func TestCropColumns(t *testing.T) {
	img := canvas(100, 40)

	crop := CropColumns(img, 20, 50)
	require.NotNil(t, crop)
	assert.Equal(t, 30, crop.Bounds().Dx())
	assert.Equal(t, 40, crop.Bounds().Dy())
}

func TestCropColumns_Clamped(t *testing.T) {
	img := canvas(100, 40)

	crop := CropColumns(img, -10, 300)
	require.NotNil(t, crop)
	assert.Equal(t, 100, crop.Bounds().Dx())
}

func TestCropColumns_EmptyRange(t *testing.T) {
	img := canvas(100, 40)
	assert.Nil(t, CropColumns(img, 60, 60))
	assert.Nil(t, CropColumns(img, 80, 20))
	assert.Nil(t, CropColumns(img, 150, 200))
}
