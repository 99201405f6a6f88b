// File: internal/captcha/segment_test.go
package captcha

import (
	"image"
	"image/color"
	"sort"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obspull/obspull-cli/internal/config"
)

func testCaptchaConfig() config.CaptchaConfig {
	return config.CaptchaConfig{
		MinBlobHeight:     18,
		OperatorMaxHeight: 22,
		OperatorCenterTol: 25,
		OperatorAspectMin: 0.7,
		OperatorAspectMax: 1.4,
		SplitWidth:        28,
		TripleSplitWidth:  45,
		MaxDigits:         3,
		CropPadding:       3,
	}
}

// canvas returns a white raster of the given size.
func canvas(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

// ink paints a solid black rectangle. The erosion pass shaves one
// pixel off each dimension, which the expectations below account for.
func ink(img *image.Gray, x, y, w, h int) {
	for yy := y; yy < y+h; yy++ {
		for xx := x; xx < x+w; xx++ {
			img.SetGray(xx, yy, color.Gray{Y: 0})
		}
	}
}

func TestSegment_TwoDigits(t *testing.T) {
	img := canvas(160, 50)
	ink(img, 10, 8, 16, 32)
	ink(img, 120, 8, 16, 32)

	boxes := NewSegmenter(testCaptchaConfig()).Segment(img)
	require.Len(t, boxes, 2)
	assert.Less(t, boxes[0].Min.X, boxes[1].Min.X)
	for _, b := range boxes {
		assert.True(t, b.In(img.Bounds()), "box %v outside image", b)
	}
}

func TestSegment_BlankImage(t *testing.T) {
	boxes := NewSegmenter(testCaptchaConfig()).Segment(canvas(120, 40))
	assert.Empty(t, boxes)
}

func TestSegment_NilImage(t *testing.T) {
	assert.Empty(t, NewSegmenter(testCaptchaConfig()).Segment(nil))
}

func TestSegment_NoiseFiltered(t *testing.T) {
	img := canvas(120, 50)
	// Shorter than MinBlobHeight after erosion.
	ink(img, 30, 10, 10, 10)

	boxes := NewSegmenter(testCaptchaConfig()).Segment(img)
	assert.Empty(t, boxes)
}

func TestSegment_OperatorGlyphFiltered(t *testing.T) {
	img := canvas(120, 50)
	// Two digits with a short square glyph between them at the
	// horizontal center (x=60).
	ink(img, 5, 8, 16, 32)
	ink(img, 52, 15, 20, 20)
	ink(img, 98, 8, 16, 32)

	boxes := NewSegmenter(testCaptchaConfig()).Segment(img)
	require.Len(t, boxes, 2)
	for _, b := range boxes {
		cx := b.Min.X + b.Dx()/2
		assert.True(t, cx < 40 || cx > 80, "operator glyph survived at %v", b)
	}
}

func TestSegment_WideBlobSplitsInTwo(t *testing.T) {
	img := canvas(160, 50)
	// Width 40 (39 after erosion) exceeds SplitWidth but not
	// TripleSplitWidth.
	ink(img, 10, 8, 40, 32)

	boxes := NewSegmenter(testCaptchaConfig()).Segment(img)
	require.Len(t, boxes, 2)
	assert.Equal(t, boxes[0].Dx(), boxes[1].Dx())
	assert.Equal(t, boxes[0].Max.X, boxes[1].Min.X)
}

func TestSegment_VeryWideBlobSplitsInThree(t *testing.T) {
	img := canvas(160, 50)
	ink(img, 10, 8, 60, 32)

	boxes := NewSegmenter(testCaptchaConfig()).Segment(img)
	require.Len(t, boxes, 3)
	assert.Equal(t, boxes[0].Dx(), boxes[1].Dx())
	assert.Equal(t, boxes[1].Dx(), boxes[2].Dx())
}

func TestSegment_TruncatesToMaxDigits(t *testing.T) {
	img := canvas(240, 50)
	for i := 0; i < 4; i++ {
		ink(img, 10+i*55, 8, 16, 32)
	}

	boxes := NewSegmenter(testCaptchaConfig()).Segment(img)
	require.Len(t, boxes, 3)
	// Truncation keeps the leftmost boxes.
	assert.Less(t, boxes[2].Max.X, 180)
}

func TestSegment_Deterministic(t *testing.T) {
	img := canvas(160, 50)
	ink(img, 10, 8, 40, 32)
	ink(img, 110, 8, 16, 32)

	seg := NewSegmenter(testCaptchaConfig())
	first := seg.Segment(img)
	second := seg.Segment(img)
	assert.Equal(t, first, second)
}

func FuzzSegment(f *testing.F) {
	f.Add([]byte{0x01, 0x02, 0x03, 0x04})
	f.Fuzz(func(t *testing.T, data []byte) {
		fuzzConsumer := fuzz.NewConsumer(data)
		raw, err := fuzzConsumer.GetBytes()
		if err != nil || len(raw) == 0 {
			return
		}

		w := len(raw)%120 + 1
		h := len(raw)/w + 1
		img := image.NewGray(image.Rect(0, 0, w, h))
		copy(img.Pix, raw)

		cfg := testCaptchaConfig()
		boxes := NewSegmenter(cfg).Segment(img)

		assert.LessOrEqual(t, len(boxes), cfg.MaxDigits)
		assert.True(t, sort.SliceIsSorted(boxes, func(i, j int) bool {
			return boxes[i].Min.X < boxes[j].Min.X
		}))
		for _, b := range boxes {
			assert.False(t, b.Empty())
			assert.True(t, b.In(img.Bounds()), "box %v outside %v", b, img.Bounds())
		}
	})
}
