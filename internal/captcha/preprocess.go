// File: internal/captcha/preprocess.go
package captcha

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// InputSize is the classifier's fixed input edge length. The model was
// trained on 32x32 crops produced by exactly the normalization below;
// inference must match it bit for bit or predictions silently degrade.
const InputSize = 32

// PrepareRegion normalizes one digit region for scoring: pad the crop
// symmetrically left and right with the background value until square,
// resize to InputSize x InputSize with bilinear interpolation, and
// scale intensities to [0,1] row-major.
//
// A zero-width or zero-height region returns nil; the caller treats
// that as an absent prediction without invoking the model.
func PrepareRegion(roi *image.Gray) []float32 {
	if roi == nil {
		return nil
	}
	b := roi.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	// Square up by padding the narrow axis. Training data was taller
	// than wide, so only horizontal padding is applied; a region wider
	// than tall is resized as-is, matching the collection pipeline.
	pad := 0
	if h > w {
		pad = (h - w) / 2
	}
	square := image.NewGray(image.Rect(0, 0, w+2*pad, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			square.Pix[y*square.Stride+(x+pad)] = roi.GrayAt(b.Min.X+x, b.Min.Y+y).Y
		}
	}

	resized := image.NewGray(image.Rect(0, 0, InputSize, InputSize))
	xdraw.BiLinear.Scale(resized, resized.Bounds(), square, square.Bounds(), xdraw.Src, nil)

	input := make([]float32, InputSize*InputSize)
	for y := 0; y < InputSize; y++ {
		for x := 0; x < InputSize; x++ {
			input[y*InputSize+x] = float32(resized.Pix[y*resized.Stride+x]) / 255.0
		}
	}
	return input
}

// CropColumns slices the full image height over [x0, x1), clamped to
// the image bounds. The full-height crop keeps the digit's vertical
// placement identical to what the training collector saw.
func CropColumns(img *image.Gray, x0, x1 int) *image.Gray {
	b := img.Bounds()
	if x0 < b.Min.X {
		x0 = b.Min.X
	}
	if x1 > b.Max.X {
		x1 = b.Max.X
	}
	if x1 <= x0 {
		return nil
	}
	return img.SubImage(image.Rect(x0, b.Min.Y, x1, b.Max.Y)).(*image.Gray)
}
