// File: internal/captcha/tessocr/tessocr.go

// Package tessocr is the fallback classifier backend: it feeds digit
// regions to the system tesseract installation instead of the trained
// network. Accuracy is worse than digitnet on this captcha font, but it
// needs no weights file, which makes it useful on a fresh machine.
package tessocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strconv"

	"github.com/otiai10/gosseract/v2"
)

// Classifier scores regions via tesseract with a digit whitelist.
// Each Score call runs one recognition; the client is created per call
// because gosseract clients are not safe to share.
type Classifier struct{}

// New returns a tesseract-backed classifier.
func New() *Classifier { return &Classifier{} }

// Score reconstructs the 32x32 region from the normalized input, runs
// single-character recognition restricted to digits, and returns a
// one-hot score vector for the recognized digit. An empty or non-digit
// recognition is an error, which the solver treats as an absent
// prediction.
func (c *Classifier) Score(input []float32) ([10]float32, error) {
	var scores [10]float32
	const edge = 32
	if len(input) != edge*edge {
		return scores, fmt.Errorf("input length %d, want %d", len(input), edge*edge)
	}

	img := image.NewGray(image.Rect(0, 0, edge, edge))
	for i, v := range input {
		img.Pix[i] = uint8(v * 255)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return scores, fmt.Errorf("encode region: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return scores, fmt.Errorf("set image: %w", err)
	}
	if err := client.SetWhitelist("0123456789"); err != nil {
		return scores, fmt.Errorf("set whitelist: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_CHAR); err != nil {
		return scores, fmt.Errorf("set page seg mode: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return scores, fmt.Errorf("recognize: %w", err)
	}
	for _, r := range text {
		if d, err := strconv.Atoi(string(r)); err == nil {
			scores[d] = 1.0
			return scores, nil
		}
	}
	return scores, fmt.Errorf("no digit recognized in %q", text)
}
