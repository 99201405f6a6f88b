// File: internal/captcha/solver.go
package captcha

import (
	"image"
	"strconv"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/obspull/obspull-cli/api/schemas"
	"github.com/obspull/obspull-cli/internal/config"
)

// Solver composes the segmenter and a classifier into the captcha
// pipeline. It is deterministic for a fixed classifier artifact and
// never returns an error for malformed input: every failure path
// collapses to ok=false so the auth layer can decide uniformly whether
// to fall back to the human prompt.
type Solver struct {
	seg    *Segmenter
	cls    schemas.Classifier
	cfg    config.CaptchaConfig
	logger *zap.Logger
}

var _ schemas.CaptchaSolver = (*Solver)(nil)

// NewSolver wires a Solver from its parts.
func NewSolver(cfg config.CaptchaConfig, cls schemas.Classifier, logger *zap.Logger) *Solver {
	return &Solver{
		seg:    NewSegmenter(cfg),
		cls:    cls,
		cfg:    cfg,
		logger: logger.Named("captcha_solver"),
	}
}

// Solve runs segmentation and per-region classification, then reduces
// the recognized digits with the portal's arithmetic convention:
// captchas encode A + B where A may be one or two digits. Three digits
// [d0 d1 d2] mean (d0*10+d1)+d2; two digits [d0 d1] mean d0+d1.
func (s *Solver) Solve(img *image.Gray) (string, bool) {
	if img == nil {
		return "", false
	}

	boxes := s.seg.Segment(img)
	if len(boxes) < 2 {
		s.logger.Debug("Not enough digit regions found.", zap.Int("regions", len(boxes)))
		return "", false
	}

	digits := make([]int, 0, len(boxes))
	for _, box := range boxes {
		roi := CropColumns(img, box.Min.X-s.cfg.CropPadding, box.Max.X+s.cfg.CropPadding)
		d, ok := s.classify(roi)
		if !ok {
			// One unreadable region invalidates the whole answer.
			return "", false
		}
		digits = append(digits, d)
	}

	var sum int
	switch len(digits) {
	case 3:
		sum = digits[0]*10 + digits[1] + digits[2]
	case 2:
		sum = digits[0] + digits[1]
	default:
		return "", false
	}

	s.logger.Debug("Captcha solved.", zap.Ints("digits", digits), zap.Int("sum", sum))
	return strconv.Itoa(sum), true
}

// SolveFile loads the captured captcha image and solves it.
// Implements schemas.CaptchaSolver.
func (s *Solver) SolveFile(path string) (string, bool) {
	img, err := LoadGray(path)
	if err != nil {
		s.logger.Debug("Could not load captcha image.", zap.String("path", path), zap.Error(err))
		return "", false
	}
	return s.Solve(img)
}

// classify scores one normalized region and returns its argmax digit.
// A nil region (empty crop) or a classifier failure is an absent
// prediction, not an error.
func (s *Solver) classify(roi *image.Gray) (int, bool) {
	input := PrepareRegion(roi)
	if input == nil {
		return 0, false
	}
	scores, err := s.cls.Score(input)
	if err != nil {
		s.logger.Debug("Classifier gave no answer.", zap.Error(err))
		return 0, false
	}

	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best, true
}

// LoadGray decodes an image file into an 8-bit grayscale raster.
func LoadGray(path string) (*image.Gray, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}
	nrgba := imaging.Grayscale(src)

	b := nrgba.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			// Grayscale output has R=G=B; any channel is the intensity.
			gray.Pix[y*gray.Stride+x] = nrgba.NRGBAAt(b.Min.X+x, b.Min.Y+y).R
		}
	}
	return gray, nil
}
