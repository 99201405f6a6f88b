// File: internal/captcha/segment.go
package captcha

import (
	"image"
	"sort"

	"github.com/obspull/obspull-cli/internal/config"
)

// Segmenter locates candidate digit regions inside a captcha raster.
// The pipeline is deterministic: binarize (Otsu, ink as foreground),
// one light erosion to separate touching strokes, connected component
// bounding boxes, then the domain filters. Thresholds come from config
// so the heuristics can be retuned without a rebuild.
type Segmenter struct {
	cfg config.CaptchaConfig
}

// NewSegmenter returns a Segmenter with the given tuning.
func NewSegmenter(cfg config.CaptchaConfig) *Segmenter {
	return &Segmenter{cfg: cfg}
}

// Segment returns up to MaxDigits bounding boxes sorted by ascending x.
// A blank or nil image yields an empty slice. Finding fewer than two
// boxes is not an error here; the solver decides what that means.
func (s *Segmenter) Segment(img *image.Gray) []image.Rectangle {
	if img == nil || img.Bounds().Empty() {
		return nil
	}

	bin := binarizeOtsuInv(img)
	bin = erode2x2(bin)

	boxes := componentBounds(bin)

	w := img.Bounds().Dx()
	centerX := w / 2

	kept := make([]image.Rectangle, 0, len(boxes))
	for _, b := range boxes {
		bw, bh := b.Dx(), b.Dy()

		// Small blobs are noise.
		if bh < s.cfg.MinBlobHeight {
			continue
		}

		// The arithmetic operator glyph sits near the horizontal
		// center, is short, and close to square. It is not a digit.
		aspect := float64(bw) / float64(bh)
		bcx := b.Min.X + bw/2
		isCenter := abs(bcx-centerX) < s.cfg.OperatorCenterTol
		if isCenter && bh < s.cfg.OperatorMaxHeight &&
			aspect > s.cfg.OperatorAspectMin && aspect < s.cfg.OperatorAspectMax {
			continue
		}

		// Wide blobs are merged digits; partition in equal slices.
		switch {
		case bw > s.cfg.TripleSplitWidth:
			div := bw / 3
			kept = append(kept,
				rect(b.Min.X, b.Min.Y, div, bh),
				rect(b.Min.X+div, b.Min.Y, div, bh),
				rect(b.Min.X+2*div, b.Min.Y, div, bh),
			)
		case bw > s.cfg.SplitWidth:
			half := bw / 2
			kept = append(kept,
				rect(b.Min.X, b.Min.Y, half, bh),
				rect(b.Min.X+half, b.Min.Y, half, bh),
			)
		default:
			kept = append(kept, b)
		}
	}

	// Left-to-right order matters: the digits form a number.
	sort.Slice(kept, func(i, j int) bool { return kept[i].Min.X < kept[j].Min.X })

	if max := s.cfg.MaxDigits; max > 0 && len(kept) > max {
		kept = kept[:max]
	}
	return kept
}

func rect(x, y, w, h int) image.Rectangle {
	return image.Rect(x, y, x+w, y+h)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// binarizeOtsuInv thresholds img with Otsu's method and inverts the
// result so ink becomes foreground (255): pixels at or below the
// threshold are foreground.
func binarizeOtsuInv(img *image.Gray) *image.Gray {
	b := img.Bounds()
	thresh := otsuThreshold(img)

	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := img.GrayAt(b.Min.X+x, b.Min.Y+y).Y
			if v <= thresh {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// otsuThreshold picks the gray level that maximizes between-class
// variance over the image histogram.
func otsuThreshold(img *image.Gray) uint8 {
	var hist [256]int
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[img.GrayAt(x, y).Y]++
		}
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	var (
		sumB, wB  float64
		bestVar   float64
		bestLevel uint8
	)
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			bestLevel = uint8(t)
		}
	}
	return bestLevel
}

// erode2x2 performs one erosion pass with a 2x2 structuring element:
// a foreground pixel survives only when its 2x2 neighborhood (itself,
// right, below, below-right) is all foreground. Thin strokes survive;
// single-pixel bridges between digits do not.
func erode2x2(bin *image.Gray) *image.Gray {
	b := bin.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	at := func(x, y int) uint8 {
		if x >= w || y >= h {
			return 0
		}
		return bin.Pix[y*bin.Stride+x]
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if at(x, y) == 255 && at(x+1, y) == 255 && at(x, y+1) == 255 && at(x+1, y+1) == 255 {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// componentBounds labels 8-connected foreground components and returns
// one bounding box per component, in discovery order.
func componentBounds(bin *image.Gray) []image.Rectangle {
	b := bin.Bounds()
	w, h := b.Dx(), b.Dy()
	visited := make([]bool, w*h)

	var boxes []image.Rectangle
	var stack []image.Point

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if visited[idx] || bin.Pix[y*bin.Stride+x] != 255 {
				continue
			}

			minX, minY, maxX, maxY := x, y, x, y
			visited[idx] = true
			stack = append(stack[:0], image.Pt(x, y))

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				if p.X < minX {
					minX = p.X
				}
				if p.X > maxX {
					maxX = p.X
				}
				if p.Y < minY {
					minY = p.Y
				}
				if p.Y > maxY {
					maxY = p.Y
				}

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							continue
						}
						nidx := ny*w + nx
						if !visited[nidx] && bin.Pix[ny*bin.Stride+nx] == 255 {
							visited[nidx] = true
							stack = append(stack, image.Pt(nx, ny))
						}
					}
				}
			}

			boxes = append(boxes, image.Rect(minX, minY, maxX+1, maxY+1))
		}
	}
	return boxes
}
