// File: internal/captcha/digitnet/digitnet.go

// Package digitnet evaluates the offline-trained digit classifier.
//
// The artifact is a small convolutional network (conv 3x3 x32, pool,
// conv 3x3 x64, pool, dense 64, dense 10) trained on 32x32 grayscale
// digit crops and exported to a JSON weights file. This package is a
// straight forward pass over those weights; it performs no training
// and holds no mutable state, so a Network is safe for concurrent use.
package digitnet

import (
	"fmt"
	"math"
	"os"

	jsoniter "github.com/json-iterator/go"
)

const (
	inputSize  = 32
	numClasses = 10
)

// weightsFile mirrors the exporter's JSON layout. Convolution kernels
// are [kh][kw][in][out], dense kernels [in][out], matching the Keras
// tensor order the exporter dumps.
type weightsFile struct {
	Conv1W [][][][]float32 `json:"conv1_w"`
	Conv1B []float32       `json:"conv1_b"`
	Conv2W [][][][]float32 `json:"conv2_w"`
	Conv2B []float32       `json:"conv2_b"`
	FC1W   [][]float32     `json:"fc1_w"`
	FC1B   []float32       `json:"fc1_b"`
	FC2W   [][]float32     `json:"fc2_w"`
	FC2B   []float32       `json:"fc2_b"`
}

// Network is a loaded classifier artifact.
type Network struct {
	w weightsFile
}

// Load reads and validates a weights file.
func Load(path string) (*Network, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weights file: %w", err)
	}
	var w weightsFile
	if err := jsoniter.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("parse weights file: %w", err)
	}
	n := &Network{w: w}
	if err := n.validate(); err != nil {
		return nil, fmt.Errorf("weights file %s: %w", path, err)
	}
	return n, nil
}

func (n *Network) validate() error {
	w := &n.w
	if len(w.Conv1W) != 3 || len(w.Conv1B) == 0 {
		return fmt.Errorf("malformed conv1 weights")
	}
	if len(w.Conv2W) != 3 || len(w.Conv2B) == 0 {
		return fmt.Errorf("malformed conv2 weights")
	}
	if len(w.FC1W) == 0 || len(w.FC1B) == 0 {
		return fmt.Errorf("malformed fc1 weights")
	}
	if len(w.FC2W) == 0 || len(w.FC2B) != numClasses {
		return fmt.Errorf("malformed fc2 weights, want %d classes", numClasses)
	}
	return nil
}

// Score runs the forward pass over one normalized 32x32 input and
// returns the softmax scores per digit class.
func (n *Network) Score(input []float32) ([10]float32, error) {
	var out [10]float32
	if len(input) != inputSize*inputSize {
		return out, fmt.Errorf("input length %d, want %d", len(input), inputSize*inputSize)
	}

	// Layer shapes for a 32x32 input: conv3 -> 30, pool -> 15,
	// conv3 -> 13, pool -> 6 (floor).
	c1 := conv2DValidReLU(input, inputSize, inputSize, 1, n.w.Conv1W, n.w.Conv1B)
	p1 := maxPool2(c1, 30, 30, len(n.w.Conv1B))
	c2 := conv2DValidReLU(p1, 15, 15, len(n.w.Conv1B), n.w.Conv2W, n.w.Conv2B)
	p2 := maxPool2(c2, 13, 13, len(n.w.Conv2B))

	h := denseReLU(p2, n.w.FC1W, n.w.FC1B)
	logits := dense(h, n.w.FC2W, n.w.FC2B)
	if len(logits) != numClasses {
		return out, fmt.Errorf("got %d logits, want %d", len(logits), numClasses)
	}

	copy(out[:], softmax(logits))
	return out, nil
}

// conv2DValidReLU applies a valid-padding 3x3 convolution with ReLU.
// Tensors are flat, channel-last: src[(y*w+x)*chans+c].
func conv2DValidReLU(src []float32, h, w, chans int, kernel [][][][]float32, bias []float32) []float32 {
	kh, kw := len(kernel), len(kernel[0])
	outC := len(bias)
	outH, outW := h-kh+1, w-kw+1
	dst := make([]float32, outH*outW*outC)

	for oy := 0; oy < outH; oy++ {
		for ox := 0; ox < outW; ox++ {
			for oc := 0; oc < outC; oc++ {
				sum := bias[oc]
				for ky := 0; ky < kh; ky++ {
					for kx := 0; kx < kw; kx++ {
						for ic := 0; ic < chans; ic++ {
							sum += src[((oy+ky)*w+(ox+kx))*chans+ic] * kernel[ky][kx][ic][oc]
						}
					}
				}
				if sum < 0 {
					sum = 0
				}
				dst[(oy*outW+ox)*outC+oc] = sum
			}
		}
	}
	return dst
}

// maxPool2 downsamples by 2 with a 2x2 max window, flooring odd edges.
func maxPool2(src []float32, h, w, chans int) []float32 {
	outH, outW := h/2, w/2
	dst := make([]float32, outH*outW*chans)

	for oy := 0; oy < outH; oy++ {
		for ox := 0; ox < outW; ox++ {
			for c := 0; c < chans; c++ {
				m := src[(2*oy*w+2*ox)*chans+c]
				for dy := 0; dy < 2; dy++ {
					for dx := 0; dx < 2; dx++ {
						v := src[((2*oy+dy)*w+(2*ox+dx))*chans+c]
						if v > m {
							m = v
						}
					}
				}
				dst[(oy*outW+ox)*chans+c] = m
			}
		}
	}
	return dst
}

func denseReLU(src []float32, kernel [][]float32, bias []float32) []float32 {
	out := dense(src, kernel, bias)
	for i, v := range out {
		if v < 0 {
			out[i] = 0
		}
	}
	return out
}

func dense(src []float32, kernel [][]float32, bias []float32) []float32 {
	out := make([]float32, len(bias))
	copy(out, bias)
	for i, row := range kernel {
		if i >= len(src) {
			break
		}
		v := src[i]
		for j, k := range row {
			out[j] += v * k
		}
	}
	return out
}

func softmax(logits []float32) []float32 {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	out := make([]float32, len(logits))
	for i, v := range logits {
		e := math.Exp(float64(v - max))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
