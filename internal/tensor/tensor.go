// Package tensor converts face crops into model input and model output
// into label probabilities.
package tensor

import (
	"errors"
	"fmt"
	"image"

	"github.com/Futsu-coder/Emotion-Detection/internal/vision"
	"golang.org/x/image/draw"
)

// Channels is the number of planes in an encoded tensor
const Channels = 3

var (
	// ErrInvalidRegion is returned when the input image has no area
	ErrInvalidRegion = vision.ErrInvalidRegion
	// ErrEmptyLogits is returned when the engine produced no scores
	ErrEmptyLogits = errors.New("empty logits")
	// ErrNonFiniteLogits is returned when a score is NaN or infinite
	ErrNonFiniteLogits = errors.New("non-finite logits")
)

// Tensor is a dense channel-planar float32 buffer of shape (C, H, W)
type Tensor struct {
	Shape [3]int
	Data  []float32
}

// Codec encodes crops into square tensors of a fixed side
type Codec struct {
	Size int
}

// NewCodec creates a codec for size x size tensors
func NewCodec(size int) (*Codec, error) {
	if size <= 0 {
		return nil, fmt.Errorf("tensor size must be positive, got %d", size)
	}
	return &Codec{Size: size}, nil
}

// Encode resizes img bilinearly to Size x Size and packs it as planar
// R, G, B with every value scaled to [0, 1]. Gray input lands in all three
// channels. The whole image is used; no further cropping happens.
func (c *Codec) Encode(img image.Image) (*Tensor, error) {
	src := img.Bounds()
	if src.Dx() <= 0 || src.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegion, src)
	}

	size := c.Size
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)

	plane := size * size
	t := &Tensor{
		Shape: [3]int{Channels, size, size},
		Data:  make([]float32, Channels*plane),
	}
	for y := 0; y < size; y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < size; x++ {
			p := row[x*4:]
			i := y*size + x
			t.Data[i] = float32(p[0]) / 255
			t.Data[plane+i] = float32(p[1]) / 255
			t.Data[2*plane+i] = float32(p[2]) / 255
		}
	}
	return t, nil
}
