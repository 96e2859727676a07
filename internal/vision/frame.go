package vision

import (
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"
)

// Format tags the pixel layout of a Frame
type Format int

const (
	FormatRGBA Format = iota + 1
	FormatGray
)

// BytesPerPixel returns the pixel size for the format, 0 when unknown
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGBA:
		return 4
	case FormatGray:
		return 1
	default:
		return 0
	}
}

func (f Format) String() string {
	switch f {
	case FormatRGBA:
		return "rgba"
	case FormatGray:
		return "gray"
	default:
		return "unknown"
	}
}

// Frame is a read-only pixel buffer produced once per cycle. The release
// hook, when set, hands the buffer back to its producer and runs at most once.
// Images returned by Crop share Pix and must not be used after Release.
type Frame struct {
	Width  int
	Height int
	Stride int
	Format Format
	Pix    []byte

	release func()
	once    sync.Once
}

// NewFrame wraps pix as a tightly packed frame
func NewFrame(width, height int, format Format, pix []byte, release func()) (*Frame, error) {
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("unsupported pixel format %d", format)
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("negative frame size %dx%d", width, height)
	}
	stride := width * bpp
	if len(pix) < stride*height {
		return nil, fmt.Errorf("pixel buffer too small: have %d bytes, need %d", len(pix), stride*height)
	}
	return &Frame{
		Width:   width,
		Height:  height,
		Stride:  stride,
		Format:  format,
		Pix:     pix,
		release: release,
	}, nil
}

// FromImage copies any image into a new RGBA frame
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Frame{
		Width:  b.Dx(),
		Height: b.Dy(),
		Stride: dst.Stride,
		Format: FormatRGBA,
		Pix:    dst.Pix,
	}
}

// Ready reports whether the frame carries pixels
func (f *Frame) Ready() bool {
	return f != nil && f.Width > 0 && f.Height > 0 && len(f.Pix) > 0
}

// Release returns the buffer to its producer. Safe to call more than once.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	f.once.Do(func() {
		if f.release != nil {
			f.release()
		}
	})
}

// Bounds returns the frame rectangle anchored at the origin
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Gray derives a single channel luma frame using BT.601 weights.
// A gray frame returns a copy of itself.
func (f *Frame) Gray() *Frame {
	out := &Frame{
		Width:  f.Width,
		Height: f.Height,
		Stride: f.Width,
		Format: FormatGray,
		Pix:    make([]byte, f.Width*f.Height),
	}

	switch f.Format {
	case FormatGray:
		for y := 0; y < f.Height; y++ {
			copy(out.Pix[y*out.Stride:(y+1)*out.Stride], f.Pix[y*f.Stride:y*f.Stride+f.Width])
		}
	case FormatRGBA:
		for y := 0; y < f.Height; y++ {
			row := f.Pix[y*f.Stride:]
			dst := out.Pix[y*out.Stride:]
			for x := 0; x < f.Width; x++ {
				p := row[x*4 : x*4+3]
				dst[x] = luma(p[0], p[1], p[2])
			}
		}
	}
	return out
}

// luma rounds 0.299R + 0.587G + 0.114B in fixed point (weights scaled by 2^14)
func luma(r, g, b byte) byte {
	const (
		wr    = 4899
		wg    = 9617
		wb    = 1868
		shift = 14
	)
	return byte((wr*uint32(r) + wg*uint32(g) + wb*uint32(b) + 1<<(shift-1)) >> shift)
}

// Image returns an image.Image view over the frame pixels without copying
func (f *Frame) Image() image.Image {
	rect := f.Bounds()
	if f.Format == FormatGray {
		return &image.Gray{Pix: f.Pix, Stride: f.Stride, Rect: rect}
	}
	return &image.RGBA{Pix: f.Pix, Stride: f.Stride, Rect: rect}
}

// Crop clips r to the frame and returns a view of that area
func (f *Frame) Crop(r Region) (image.Image, error) {
	clipped, err := r.Clip(f.Width, f.Height)
	if err != nil {
		return nil, err
	}
	rect := clipped.Rect()
	switch img := f.Image().(type) {
	case *image.Gray:
		return img.SubImage(rect), nil
	case *image.RGBA:
		return img.SubImage(rect), nil
	default:
		return nil, fmt.Errorf("crop: unsupported format %s", f.Format)
	}
}
