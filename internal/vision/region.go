package vision

import (
	"errors"
	"fmt"
	"image"
)

// ErrInvalidRegion is returned for a region with no area inside the frame
var ErrInvalidRegion = errors.New("invalid region")

// Region is an axis-aligned rectangle in frame coordinates. Its slot is its
// position in the detector output; it is never carried across frames.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromRect converts an image.Rectangle to a Region
func FromRect(r image.Rectangle) Region {
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect returns the region as an image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Clip intersects the region with a width x height frame
func (r Region) Clip(width, height int) (Region, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return Region{}, fmt.Errorf("%w: %dx%d at (%d,%d)", ErrInvalidRegion, r.Width, r.Height, r.X, r.Y)
	}
	clipped := r.Rect().Intersect(image.Rect(0, 0, width, height))
	if clipped.Empty() {
		return Region{}, fmt.Errorf("%w: %v outside %dx%d frame", ErrInvalidRegion, r.Rect(), width, height)
	}
	return FromRect(clipped), nil
}

func (r Region) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}
