package geometry

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// DefaultMinSelection is the smallest width or height, in logical pixels,
// that a drawn selection must reach before a decode is attempted.
const DefaultMinSelection = 10

var ErrInvalidViewport = errors.New("viewport width must be positive")

// Point is a pointer position in logical (device-independent) pixels.
type Point struct {
	X float64
	Y float64
}

// Viewport is the logical size of the visible area at the moment of selection.
type Viewport struct {
	Width  float64
	Height float64
}

// Rect is an axis-aligned rectangle. Selection rectangles are expressed in
// logical pixels, crop rectangles in raster pixels.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Normalize builds the rectangle spanned by two corners, independent of drag direction.
func Normalize(a, b Point) Rect {
	return Rect{
		Left:   math.Min(a.X, b.X),
		Top:    math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// TooSmall reports whether either side is below min.
func (r Rect) TooSmall(min float64) bool {
	return r.Width < min || r.Height < min
}

func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Pixels rounds the rectangle edges to the nearest integer pixel.
func (r Rect) Pixels() image.Rectangle {
	x0 := int(math.Round(r.Left))
	y0 := int(math.Round(r.Top))
	x1 := int(math.Round(r.Left + r.Width))
	y1 := int(math.Round(r.Top + r.Height))
	return image.Rect(x0, y0, x1, y1)
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.1f,%.1f %.1fx%.1f)", r.Left, r.Top, r.Width, r.Height)
}

// Scale returns the raster-pixels-per-logical-pixel factor. The factor is
// derived from widths only and applied to both axes.
func Scale(imageWidthPx int, vp Viewport) (float64, error) {
	if vp.Width <= 0 || math.IsNaN(vp.Width) || math.IsInf(vp.Width, 0) {
		return 0, ErrInvalidViewport
	}
	return float64(imageWidthPx) / vp.Width, nil
}

// ToCrop maps a selection rectangle into raster pixel space.
func ToCrop(sel Rect, imageWidthPx int, vp Viewport) (Rect, error) {
	scale, err := Scale(imageWidthPx, vp)
	if err != nil {
		return Rect{}, err
	}
	return Rect{
		Left:   sel.Left * scale,
		Top:    sel.Top * scale,
		Width:  sel.Width * scale,
		Height: sel.Height * scale,
	}, nil
}
