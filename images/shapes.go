// Package images - Image geometry utilities
package images

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// Rect is a lightweight bounding box in image coordinates.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// Area returns the area of the box as (Y2-Y1) * (X2-X1).
//
// No pixel-inclusive +1 is applied here. Inverted boxes yield a negative area
// and zero-width or zero-height boxes yield 0.
func (r Rect) Area() float32 {
	return (r.Y2 - r.Y1) * (r.X2 - r.X1)
}

// Width returns X2 - X1.
func (r Rect) Width() float32 {
	return r.X2 - r.X1
}

// Height returns Y2 - Y1.
func (r Rect) Height() float32 {
	return r.Y2 - r.Y1
}

// Clip constrains the box to the [0,width]x[0,height] canvas.
//
// Both edges on each axis are clamped into the canvas, and an inverted edge pair
// is collapsed onto its leading edge, so the result always satisfies
// 0 <= X1 <= X2 <= width and 0 <= Y1 <= Y2 <= height. A NaN edge is treated as
// lying before the canvas and clamps to 0.
//
// Arguments:
//   - width: The canvas width in pixels.
//   - height: The canvas height in pixels.
//
// Returns:
//   - The clipped rectangle.
func (r Rect) Clip(width, height int) Rect {
	w, h := float32(width), float32(height)

	out := Rect{
		X1: clamp(r.X1, 0, w),
		Y1: clamp(r.Y1, 0, h),
		X2: clamp(r.X2, 0, w),
		Y2: clamp(r.Y2, 0, h),
	}
	if out.X2 < out.X1 {
		out.X2 = out.X1
	}
	if out.Y2 < out.Y1 {
		out.Y2 = out.Y1
	}

	return out
}

// ToRectangle converts the box to an image.Rectangle by truncating each
// coordinate, which is how face crops are cut out of the source image.
func (r Rect) ToRectangle() image.Rectangle {
	return image.Rect(int(r.X1), int(r.Y1), int(r.X2), int(r.Y2)).Canon()
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.2f, %.2f)-(%.2f, %.2f)", r.X1, r.Y1, r.X2, r.Y2)
}

// InclusiveIntersection calculates the pixel-inclusive intersection area of two
// boxes.
//
// The overlapping span on each axis counts both end pixels:
//
//	iw = max(0, min(a.X2, b.X2) - max(a.X1, b.X1) + 1)
//	ih = max(0, min(a.Y2, b.Y2) - max(a.Y1, b.Y1) + 1)
//
// so two boxes that share only an edge still intersect in a one pixel wide strip.
//
// Arguments:
//   - a: The first box.
//   - b: The second box.
//
// Returns:
//   - iw * ih as float32.
func InclusiveIntersection(a, b Rect) float32 {
	iw := math32.Max(0, math32.Min(a.X2, b.X2)-math32.Max(a.X1, b.X1)+1)
	ih := math32.Max(0, math32.Min(a.Y2, b.Y2)-math32.Max(a.Y1, b.Y1)+1)
	return iw * ih
}

// Coverage measures how much of the compared box is covered by the picked box.
//
// Unlike IoU this is asymmetric: the denominator is the area of the compared box
// only, not the union and not the area of the picked box:
//
//	Coverage = InclusiveIntersection(picked, compared) / compared.Area()
//
// Because the intersection is pixel-inclusive and the area is not, the ratio of a
// box with itself is greater than 1. A zero-area compared box gives +Inf when the
// intersection is positive and NaN when it is zero; neither panics.
//
// Example Usage:
// ```go
//
//	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	b := Rect{X1: 1, Y1: 1, X2: 11, Y2: 11}
//
//	fmt.Println(Coverage(a, b)) // 10*10 / 100 = 1
//
// ```
func Coverage(picked, compared Rect) float32 {
	return InclusiveIntersection(picked, compared) / compared.Area()
}

// clamp limits v to [lo, hi]. NaN maps to lo.
func clamp(v, lo, hi float32) float32 {
	if math32.IsNaN(v) {
		return lo
	}
	return math32.Min(math32.Max(v, lo), hi)
}
