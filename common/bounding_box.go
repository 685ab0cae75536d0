// Package common - Box geometry and error types shared by the tiling pipeline.
package common

import (
	"fmt"
	"image"
	"math"
)

// BoundingBox is an axis-aligned box in pixel coordinates, top-left (X1, Y1)
// and bottom-right (X2, Y2). The coordinate frame (tile or image) is not
// recorded on the box.
type BoundingBox struct {
	X1 float64 `json:"x1" yaml:"x1"`
	Y1 float64 `json:"y1" yaml:"y1"`
	X2 float64 `json:"x2" yaml:"x2"`
	Y2 float64 `json:"y2" yaml:"y2"`
}

// NewBoundingBox creates a bounding box from its corners.
func NewBoundingBox(x1, y1, x2, y2 float64) BoundingBox {
	return BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// String formats the box corners for logs.
func (b BoundingBox) String() string {
	return fmt.Sprintf("(%.1f, %.1f), (%.1f, %.1f)", b.X1, b.Y1, b.X2, b.Y2)
}

// Width returns the horizontal extent of the box.
func (b BoundingBox) Width() float64 {
	return b.X2 - b.X1
}

// Height returns the vertical extent of the box.
func (b BoundingBox) Height() float64 {
	return b.Y2 - b.Y1
}

// Area returns the box area, or 0 for degenerate boxes.
func (b BoundingBox) Area() float64 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Finite reports whether every coordinate is a finite number.
func (b BoundingBox) Finite() bool {
	for _, v := range [...]float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Degenerate reports whether the box has no positive extent on some axis.
func (b BoundingBox) Degenerate() bool {
	return b.X2 <= b.X1 || b.Y2 <= b.Y1
}

// Within reports whether the box lies inside [0, width] x [0, height].
func (b BoundingBox) Within(width, height float64) bool {
	return b.X1 >= 0 && b.Y1 >= 0 && b.X2 <= width && b.Y2 <= height
}

// Offset translates the box by (dx, dy).
//
// Arguments:
//   - dx: Horizontal translation in pixels.
//   - dy: Vertical translation in pixels.
//
// Returns:
//   - BoundingBox: The translated box. The receiver is unchanged.
//
// @example
// box := NewBoundingBox(10, 10, 20, 20)
// moved := box.Offset(512, 0) // (522, 10), (532, 20)
func (b BoundingBox) Offset(dx, dy float64) BoundingBox {
	return BoundingBox{X1: b.X1 + dx, Y1: b.Y1 + dy, X2: b.X2 + dx, Y2: b.Y2 + dy}
}

// Intersection calculates the intersection area between two bounding boxes.
//
// Arguments:
//   - other: The other bounding box to calculate intersection with.
//
// Returns:
//   - The area of intersection in pixels, 0 when the boxes do not overlap.
//
// @example
// box1 := NewBoundingBox(0, 0, 100, 100)
// box2 := NewBoundingBox(50, 50, 150, 150)
// area := box1.Intersection(box2) // 2500 (50x50 overlap)
func (b BoundingBox) Intersection(other BoundingBox) float64 {
	w := math.Min(b.X2, other.X2) - math.Max(b.X1, other.X1)
	h := math.Min(b.Y2, other.Y2) - math.Max(b.Y1, other.Y1)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Union calculates the union area between two bounding boxes.
//
// Arguments:
//   - other: The other bounding box to calculate union with.
//
// Returns:
//   - The area of union in pixels.
//
// @example
// box1 := NewBoundingBox(0, 0, 100, 100)
// box2 := NewBoundingBox(50, 50, 150, 150)
// area := box1.Union(box2) // 17500
func (b BoundingBox) Union(other BoundingBox) float64 {
	return b.Area() + other.Area() - b.Intersection(other)
}

// IoU calculates the Intersection over Union between two bounding boxes.
//
// This metric is used for Non-Maximum Suppression (NMS) to remove duplicate detections.
//
// Arguments:
//   - other: The other bounding box to calculate IoU with.
//
// Returns:
//   - The IoU value between 0 and 1. Boxes with a zero union yield 0.
//
// @example
// box1 := NewBoundingBox(0, 0, 100, 100)
// box2 := NewBoundingBox(50, 50, 150, 150)
// iou := box1.IoU(box2) // ~0.143 (2500/17500)
func (b BoundingBox) IoU(other BoundingBox) float64 {
	inter := b.Intersection(other)
	if inter == 0 {
		return 0
	}
	union := b.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// ToRect converts the bounding box to an image.Rectangle.
//
// Coordinates are rounded to the nearest pixel, so the result is suitable for
// drawing but not for IoU computation.
//
// Returns:
//   - An image.Rectangle with canonicalized coordinates.
//
// @example
// box := NewBoundingBox(100.4, 100.6, 200.5, 300.5)
// rect := box.ToRect() // (100,101)-(201,301)
func (b BoundingBox) ToRect() image.Rectangle {
	return image.Rect(
		int(math.Round(b.X1)),
		int(math.Round(b.Y1)),
		int(math.Round(b.X2)),
		int(math.Round(b.Y2)),
	).Canon()
}

// FromRect converts an image.Rectangle to a bounding box.
func FromRect(r image.Rectangle) BoundingBox {
	return BoundingBox{
		X1: float64(r.Min.X),
		Y1: float64(r.Min.Y),
		X2: float64(r.Max.X),
		Y2: float64(r.Max.Y),
	}
}
