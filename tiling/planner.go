// Package tiling - Overlapping tile planning, sampling and coordinate remapping
// for running a fixed-size detector over large images.
package tiling

import (
	"fmt"
	"image"
	"math"

	"github.com/nvr-ai/go-tiled/common"
)

// stepEpsilon absorbs float error so that e.g. 640*(1-0.2) floors to 512, not 511.
const stepEpsilon = 1e-9

// Window is the region of the source image covered by one tile, before padding.
type Window struct {
	// Index is the canonical row-major position of the window in the plan.
	Index int `json:"index" yaml:"index"`
	// X is the horizontal offset of the window in image coordinates.
	X int `json:"x" yaml:"x"`
	// Y is the vertical offset of the window in image coordinates.
	Y int `json:"y" yaml:"y"`
	// Width is the covered width, at most the tile size.
	Width int `json:"width" yaml:"width"`
	// Height is the covered height, at most the tile size.
	Height int `json:"height" yaml:"height"`
}

// Rect returns the window as an image-space rectangle with origin (0,0).
func (w Window) Rect() image.Rectangle {
	return image.Rect(w.X, w.Y, w.X+w.Width, w.Y+w.Height)
}

// Padded reports whether the window is smaller than the tile size and so
// needs padding.
func (w Window) Padded(tileSize int) bool {
	return w.Width < tileSize || w.Height < tileSize
}

func (w Window) String() string {
	return fmt.Sprintf("#%d (%d,%d %dx%d)", w.Index, w.X, w.Y, w.Width, w.Height)
}

// Step returns the stride between consecutive windows, floor(tileSize*(1-overlap)).
//
// Arguments:
//   - tileSize: The detector's square input size in pixels.
//   - overlap: The fraction of the tile shared with its neighbour, in [0,1).
//
// Returns:
//   - int: The stride in pixels.
//   - error: A *common.ConfigError if the tunables are invalid or the stride is below 1.
func Step(tileSize int, overlap float64) (int, error) {
	if tileSize <= 0 {
		return 0, common.NewConfigError("tile_size", tileSize, "must be positive")
	}
	if math.IsNaN(overlap) || overlap < 0 || overlap >= 1 {
		return 0, common.NewConfigError("overlap_ratio", overlap, "must be in [0,1)")
	}
	step := int(math.Floor(float64(tileSize)*(1-overlap) + stepEpsilon))
	if step < 1 {
		return 0, common.NewConfigError("overlap_ratio", overlap,
			"step floor(%d*(1-%v)) is %d, must be at least 1", tileSize, overlap, step)
	}
	return step, nil
}

// positions returns the window offsets along one axis. Offsets advance by
// step from 0 and stop at the first window that reaches the far edge.
func positions(length, tileSize, step int) []int {
	out := make([]int, 0, length/step+1)
	for p := 0; p < length; p += step {
		out = append(out, p)
		if p+tileSize >= length {
			break
		}
	}
	return out
}

// Plan computes the overlapping tile windows covering a width x height image.
//
// Windows are ordered row-major (y outer, x inner) and indexed in that order.
// Windows touching the right or bottom edge are clamped to the image, so they
// may be narrower or shorter than tileSize; they are never shifted inward.
//
// Arguments:
//   - width: The image width in pixels.
//   - height: The image height in pixels.
//   - tileSize: The detector's square input size in pixels.
//   - overlap: The fraction of the tile shared by adjacent windows, in [0,1).
//
// Returns:
//   - []Window: The windows, covering every pixel at least once.
//   - error: A *common.ConfigError for invalid dimensions or tunables.
//
// @example
// windows, err := tiling.Plan(1280, 640, 640, 0.2)
// // windows at x = 0, 512, 1024; the last is 256 wide.
func Plan(width, height, tileSize int, overlap float64) ([]Window, error) {
	step, err := Step(tileSize, overlap)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, common.NewConfigError("image_size", fmt.Sprintf("%dx%d", width, height), "must be positive")
	}

	xs := positions(width, tileSize, step)
	ys := positions(height, tileSize, step)

	windows := make([]Window, 0, len(xs)*len(ys))
	for _, y := range ys {
		for _, x := range xs {
			windows = append(windows, Window{
				Index:  len(windows),
				X:      x,
				Y:      y,
				Width:  min(tileSize, width-x),
				Height: min(tileSize, height-y),
			})
		}
	}
	return windows, nil
}

// PlanImage plans the windows for img. Offsets are relative to img.Bounds().Min.
func PlanImage(img image.Image, tileSize int, overlap float64) ([]Window, error) {
	b := img.Bounds()
	return Plan(b.Dx(), b.Dy(), tileSize, overlap)
}
