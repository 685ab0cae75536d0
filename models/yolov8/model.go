// Package yolov8 - Anchor-free YOLO (v8/v11) output decoding.
package yolov8

import (
	"fmt"

	"github.com/nvr-ai/go-tiled/models/model"
)

// OutputLayout describes the raw output tensor of the model.
type OutputLayout struct {
	// NumClasses is the number of class score rows following the 4 box rows.
	NumClasses int `json:"num_classes" yaml:"num_classes"`
	// Candidates is the number of anchor points, e.g. 8400 for a 640 input.
	Candidates int `json:"candidates" yaml:"candidates"`
	// RowMajor is true when the output is [candidates, 4+classes] rather
	// than the exported default [4+classes, candidates].
	RowMajor bool `json:"row_major" yaml:"row_major"`
}

// Attributes returns the number of values per candidate.
func (l OutputLayout) Attributes() int {
	return 4 + l.NumClasses
}

// Size returns the number of float32 values in the output tensor.
func (l OutputLayout) Size() int {
	return l.Attributes() * l.Candidates
}

// Shape returns the ONNX output shape for a batch of one.
func (l OutputLayout) Shape() []int64 {
	if l.RowMajor {
		return []int64{1, int64(l.Candidates), int64(l.Attributes())}
	}
	return []int64{1, int64(l.Attributes()), int64(l.Candidates)}
}

// Validate checks that the layout is usable.
func (l OutputLayout) Validate() error {
	if l.NumClasses <= 0 {
		return fmt.Errorf("num_classes must be positive, got %d", l.NumClasses)
	}
	if l.Candidates <= 0 {
		return fmt.Errorf("candidates must be positive, got %d", l.Candidates)
	}
	return nil
}

// CandidatesFor returns the anchor count of a YOLOv8 head at strides 8, 16
// and 32 for a square input of tileSize pixels.
func CandidatesFor(tileSize int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		side := tileSize / stride
		n += side * side
	}
	return n
}

// DefaultLayout returns the layout of a standard export for a square input.
//
// @example
// layout := yolov8.DefaultLayout(640, 80) // [1, 84, 8400]
func DefaultLayout(tileSize, numClasses int) OutputLayout {
	return OutputLayout{NumClasses: numClasses, Candidates: CandidatesFor(tileSize)}
}

// Name is the model name reported in logs.
const Name = model.ModelNameYOLOv8
