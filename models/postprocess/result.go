// Package postprocess - Detection types, confidence filtering, NMS and the
// cross-tile merge step.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-tiled/common"
)

// Detection is a single detection result. Tile-local and image-global
// detections share this type; callers track the coordinate frame.
type Detection struct {
	// The bounding box of the detection.
	Box common.BoundingBox `json:"box" yaml:"box"`
	// The confidence score of the detection, in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`
	// The predicted class index of the detection.
	ClassID int `json:"class_id" yaml:"class_id"`
	// The human-readable class name, if known.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

func (d Detection) String() string {
	name := d.Label
	if name == "" {
		name = fmt.Sprintf("class_%d", d.ClassID)
	}
	return fmt.Sprintf("%s %.2f %s", name, d.Confidence, d.Box)
}

// Validate checks that the detection is well formed.
//
// Arguments:
//   - index: The position of the detection in its batch, used in the error.
//
// Returns:
//   - error: A *common.InvalidDetectionError for non-finite or degenerate boxes
//     or confidences outside [0,1].
func (d Detection) Validate(index int) error {
	switch {
	case !d.Box.Finite():
		return common.NewInvalidDetectionError(index, d.Box, d.Confidence, "non-finite box coordinates")
	case d.Box.Degenerate():
		return common.NewInvalidDetectionError(index, d.Box, d.Confidence, "degenerate box")
	case !(d.Confidence >= 0 && d.Confidence <= 1):
		return common.NewInvalidDetectionError(index, d.Box, d.Confidence, "confidence outside [0,1]")
	}
	return nil
}

// ValidateWithin checks Validate and additionally that the box lies inside
// a width x height frame, as required for tile-local detections.
func (d Detection) ValidateWithin(index int, width, height float64) error {
	if err := d.Validate(index); err != nil {
		return err
	}
	if !d.Box.Within(width, height) {
		return common.NewInvalidDetectionError(index, d.Box, d.Confidence,
			fmt.Sprintf("box outside %.0fx%.0f tile", width, height))
	}
	return nil
}
