package postprocess

import (
	"math"

	"github.com/nvr-ai/go-tiled/common"
)

// MergeConfig holds the thresholds for merging pooled detections.
type MergeConfig struct {
	// ConfThreshold drops every detection with confidence <= this value.
	ConfThreshold float64 `json:"conf_threshold" yaml:"conf_threshold"`
	// IoUThreshold suppresses a lower-confidence box whose IoU with a kept box
	// is greater than this value.
	IoUThreshold float64 `json:"iou_threshold" yaml:"iou_threshold"`
	// ClassAware restricts suppression to detections of the same class.
	ClassAware bool `json:"class_aware" yaml:"class_aware"`
}

// Validate returns a *common.ConfigError if a threshold is outside [0,1].
func (c MergeConfig) Validate() error {
	if !inUnit(c.ConfThreshold) {
		return common.NewConfigError("conf_threshold", c.ConfThreshold, "must be in [0,1]")
	}
	if !inUnit(c.IoUThreshold) {
		return common.NewConfigError("iou_threshold", c.IoUThreshold, "must be in [0,1]")
	}
	return nil
}

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// Merge deduplicates detections pooled from every tile, in image coordinates.
//
// Detections at or below the confidence threshold are dropped, the rest are
// sorted by descending confidence and reduced with greedy NMS. The result is
// independent of input order.
//
// Arguments:
//   - detections: Image-global detections from all tiles. Not modified.
//   - config: The merge thresholds.
//
// Returns:
//   - []Detection: The surviving detections by descending confidence; empty, not nil, when none survive.
//   - error: A *common.ConfigError for thresholds outside [0,1] or a
//     *common.InvalidDetectionError for the first malformed detection.
//
// @example
// kept, err := postprocess.Merge(pooled, postprocess.MergeConfig{ConfThreshold: 0.5, IoUThreshold: 0.4})
func Merge(detections []Detection, config MergeConfig) ([]Detection, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	for i, d := range detections {
		if err := d.Validate(i); err != nil {
			return nil, err
		}
	}

	candidates := FilterByConfidence(detections, config.ConfThreshold)
	SortByConfidence(candidates)

	return ApplyGreedyNMS(candidates, NMSConfig{
		IoUThreshold: config.IoUThreshold,
		ClassAware:   config.ClassAware,
	}), nil
}
