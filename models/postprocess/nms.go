package postprocess

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold float64 `json:"iou_threshold" yaml:"iou_threshold"` // Overlap above which the lower-ranked box is suppressed.
	ClassAware   bool    `json:"class_aware" yaml:"class_aware"`     // If true, suppress only within the same class.
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression.
//
// The highest-ranked remaining detection is kept and every remaining
// detection whose IoU with it exceeds the threshold is discarded, until no
// candidates remain.
//
// Arguments:
//   - detections: Slice of detections sorted by descending confidence.
//   - config: NMS configuration.
//
// Returns:
//   - Filtered slice of detections, in input order. Empty (not nil) for empty input.
func ApplyGreedyNMS(detections []Detection, config NMSConfig) []Detection {
	n := len(detections)
	filtered := make([]Detection, 0, n)
	if n <= 1 {
		return append(filtered, detections...)
	}

	used := make([]bool, n)
	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := detections[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if config.ClassAware && anchor.ClassID != detections[j].ClassID {
				continue
			}

			// Suppress if IoU exceeds threshold.
			if anchor.Box.IoU(detections[j].Box) > config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}
