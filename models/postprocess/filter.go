package postprocess

import "sort"

// FilterByConfidence returns the detections whose confidence is strictly
// greater than threshold. The input slice is not modified.
func FilterByConfidence(detections []Detection, threshold float64) []Detection {
	out := make([]Detection, 0, len(detections))
	for _, d := range detections {
		if d.Confidence > threshold {
			out = append(out, d)
		}
	}
	return out
}

// SortByConfidence sorts detections in place by descending confidence.
// Ties are broken by X1, Y1, X2, Y2 and ClassID ascending so the order does
// not depend on input order.
func SortByConfidence(detections []Detection) {
	sort.SliceStable(detections, func(i, j int) bool {
		return less(detections[i], detections[j])
	})
}

func less(a, b Detection) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Box.X1 != b.Box.X1 {
		return a.Box.X1 < b.Box.X1
	}
	if a.Box.Y1 != b.Box.Y1 {
		return a.Box.Y1 < b.Box.Y1
	}
	if a.Box.X2 != b.Box.X2 {
		return a.Box.X2 < b.Box.X2
	}
	if a.Box.Y2 != b.Box.Y2 {
		return a.Box.Y2 < b.Box.Y2
	}
	return a.ClassID < b.ClassID
}

// CountByClass returns the number of detections per class index.
func CountByClass(detections []Detection) map[int]int {
	counts := make(map[int]int)
	for _, d := range detections {
		counts[d.ClassID]++
	}
	return counts
}
