package tiling

import "github.com/nvr-ai/go-tiled/models/postprocess"

// Remap translates tile-local detections into image coordinates by adding the
// window offset to both corners. Confidence, class and label pass through.
// Nothing is filtered, and the input slice is not modified.
//
// Arguments:
//   - detections: Detections in the tile's coordinate frame.
//   - win: The window the tile was sampled from.
//
// Returns:
//   - []postprocess.Detection: New detections in image coordinates.
func Remap(detections []postprocess.Detection, win Window) []postprocess.Detection {
	out := make([]postprocess.Detection, len(detections))
	dx, dy := float64(win.X), float64(win.Y)
	for i, d := range detections {
		d.Box = d.Box.Offset(dx, dy)
		out[i] = d
	}
	return out
}
