package yolov8

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-tiled/common"
	"github.com/nvr-ai/go-tiled/models/postprocess"
	"gorgonia.org/tensor"
)

// DecodeConfig controls how raw candidates become tile-local detections.
type DecodeConfig struct {
	// ConfidenceThreshold drops candidates whose best class score is <= this value.
	ConfidenceThreshold float64
	// TileSize clamps boxes to [0, TileSize].
	TileSize int
	// IoUThreshold is the intra-tile NMS threshold. Zero disables it.
	IoUThreshold float64
}

// Decode transforms the raw output of the model into tile-local detections by:
//   - Transposing the output to one row per candidate.
//   - Picking the best class score per candidate and filtering by confidence.
//   - Converting (cx, cy, w, h) to corners clamped to the tile.
//   - Applying class-aware greedy NMS within the tile.
//
// Arguments:
//   - output: The raw output tensor data. Not modified.
//   - layout: The output tensor layout.
//   - config: The decode configuration.
//
// Returns:
//   - []postprocess.Detection: Detections sorted by descending confidence.
//   - error: An error if the output does not match the layout.
func Decode(output []float32, layout OutputLayout, config DecodeConfig) ([]postprocess.Detection, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if len(output) != layout.Size() {
		return nil, fmt.Errorf("output holds %d floats, layout %v needs %d", len(output), layout.Shape(), layout.Size())
	}

	rows, err := candidateRows(output, layout)
	if err != nil {
		return nil, err
	}

	attrs := layout.Attributes()
	size := float32(config.TileSize)
	results := make([]postprocess.Detection, 0, 16)

	for i := 0; i < layout.Candidates; i++ {
		row := rows[i*attrs : (i+1)*attrs]

		classID := 0
		maxScore := float32(-1)
		for j, score := range row[4:] {
			if score > maxScore {
				maxScore = score
				classID = j
			}
		}
		if float64(maxScore) <= config.ConfidenceThreshold {
			continue
		}

		cx, cy, w, h := row[0], row[1], row[2], row[3]
		x1 := clamp(cx-w/2, size)
		y1 := clamp(cy-h/2, size)
		x2 := clamp(cx+w/2, size)
		y2 := clamp(cy+h/2, size)
		if x2 <= x1 || y2 <= y1 {
			continue
		}

		results = append(results, postprocess.Detection{
			Box:        common.NewBoundingBox(float64(x1), float64(y1), float64(x2), float64(y2)),
			Confidence: float64(maxScore),
			ClassID:    classID,
		})
	}

	postprocess.SortByConfidence(results)
	if config.IoUThreshold <= 0 {
		return results, nil
	}
	return postprocess.ApplyGreedyNMS(results, postprocess.NMSConfig{
		IoUThreshold: config.IoUThreshold,
		ClassAware:   true,
	}), nil
}

// candidateRows returns the output as [candidates, attributes] in row-major order.
func candidateRows(output []float32, layout OutputLayout) ([]float32, error) {
	backing := make([]float32, len(output))
	copy(backing, output)
	if layout.RowMajor {
		return backing, nil
	}

	t := tensor.New(tensor.WithShape(layout.Attributes(), layout.Candidates), tensor.WithBacking(backing))
	if err := t.T(); err != nil {
		return nil, fmt.Errorf("transpose output: %w", err)
	}
	if err := t.Transpose(); err != nil {
		return nil, fmt.Errorf("materialize transposed output: %w", err)
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected tensor data type %T", t.Data())
	}
	return data, nil
}

func clamp(v, size float32) float32 {
	if math32.IsNaN(v) {
		return 0
	}
	return math32.Min(math32.Max(v, 0), size)
}
