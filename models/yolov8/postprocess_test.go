package yolov8

import (
	"testing"

	"github.com/nvr-ai/go-tiled/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// columnMajor builds a [4+nc, n] output from per-candidate rows.
func columnMajor(rows [][]float32) []float32 {
	attrs := len(rows[0])
	out := make([]float32, attrs*len(rows))
	for i, row := range rows {
		for a, v := range row {
			out[a*len(rows)+i] = v
		}
	}
	return out
}

func TestCandidatesFor(t *testing.T) {
	assert.Equal(t, 8400, CandidatesFor(640))
	assert.Equal(t, 2100, CandidatesFor(320))

	layout := DefaultLayout(640, 80)
	assert.Equal(t, []int64{1, 84, 8400}, layout.Shape())
	assert.Equal(t, 84*8400, layout.Size())
}

func TestDecode(t *testing.T) {
	rows := [][]float32{
		// cx, cy, w, h, class0, class1
		{100, 100, 50, 50, 0.9, 0.1},
		{102, 101, 50, 50, 0.8, 0.05}, // duplicate of the first
		{300, 300, 40, 20, 0.2, 0.7},
		{500, 500, 10, 10, 0.3, 0.4},  // below threshold
		{630, 630, 40, 40, 0.1, 0.95}, // clamped to the tile
	}
	layout := OutputLayout{NumClasses: 2, Candidates: len(rows)}

	dets, err := Decode(columnMajor(rows), layout, DecodeConfig{ConfidenceThreshold: 0.5, TileSize: 640, IoUThreshold: 0.7})
	require.NoError(t, err, "decode should succeed")
	require.Len(t, dets, 3)

	assert.InDelta(t, 0.95, dets[0].Confidence, 1e-6)
	assert.Equal(t, 1, dets[0].ClassID)
	assert.Equal(t, common.NewBoundingBox(610, 610, 640, 640), dets[0].Box, "box should be clamped to the tile")

	assert.InDelta(t, 0.9, dets[1].Confidence, 1e-6)
	assert.Equal(t, common.NewBoundingBox(75, 75, 125, 125), dets[1].Box)

	assert.Equal(t, 1, dets[2].ClassID)
	assert.Equal(t, common.NewBoundingBox(280, 290, 320, 310), dets[2].Box)
}

func TestDecodeRowMajor(t *testing.T) {
	out := []float32{
		10, 10, 4, 4, 0.6,
		20, 20, 4, 4, 0.4,
	}
	layout := OutputLayout{NumClasses: 1, Candidates: 2, RowMajor: true}

	dets, err := Decode(out, layout, DecodeConfig{ConfidenceThreshold: 0.5, TileSize: 32})
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, common.NewBoundingBox(8, 8, 12, 12), dets[0].Box)
}

func TestDecodeDoesNotModifyOutput(t *testing.T) {
	rows := [][]float32{{10, 10, 4, 4, 0.6}, {20, 20, 4, 4, 0.7}}
	out := columnMajor(rows)
	snapshot := append([]float32(nil), out...)

	_, err := Decode(out, OutputLayout{NumClasses: 1, Candidates: 2}, DecodeConfig{ConfidenceThreshold: 0.5, TileSize: 32})
	require.NoError(t, err)
	assert.Equal(t, snapshot, out)
}

func TestDecodeDropsDegenerate(t *testing.T) {
	rows := [][]float32{{-50, -50, 10, 10, 0.9}, {10, 10, 0, 5, 0.9}}
	dets, err := Decode(columnMajor(rows), OutputLayout{NumClasses: 1, Candidates: 2}, DecodeConfig{ConfidenceThreshold: 0.5, TileSize: 64})
	require.NoError(t, err)
	assert.Empty(t, dets, "boxes fully outside the tile or with zero width are dropped")
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(make([]float32, 10), OutputLayout{NumClasses: 1, Candidates: 3}, DecodeConfig{TileSize: 64})
	assert.Error(t, err, "size mismatch")

	_, err = Decode(nil, OutputLayout{NumClasses: 0, Candidates: 3}, DecodeConfig{TileSize: 64})
	assert.Error(t, err, "invalid layout")
}
