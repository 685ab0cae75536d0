package postprocess

import (
	"math"
	"math/rand"
	"testing"

	"github.com/nvr-ai/go-tiled/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func det(x1, y1, x2, y2, conf float64, class int) Detection {
	return Detection{Box: common.NewBoundingBox(x1, y1, x2, y2), Confidence: conf, ClassID: class}
}

func TestMergeDuplicateAcrossTiles(t *testing.T) {
	pooled := []Detection{
		det(105, 105, 205, 205, 0.85, 0),
		det(100, 100, 200, 200, 0.9, 0),
	}

	kept, err := Merge(pooled, MergeConfig{ConfThreshold: 0.5, IoUThreshold: 0.4})
	require.NoError(t, err, "merge should succeed")
	require.Len(t, kept, 1, "the duplicate should be suppressed")
	assert.Equal(t, 0.9, kept[0].Confidence, "the higher-confidence box should survive")
	assert.Equal(t, common.NewBoundingBox(100, 100, 200, 200), kept[0].Box)
}

func TestMergeDropsLowConfidence(t *testing.T) {
	pooled := []Detection{
		det(0, 0, 10, 10, 0.4, 0),
		det(500, 500, 600, 600, 0.7, 0),
		det(50, 50, 60, 60, 0.5, 0),
	}

	kept, err := Merge(pooled, MergeConfig{ConfThreshold: 0.5, IoUThreshold: 0.4})
	require.NoError(t, err)
	require.Len(t, kept, 1, "0.4 and the boundary value 0.5 should be filtered")
	assert.Equal(t, 0.7, kept[0].Confidence)
}

func TestMergeEmpty(t *testing.T) {
	kept, err := Merge(nil, MergeConfig{ConfThreshold: 0.5, IoUThreshold: 0.4})
	require.NoError(t, err, "empty input is not an error")
	assert.NotNil(t, kept)
	assert.Empty(t, kept)

	kept, err = Merge([]Detection{det(0, 0, 1, 1, 0.1, 0)}, MergeConfig{ConfThreshold: 0.5, IoUThreshold: 0.4})
	require.NoError(t, err)
	assert.Empty(t, kept, "nothing above threshold yields an empty set")
}

func TestMergeSingle(t *testing.T) {
	kept, err := Merge([]Detection{det(1, 2, 3, 4, 0.9, 7)}, MergeConfig{ConfThreshold: 0.5, IoUThreshold: 0})
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, 7, kept[0].ClassID)
}

func TestMergeConfigErrors(t *testing.T) {
	tests := []MergeConfig{
		{ConfThreshold: -0.1, IoUThreshold: 0.4},
		{ConfThreshold: 1.1, IoUThreshold: 0.4},
		{ConfThreshold: 0.5, IoUThreshold: -1},
		{ConfThreshold: 0.5, IoUThreshold: 1.5},
		{ConfThreshold: math.NaN(), IoUThreshold: 0.4},
	}
	for _, cfg := range tests {
		_, err := Merge([]Detection{det(0, 0, 1, 1, 0.9, 0)}, cfg)
		require.Error(t, err, "config %+v should be rejected", cfg)
		assert.True(t, common.IsConfigError(err), "config %+v should yield ConfigError", cfg)
	}

	_, err := Merge(nil, MergeConfig{ConfThreshold: 0, IoUThreshold: 1})
	assert.NoError(t, err, "inclusive bounds are valid")
}

func TestMergeInvalidDetections(t *testing.T) {
	tests := map[string]Detection{
		"zero width":      det(10, 10, 10, 20, 0.9, 0),
		"inverted height": det(10, 20, 20, 10, 0.9, 0),
		"nan":             det(math.NaN(), 0, 10, 10, 0.9, 0),
		"confidence > 1":  det(0, 0, 10, 10, 1.2, 0),
		"confidence < 0":  det(0, 0, 10, 10, -0.1, 0),
	}
	for name, d := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Merge([]Detection{det(0, 0, 5, 5, 0.9, 0), d}, MergeConfig{ConfThreshold: 0.5, IoUThreshold: 0.4})
			require.Error(t, err)
			assert.True(t, common.IsInvalidDetectionError(err), "expected InvalidDetectionError, got %v", err)
		})
	}
}

func TestMergeClassAgnosticByDefault(t *testing.T) {
	pooled := []Detection{
		det(0, 0, 100, 100, 0.9, 0),
		det(2, 2, 100, 100, 0.8, 1),
	}

	agnostic, err := Merge(pooled, MergeConfig{ConfThreshold: 0.5, IoUThreshold: 0.4})
	require.NoError(t, err)
	assert.Len(t, agnostic, 1, "overlapping boxes of different classes are suppressed by default")

	aware, err := Merge(pooled, MergeConfig{ConfThreshold: 0.5, IoUThreshold: 0.4, ClassAware: true})
	require.NoError(t, err)
	assert.Len(t, aware, 2, "class-aware merge keeps overlapping boxes of different classes")
}

func randomDetections(r *rand.Rand, n int) []Detection {
	out := make([]Detection, n)
	for i := range out {
		x := r.Float64() * 1000
		y := r.Float64() * 1000
		w := 20 + r.Float64()*80
		h := 20 + r.Float64()*80
		out[i] = det(x, y, x+w, y+h, math.Round(r.Float64()*100)/100, r.Intn(3))
	}
	return out
}

func TestMergeOrderInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	pooled := randomDetections(r, 300)
	cfg := MergeConfig{ConfThreshold: 0.3, IoUThreshold: 0.4}

	want, err := Merge(pooled, cfg)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		shuffled := append([]Detection(nil), pooled...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := Merge(shuffled, cfg)
		require.NoError(t, err)
		assert.Equal(t, want, got, "merge output must not depend on pooling order")
	}
}

func TestMergeIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	cfg := MergeConfig{ConfThreshold: 0.2, IoUThreshold: 0.3}

	once, err := Merge(randomDetections(r, 400), cfg)
	require.NoError(t, err)
	twice, err := Merge(once, cfg)
	require.NoError(t, err)

	assert.Equal(t, once, twice, "merging a merged set must not suppress further")
}

func TestMergeConfidenceMonotonic(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	pooled := randomDetections(r, 400)

	prev := math.MaxInt
	for _, conf := range []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1} {
		kept, err := Merge(pooled, MergeConfig{ConfThreshold: conf, IoUThreshold: 0.4})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(kept), prev, "raising conf_thres to %v must not add detections", conf)
		prev = len(kept)
	}
}

func TestMergeIoUThresholdChain(t *testing.T) {
	// A chain of boxes shifted by 10px; each neighbour pair has IoU ~0.67.
	var pooled []Detection
	for i := 0; i < 5; i++ {
		x := float64(i * 10)
		pooled = append(pooled, det(x, 0, x+50, 50, 0.9-float64(i)*0.1, 0))
	}

	prev := 0
	for _, iou := range []float64{0, 0.2, 0.4, 0.6, 0.7, 1} {
		kept, err := Merge(pooled, MergeConfig{ConfThreshold: 0, IoUThreshold: iou})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(kept), prev, "raising iou_thres to %v must not remove detections", iou)
		prev = len(kept)
	}
	assert.Equal(t, 5, prev, "iou_thres=1 keeps every distinct box")
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	pooled := []Detection{
		det(0, 0, 10, 10, 0.6, 0),
		det(0, 0, 10, 10, 0.9, 0),
	}
	snapshot := append([]Detection(nil), pooled...)

	_, err := Merge(pooled, MergeConfig{ConfThreshold: 0.5, IoUThreshold: 0.4})
	require.NoError(t, err)
	assert.Equal(t, snapshot, pooled)
}
