package pipeline

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/nvr-ai/go-tiled/common"
	"github.com/nvr-ai/go-tiled/models/postprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 640, cfg.TileSize)
	assert.Equal(t, 0.2, cfg.OverlapRatio)
	assert.Equal(t, 0.5, cfg.ConfThreshold)
	assert.Equal(t, 0.4, cfg.IoUThreshold)
	assert.False(t, cfg.ClassAware, "merge is class-agnostic by default")
	assert.Equal(t, PolicySkip, cfg.FailurePolicy)
	assert.Equal(t, 1, cfg.Attempts())
	assert.Equal(t, 0.5, cfg.DetectorConfidence())
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
tile_size: 1024
overlap_ratio: 0.25
conf_threshold: 0.35
class_aware: true
detector_threshold: 0.1
workers: 3
tile_timeout: 2s
failure_policy: retry
max_retries: 4
pad_color: "#727272"
`))
	require.NoError(t, err, "valid YAML should parse")

	assert.Equal(t, 1024, cfg.TileSize)
	assert.Equal(t, 0.25, cfg.OverlapRatio)
	assert.Equal(t, 0.35, cfg.ConfThreshold)
	assert.Equal(t, 0.4, cfg.IoUThreshold, "unset keys keep their defaults")
	assert.True(t, cfg.ClassAware)
	assert.Equal(t, 0.1, cfg.DetectorConfidence())
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 2*time.Second, cfg.TileTimeout)
	assert.Equal(t, PolicyRetry, cfg.FailurePolicy)
	assert.Equal(t, 5, cfg.Attempts())

	fill, err := cfg.Fill()
	require.NoError(t, err)
	assert.Equal(t, cfg.MergeConfig(), postprocess.MergeConfig{ConfThreshold: 0.35, IoUThreshold: 0.4, ClassAware: true})
	r, g, b, _ := fill.RGBA()
	assert.Equal(t, []uint32{114, 114, 114}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig([]byte("overlap_ratio: 1.0"))
	assert.True(t, common.IsConfigError(err), "invalid values are ConfigErrors")

	_, err = ParseConfig([]byte("tile_size: [1, 2"))
	assert.True(t, common.IsConfigError(err), "malformed YAML is a ConfigError")

	_, err = ParseConfig([]byte("detector_threshold: 3"))
	assert.True(t, common.IsConfigError(err))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiling.yaml")
	require.NoError(t, os.WriteFile(path, []byte("iou_threshold: 0.55\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.55, cfg.IoUThreshold)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWorkerCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 8
	assert.Equal(t, 3, cfg.WorkerCount(3), "never more workers than tiles")
	assert.Equal(t, 8, cfg.WorkerCount(100))

	cfg.Workers = 0
	assert.Equal(t, min(runtime.NumCPU(), 100), cfg.WorkerCount(100))
	assert.Equal(t, 1, cfg.WorkerCount(0))
}

func TestSummarize(t *testing.T) {
	s := Summarize(nil, 100, 100)
	assert.Equal(t, 0, s.Count)
	assert.Equal(t, 0.0, s.MeanConfidence)

	dets := []postprocess.Detection{
		{Box: common.NewBoundingBox(0, 0, 10, 10), Confidence: 0.6, ClassID: 0},
		{Box: common.NewBoundingBox(0, 0, 20, 10), Confidence: 0.8, ClassID: 0},
		{Box: common.NewBoundingBox(0, 0, 30, 10), Confidence: 1.0, ClassID: 2},
	}
	s = Summarize(dets, 1000, 1000)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 0.8, s.MeanConfidence, 1e-9)
	assert.InDelta(t, 0.2, s.StdConfidence, 1e-9, "sample standard deviation")
	assert.Equal(t, 0.6, s.MinConfidence)
	assert.Equal(t, 1.0, s.MaxConfidence)
	assert.Equal(t, map[int]int{0: 2, 2: 1}, s.PerClass)
	assert.InDelta(t, 3.0, s.PerMegapixel, 1e-9)
	assert.InDelta(t, 200.0, s.MeanArea, 1e-9)

	single := Summarize(dets[:1], 1000, 1000)
	assert.Equal(t, 0.0, single.StdConfidence, "one detection has no spread")
}
