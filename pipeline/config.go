// Package pipeline - Tiled large-image detection: plan, sample, detect per
// tile on a bounded worker pool, remap and merge.
package pipeline

import (
	"image/color"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/nvr-ai/go-tiled/common"
	"github.com/nvr-ai/go-tiled/models/postprocess"
	"github.com/nvr-ai/go-tiled/tiling"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FailurePolicy decides what happens when the detector fails on a tile.
type FailurePolicy string

const (
	// PolicySkip records the failure and continues; the tile contributes no detections.
	PolicySkip FailurePolicy = "skip"
	// PolicyRetry retries the tile up to MaxRetries times, then skips it.
	PolicyRetry FailurePolicy = "retry"
	// PolicyAbort cancels the remaining tiles and fails the whole image.
	PolicyAbort FailurePolicy = "abort"
)

// Config holds the pipeline tunables.
type Config struct {
	// TileSize is the detector's expected square input resolution.
	TileSize int `json:"tile_size" yaml:"tile_size"`
	// OverlapRatio is the fraction of the tile shared by adjacent tiles.
	// Larger values capture more boundary objects at the cost of more inference.
	OverlapRatio float64 `json:"overlap_ratio" yaml:"overlap_ratio"`
	// ConfThreshold is the minimum confidence (exclusive) a detection needs to be kept.
	ConfThreshold float64 `json:"conf_threshold" yaml:"conf_threshold"`
	// IoUThreshold is the maximum overlap between two kept detections before
	// the lower-confidence one is suppressed.
	IoUThreshold float64 `json:"iou_threshold" yaml:"iou_threshold"`
	// ClassAware limits suppression to detections of the same class.
	ClassAware bool `json:"class_aware" yaml:"class_aware"`
	// DetectorThreshold is passed to the detector. Nil uses ConfThreshold.
	DetectorThreshold *float64 `json:"detector_threshold,omitempty" yaml:"detector_threshold,omitempty"`
	// Workers bounds the number of tiles inferred concurrently.
	Workers int `json:"workers" yaml:"workers"`
	// TileTimeout bounds each detector call. Zero disables the timeout.
	TileTimeout time.Duration `json:"tile_timeout" yaml:"tile_timeout"`
	// FailurePolicy is one of skip, retry or abort.
	FailurePolicy FailurePolicy `json:"failure_policy" yaml:"failure_policy"`
	// MaxRetries is the number of extra attempts per tile under the retry policy.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
	// RetryBackoff is the delay before each retry, multiplied by the attempt number.
	RetryBackoff time.Duration `json:"retry_backoff" yaml:"retry_backoff"`
	// PadColor is the hex colour used to pad edge tiles.
	PadColor string `json:"pad_color" yaml:"pad_color"`
}

// DefaultConfig returns the reference tunables: 640 tiles, 20% overlap,
// 0.5 confidence and 0.4 IoU, skipping failed tiles.
func DefaultConfig() Config {
	return Config{
		TileSize:      640,
		OverlapRatio:  0.2,
		ConfThreshold: 0.5,
		IoUThreshold:  0.4,
		Workers:       runtime.NumCPU(),
		FailurePolicy: PolicySkip,
		MaxRetries:    2,
		RetryBackoff:  100 * time.Millisecond,
		PadColor:      "#000000",
	}
}

// Validate returns a *common.ConfigError for the first invalid tunable.
func (c Config) Validate() error {
	if _, err := tiling.Step(c.TileSize, c.OverlapRatio); err != nil {
		return err
	}
	if err := c.MergeConfig().Validate(); err != nil {
		return err
	}
	if t := c.DetectorThreshold; t != nil && (math.IsNaN(*t) || *t < 0 || *t > 1) {
		return common.NewConfigError("detector_threshold", *t, "must be in [0,1]")
	}
	if c.Workers < 0 {
		return common.NewConfigError("workers", c.Workers, "must be non-negative")
	}
	if c.TileTimeout < 0 {
		return common.NewConfigError("tile_timeout", c.TileTimeout, "must be non-negative")
	}
	switch c.FailurePolicy {
	case PolicySkip, PolicyRetry, PolicyAbort:
	default:
		return common.NewConfigError("failure_policy", c.FailurePolicy, "must be skip, retry or abort")
	}
	if c.MaxRetries < 0 {
		return common.NewConfigError("max_retries", c.MaxRetries, "must be non-negative")
	}
	if c.RetryBackoff < 0 {
		return common.NewConfigError("retry_backoff", c.RetryBackoff, "must be non-negative")
	}
	if _, err := c.Fill(); err != nil {
		return err
	}
	return nil
}

// MergeConfig returns the thresholds used by the merge step.
func (c Config) MergeConfig() postprocess.MergeConfig {
	return postprocess.MergeConfig{
		ConfThreshold: c.ConfThreshold,
		IoUThreshold:  c.IoUThreshold,
		ClassAware:    c.ClassAware,
	}
}

// DetectorConfidence returns the threshold passed to the detector.
func (c Config) DetectorConfidence() float64 {
	if c.DetectorThreshold != nil {
		return *c.DetectorThreshold
	}
	return c.ConfThreshold
}

// WorkerCount returns the effective pool size for n tiles.
func (c Config) WorkerCount(n int) int {
	w := c.Workers
	if w <= 0 {
		w = runtime.NumCPU()
	}
	return max(1, min(w, n))
}

// Attempts returns the number of detector calls allowed per tile.
func (c Config) Attempts() int {
	if c.FailurePolicy == PolicyRetry {
		return 1 + c.MaxRetries
	}
	return 1
}

// Fill parses PadColor. An empty value is black.
func (c Config) Fill() (color.Color, error) {
	if c.PadColor == "" {
		return tiling.DefaultFill, nil
	}
	pad, err := colorful.Hex(c.PadColor)
	if err != nil {
		return nil, common.NewConfigError("pad_color", c.PadColor, "must be a #rrggbb hex colour")
	}
	r, g, b := pad.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
//
// Arguments:
//   - path: The YAML file.
//
// Returns:
//   - Config: The merged configuration.
//   - error: A read error, or a *common.ConfigError for malformed or invalid values.
//
// @example
// cfg, err := pipeline.LoadConfig("tiling.yaml")
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, common.NewConfigError("yaml", "", "%v", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
