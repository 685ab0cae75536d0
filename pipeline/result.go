package pipeline

import (
	"time"

	"github.com/nvr-ai/go-tiled/common"
	"github.com/nvr-ai/go-tiled/models/postprocess"
	"github.com/nvr-ai/go-tiled/profiler"
	"github.com/nvr-ai/go-tiled/tiling"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TileFailure records a tile that contributed no detections.
type TileFailure struct {
	Window   tiling.Window `json:"window"`
	Attempts int           `json:"attempts"`
	Message  string        `json:"error"`
	Err      error         `json:"-"`
}

// Result is the outcome of one large-image run.
type Result struct {
	// Detections is the merged set in image coordinates, by descending confidence.
	Detections []postprocess.Detection `json:"detections"`
	// Width and Height are the source image dimensions.
	Width  int `json:"width"`
	Height int `json:"height"`
	// Windows is the tile plan in canonical order.
	Windows []tiling.Window `json:"windows"`
	// Candidates is the number of valid remapped detections pooled before merging.
	Candidates int `json:"candidates"`
	// TilesFailed counts tiles that contributed no detections due to detector errors.
	TilesFailed int `json:"tiles_failed"`
	// TilesRetried counts tiles that needed more than one attempt.
	TilesRetried int `json:"tiles_retried"`
	// DetectionsDiscarded counts malformed tile-local detections that were dropped.
	DetectionsDiscarded int `json:"detections_discarded"`
	// Failures describes each failed tile.
	Failures []TileFailure `json:"failures,omitempty"`
	// Stats summarizes the merged detections.
	Stats Stats `json:"stats"`
	// Timings holds per-stage latencies keyed by StageSample, StageInfer and StageMerge.
	Timings map[string]profiler.Summary `json:"timings"`
	// Elapsed is the wall time of the run.
	Elapsed time.Duration `json:"elapsed"`
}

// Complete reports whether every tile was inferred successfully.
func (r *Result) Complete() bool {
	return r.TilesFailed == 0
}

// Errors returns the tile failures as *common.TileInferenceError values.
func (r *Result) Errors() []error {
	out := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Err)
	}
	return out
}

// Stats summarizes the confidence and spatial density of a detection set.
type Stats struct {
	Count          int         `json:"count"`
	MeanConfidence float64     `json:"mean_confidence"`
	StdConfidence  float64     `json:"std_confidence"`
	MinConfidence  float64     `json:"min_confidence"`
	MaxConfidence  float64     `json:"max_confidence"`
	PerClass       map[int]int `json:"per_class"`
	// PerMegapixel is the number of detections per million source pixels.
	PerMegapixel float64 `json:"per_megapixel"`
	// MeanArea is the mean box area in square pixels.
	MeanArea float64 `json:"mean_area"`
}

// Summarize computes Stats for detections found in a width x height image.
func Summarize(detections []postprocess.Detection, width, height int) Stats {
	s := Stats{Count: len(detections), PerClass: postprocess.CountByClass(detections)}
	if len(detections) == 0 {
		return s
	}

	confs := make([]float64, len(detections))
	areas := make([]float64, len(detections))
	for i, d := range detections {
		confs[i] = d.Confidence
		areas[i] = d.Box.Area()
	}

	s.MeanConfidence = stat.Mean(confs, nil)
	if len(confs) > 1 {
		s.StdConfidence = stat.StdDev(confs, nil)
	}
	s.MinConfidence = floats.Min(confs)
	s.MaxConfidence = floats.Max(confs)
	s.MeanArea = stat.Mean(areas, nil)
	if pixels := float64(width) * float64(height); pixels > 0 {
		s.PerMegapixel = float64(len(detections)) / pixels * 1e6
	}
	return s
}

func newTileFailure(win tiling.Window, attempts int, err error) TileFailure {
	tileErr := &common.TileInferenceError{Tile: win.Index, X: win.X, Y: win.Y, Attempts: attempts, Err: err}
	return TileFailure{Window: win, Attempts: attempts, Message: tileErr.Error(), Err: tileErr}
}
