package pipeline

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/nvr-ai/go-tiled/common"
	"github.com/nvr-ai/go-tiled/images"
	"github.com/nvr-ai/go-tiled/models/model"
	"github.com/nvr-ai/go-tiled/models/postprocess"
	"github.com/nvr-ai/go-tiled/profiler"
	"github.com/nvr-ai/go-tiled/tiling"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Pipeline runs a tile detector over large images.
type Pipeline struct {
	config   Config
	detector model.Detector
	sampler  *tiling.Sampler
	log      logrus.FieldLogger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is logrus.StandardLogger().
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// New validates the configuration and creates a pipeline.
//
// Arguments:
//   - detector: The tile detector. It may be called concurrently.
//   - config: The pipeline tunables.
//   - opts: Optional settings.
//
// Returns:
//   - *Pipeline: The pipeline.
//   - error: A *common.ConfigError for invalid tunables, or when the detector
//     reports a training pad colour different from config.PadColor.
func New(detector model.Detector, config Config, opts ...Option) (*Pipeline, error) {
	if detector == nil {
		return nil, common.NewConfigError("detector", nil, "is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	fill, err := config.Fill()
	if err != nil {
		return nil, err
	}
	if pc, ok := detector.(model.PadColorer); ok && !model.SameColor(pc.PadColor(), fill) {
		return nil, common.NewConfigError("pad_color", config.PadColor,
			"detector %s was trained with padding %v", model.NameOf(detector), pc.PadColor())
	}

	p := &Pipeline{
		config:   config,
		detector: detector,
		sampler:  &tiling.Sampler{TileSize: config.TileSize, Fill: fill},
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// Stage names recorded in Result.Timings.
const (
	StageSample = "sample"
	StageInfer  = "infer"
	StageMerge  = "merge"
)

// tileOutcome is the per-tile result written to its own slot by a worker.
type tileOutcome struct {
	window     tiling.Window
	detections []postprocess.Detection
	discarded  int
	attempts   int
	err        error
	scheduled  bool
}

// Detect finds objects in img.
//
// Tiles are inferred on a pool of Config.Workers goroutines. Each worker
// writes only its tile's slot; detections are joined in window order after
// all workers finish, then merged. The result does not depend on the order
// in which tiles complete.
//
// Arguments:
//   - ctx: Cancels the run. Cancellation returns the context error.
//   - img: The source image. It is only read.
//
// Returns:
//   - *Result: The merged detections and the tile report.
//   - error: A *common.ConfigError for unusable images, a
//     *common.TileInferenceError under the abort policy, or the context error.
func (p *Pipeline) Detect(ctx context.Context, img image.Image) (*Result, error) {
	start := time.Now()
	if img == nil {
		return nil, common.NewImageReadError("", errors.New("image is nil"))
	}
	bounds := img.Bounds()
	windows, err := tiling.Plan(bounds.Dx(), bounds.Dy(), p.config.TileSize, p.config.OverlapRatio)
	if err != nil {
		return nil, err
	}

	log := p.log.WithFields(logrus.Fields{
		"width":    bounds.Dx(),
		"height":   bounds.Dy(),
		"tiles":    len(windows),
		"detector": model.NameOf(p.detector),
	})
	log.Debug("planned tiles")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	timings := profiler.New()
	outcomes := make([]tileOutcome, len(windows))
	jobs := make(chan int)
	var (
		wg        sync.WaitGroup
		abortOnce sync.Once
		abort     *TileFailure
	)

	workers := p.config.WorkerCount(len(windows))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if runCtx.Err() != nil {
					continue
				}
				out := p.processTile(runCtx, img, windows[idx], timings, log)
				outcomes[idx] = out
				if out.err != nil && p.config.FailurePolicy == PolicyAbort {
					abortOnce.Do(func() {
						f := newTileFailure(out.window, out.attempts, out.err)
						abort = &f
					})
					cancel()
				}
			}
		}()
	}

schedule:
	for i := range windows {
		select {
		case jobs <- i:
		case <-runCtx.Done():
			break schedule
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "detect large image")
	}
	if abort != nil {
		log.WithError(abort.Err).Error("aborting image after tile failure")
		return nil, abort.Err
	}

	result := &Result{Width: bounds.Dx(), Height: bounds.Dy(), Windows: windows}
	var pooled []postprocess.Detection
	for _, out := range outcomes {
		if !out.scheduled {
			continue
		}
		result.DetectionsDiscarded += out.discarded
		if out.attempts > 1 {
			result.TilesRetried++
		}
		if out.err != nil {
			result.TilesFailed++
			result.Failures = append(result.Failures, newTileFailure(out.window, out.attempts, out.err))
			continue
		}
		pooled = append(pooled, out.detections...)
	}
	result.Candidates = len(pooled)

	stopMerge := timings.Time(StageMerge)
	merged, err := postprocess.Merge(pooled, p.config.MergeConfig())
	stopMerge()
	if err != nil {
		return nil, err
	}
	result.Detections = merged
	result.Stats = Summarize(merged, bounds.Dx(), bounds.Dy())
	result.Timings = timings.Summaries()
	result.Elapsed = time.Since(start)

	entry := log.WithFields(logrus.Fields{
		"candidates": result.Candidates,
		"detections": len(merged),
		"failed":     result.TilesFailed,
		"discarded":  result.DetectionsDiscarded,
		"elapsed":    result.Elapsed,
	})
	if result.Complete() {
		entry.Info("detection complete")
	} else {
		entry.Warn("detection complete with failed tiles")
	}
	return result, nil
}

// processTile samples one window, runs the detector under the failure
// policy, drops malformed detections and remaps the rest.
func (p *Pipeline) processTile(ctx context.Context, img image.Image, win tiling.Window, timings *profiler.TimeTracker, log logrus.FieldLogger) tileOutcome {
	out := tileOutcome{window: win, scheduled: true}
	tlog := log.WithFields(logrus.Fields{"tile": win.Index, "x": win.X, "y": win.Y})

	stopSample := timings.Time(StageSample)
	tile, err := p.sampler.Sample(img, win)
	stopSample()
	if err != nil {
		out.err = err
		return out
	}

	var dets []postprocess.Detection
	for attempt := 1; attempt <= p.config.Attempts(); attempt++ {
		out.attempts = attempt
		stopInfer := timings.Time(StageInfer)
		dets, err = p.detectOnce(ctx, tile.Image)
		stopInfer()
		if err == nil {
			break
		}
		tlog.WithError(err).WithField("attempt", attempt).Warn("tile inference failed")
		if ctx.Err() != nil || attempt == p.config.Attempts() {
			break
		}
		if !sleep(ctx, p.config.RetryBackoff*time.Duration(attempt)) {
			err = ctx.Err()
			break
		}
	}
	if err != nil {
		out.err = err
		return out
	}

	size := float64(p.config.TileSize)
	valid := make([]postprocess.Detection, 0, len(dets))
	for i, d := range dets {
		if verr := d.ValidateWithin(i, size, size); verr != nil {
			out.discarded++
			tlog.WithError(verr).Warn("discarding invalid detection")
			continue
		}
		valid = append(valid, d)
	}
	out.detections = tiling.Remap(valid, win)

	tlog.WithFields(logrus.Fields{
		"detections": len(valid),
		"discarded":  out.discarded,
	}).Debug("tile done")
	return out
}

// detectOnce runs the detector with the per-tile timeout. A detector that
// ignores its context is abandoned when the timeout fires. Panics are
// returned as errors.
func (p *Pipeline) detectOnce(ctx context.Context, tile image.Image) ([]postprocess.Detection, error) {
	if p.config.TileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.TileTimeout)
		defer cancel()
	}

	type reply struct {
		dets []postprocess.Detection
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: fmt.Errorf("detector panic: %v", r)}
			}
		}()
		dets, err := p.detector.Detect(ctx, tile, p.config.DetectorConfidence())
		done <- reply{dets: dets, err: err}
	}()

	select {
	case r := <-done:
		return r.dets, r.err
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "tile inference")
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// DetectLargeImage runs the pipeline once over img.
//
// @example
// result, err := pipeline.DetectLargeImage(ctx, img, detector, pipeline.DefaultConfig())
func DetectLargeImage(ctx context.Context, img image.Image, detector model.Detector, config Config, opts ...Option) (*Result, error) {
	p, err := New(detector, config, opts...)
	if err != nil {
		return nil, err
	}
	return p.Detect(ctx, img)
}

// DetectFile loads the image at path and runs the pipeline. Configuration is
// validated before the image is read; unreadable images fail with a
// *common.ImageReadError before any tiling work.
func DetectFile(ctx context.Context, path string, detector model.Detector, config Config, opts ...Option) (*Result, image.Image, error) {
	p, err := New(detector, config, opts...)
	if err != nil {
		return nil, nil, err
	}
	img, err := images.Load(path)
	if err != nil {
		return nil, nil, err
	}
	result, err := p.Detect(ctx, img)
	if err != nil {
		return nil, nil, err
	}
	return result, img, nil
}
