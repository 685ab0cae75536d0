package detectors

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/nvr-ai/go-tiled/inference"
	"github.com/nvr-ai/go-tiled/models"
	"github.com/nvr-ai/go-tiled/models/postprocess"
	"github.com/nvr-ai/go-tiled/models/yolov8"
)

// ONNXDetector runs a YOLO tile model through a pool of ONNX Runtime
// sessions. It is safe for concurrent use; at most Config.Sessions tiles are
// inferred at once.
type ONNXDetector struct {
	pool    *inference.SessionPool
	config  Config
	layout  yolov8.OutputLayout
	classes *models.ClassSet
	pad     color.Color
}

// NewONNXDetector initializes the runtime and creates the session pool.
//
// Arguments:
//   - config: The detector configuration.
//
// Returns:
//   - *ONNXDetector: The detector. Call Close to release sessions.
//   - error: An error if the configuration is invalid or the runtime or model cannot be loaded.
func NewONNXDetector(config Config) (*ONNXDetector, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detector config: %w", err)
	}
	pad, err := config.padColor()
	if err != nil {
		return nil, err
	}
	if err := inference.InitializeRuntime(config.LibraryPath); err != nil {
		return nil, err
	}

	layout := config.Layout()
	size := int64(config.TileSize)
	pool, err := inference.NewSessionPool(config.Sessions, inference.NewSessionArgs{
		ModelPath:   config.ModelPath,
		InputName:   config.InputName,
		OutputName:  config.OutputName,
		InputShape:  []int64{1, 3, size, size},
		OutputShape: layout.Shape(),
		Provider:    config.Provider,
	})
	if err != nil {
		return nil, err
	}

	return &ONNXDetector{
		pool:    pool,
		config:  config,
		layout:  layout,
		classes: models.NewClassSet("model", config.Labels...),
		pad:     pad,
	}, nil
}

// Detect runs the model on one tile and returns tile-local detections.
//
// Arguments:
//   - ctx: Cancels the wait for a free session.
//   - tile: A TileSize x TileSize image.
//   - confidenceThreshold: Candidates at or below this score are dropped.
//
// Returns:
//   - []postprocess.Detection: Detections with labels, by descending confidence.
//   - error: An error if the tile has the wrong size or inference fails.
func (d *ONNXDetector) Detect(ctx context.Context, tile image.Image, confidenceThreshold float64) ([]postprocess.Detection, error) {
	session, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	defer d.pool.Release(session)

	if err := inference.PrepareInput(tile, session.Input.GetData(), d.config.TileSize); err != nil {
		return nil, err
	}
	if err := session.Run(); err != nil {
		return nil, fmt.Errorf("error running ORT session: %w", err)
	}

	dets, err := yolov8.Decode(session.Output.GetData(), d.layout, yolov8.DecodeConfig{
		ConfidenceThreshold: confidenceThreshold,
		TileSize:            d.config.TileSize,
		IoUThreshold:        d.config.TileIoU,
	})
	if err != nil {
		return nil, err
	}
	for i := range dets {
		dets[i].Label = d.classes.Label(dets[i].ClassID)
	}
	return dets, nil
}

// PadColor returns the padding colour the model was trained with.
func (d *ONNXDetector) PadColor() color.Color {
	return d.pad
}

// Name describes the detector in logs.
func (d *ONNXDetector) Name() string {
	return fmt.Sprintf("%s(%s)", yolov8.Name, d.config.ModelPath)
}

// Classes returns the detector's class labels.
func (d *ONNXDetector) Classes() *models.ClassSet {
	return d.classes
}

// Close releases all sessions.
func (d *ONNXDetector) Close() {
	d.pool.Close()
}
