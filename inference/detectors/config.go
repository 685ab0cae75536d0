// Package detectors - ONNX Runtime detector for square image tiles.
package detectors

import (
	"fmt"
	"image/color"
	"runtime"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/nvr-ai/go-tiled/inference/providers"
	"github.com/nvr-ai/go-tiled/models"
	"github.com/nvr-ai/go-tiled/models/yolov8"
)

// Config represents the configuration of an ONNX tile detector.
type Config struct {
	// ModelPath is the ONNX model file.
	ModelPath string `json:"model_path" yaml:"model_path"`

	// LibraryPath is the onnxruntime shared library. Empty uses the platform default.
	LibraryPath string `json:"library_path" yaml:"library_path"`

	// InputName and OutputName are the model's tensor names.
	InputName  string `json:"input_name" yaml:"input_name"`
	OutputName string `json:"output_name" yaml:"output_name"`

	// TileSize is the square input size the model was trained on.
	TileSize int `json:"tile_size" yaml:"tile_size"`

	// Labels names the model's classes in index order.
	Labels []string `json:"labels" yaml:"labels"`

	// Candidates overrides the anchor count of the output. 0 derives it from TileSize.
	Candidates int `json:"candidates" yaml:"candidates"`

	// TileIoU is the intra-tile NMS threshold applied before cross-tile merging.
	TileIoU float64 `json:"tile_iou" yaml:"tile_iou"`

	// Sessions is the number of concurrent ONNX sessions.
	Sessions int `json:"sessions" yaml:"sessions"`

	// PadColor is the hex colour the model was trained to see in padding.
	PadColor string `json:"pad_color" yaml:"pad_color"`

	// Provider selects the execution provider.
	Provider providers.Config `json:"provider" yaml:"provider"`
}

// DefaultConfig returns a configuration for a single-class 640 YOLO tile model.
//
// Returns:
//   - Config: Configuration with defaults; ModelPath must still be set.
//
// @example
// config := DefaultConfig()
// config.ModelPath = "path/to/best.onnx"
// detector, err := NewONNXDetector(config)
func DefaultConfig() Config {
	return Config{
		InputName:  "images",
		OutputName: "output0",
		TileSize:   640,
		Labels:     append([]string(nil), models.TowerCraneClasses.Labels...),
		TileIoU:    0.7,
		Sessions:   max(1, runtime.NumCPU()/2),
		PadColor:   "#000000",
		Provider:   providers.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("model_path is required")
	}
	if c.InputName == "" || c.OutputName == "" {
		return fmt.Errorf("input_name and output_name are required")
	}
	if c.TileSize <= 0 || c.TileSize%32 != 0 {
		return fmt.Errorf("tile_size must be a positive multiple of 32, got %d", c.TileSize)
	}
	if len(c.Labels) == 0 {
		return fmt.Errorf("at least one label is required")
	}
	if c.Candidates < 0 {
		return fmt.Errorf("candidates must be non-negative, got %d", c.Candidates)
	}
	if c.TileIoU < 0 || c.TileIoU > 1 {
		return fmt.Errorf("tile_iou must be in [0,1], got %v", c.TileIoU)
	}
	if c.Sessions <= 0 {
		return fmt.Errorf("sessions must be positive, got %d", c.Sessions)
	}
	if _, err := c.padColor(); err != nil {
		return err
	}
	return c.Provider.Validate()
}

// Layout returns the expected output tensor layout.
func (c Config) Layout() yolov8.OutputLayout {
	layout := yolov8.DefaultLayout(c.TileSize, len(c.Labels))
	if c.Candidates > 0 {
		layout.Candidates = c.Candidates
	}
	return layout
}

func (c Config) padColor() (color.Color, error) {
	if c.PadColor == "" {
		return color.NRGBA{A: 255}, nil
	}
	pad, err := colorful.Hex(c.PadColor)
	if err != nil {
		return nil, fmt.Errorf("pad_color %q: %w", c.PadColor, err)
	}
	r, g, b := pad.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
