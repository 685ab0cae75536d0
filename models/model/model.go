// Package model - Detector capability consumed by the tiling pipeline.
package model

import (
	"context"
	"image"
	"image/color"

	"github.com/nvr-ai/go-tiled/models/postprocess"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameYOLOv8 is the name of the anchor-free YOLOv8/YOLO11 output layout.
	ModelNameYOLOv8 Name = "yolov8"
)

// Detector finds objects in one square tile.
//
// Detect receives a tile already padded to the detector's input size and
// returns boxes in tile-local pixel coordinates. It must not resize the tile
// and may be called concurrently from several goroutines.
type Detector interface {
	Detect(ctx context.Context, tile image.Image, confidenceThreshold float64) ([]postprocess.Detection, error)
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc func(ctx context.Context, tile image.Image, confidenceThreshold float64) ([]postprocess.Detection, error)

// Detect calls f.
func (f DetectorFunc) Detect(ctx context.Context, tile image.Image, confidenceThreshold float64) ([]postprocess.Detection, error) {
	return f(ctx, tile, confidenceThreshold)
}

// PadColorer is implemented by detectors that know the padding colour they
// were trained with. The pipeline refuses to pad tiles with a different colour.
type PadColorer interface {
	PadColor() color.Color
}

// Namer is implemented by detectors that can describe themselves in logs.
type Namer interface {
	Name() string
}

// NameOf returns the detector's name, or "detector" when it has none.
func NameOf(d Detector) string {
	if n, ok := d.(Namer); ok {
		return n.Name()
	}
	return "detector"
}

// SameColor reports whether two colours have identical non-premultiplied RGBA values.
func SameColor(a, b color.Color) bool {
	ca := color.NRGBAModel.Convert(a).(color.NRGBA)
	cb := color.NRGBAModel.Convert(b).(color.NRGBA)
	return ca == cb
}
