// Package render - Draws merged detections on the source image.
package render

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"gocv.io/x/gocv"
)

// Red is the default box colour.
var Red = color.RGBA{R: 255, G: 0, B: 0, A: 255}

// Font defines the parameters for rendering text on an image using GoCV.
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Thickness int
	LineType  gocv.LineType
}

// DefaultFont returns Hershey simplex at scale 1.
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     1,
		Thickness: 2,
		LineType:  gocv.LineAA,
	}
}

// Style controls how detections are drawn.
type Style struct {
	// Color is used for every box unless PerClassColors is set.
	Color color.RGBA
	// Thickness is the box line width in pixels.
	Thickness int
	// Font is the label font.
	Font Font
	// LabelOffset is the gap between the label baseline and the box top.
	LabelOffset int
	// PerClassColors draws each class in its own palette colour.
	PerClassColors bool
	// PaletteSize is the number of distinct class colours.
	PaletteSize int
}

// DefaultStyle returns red boxes of thickness 2 with labels 10px above the box.
func DefaultStyle() Style {
	return Style{
		Color:       Red,
		Thickness:   2,
		Font:        DefaultFont(),
		LabelOffset: 10,
		PaletteSize: 20,
	}
}

// Palette returns n visually distinct colours with evenly spaced hues.
//
// @example
// colors := render.Palette(8)
func Palette(n int) []color.RGBA {
	if n <= 0 {
		return nil
	}
	out := make([]color.RGBA, n)
	for i := range out {
		c := colorful.Hsv(float64(i)*360/float64(n), 0.85, 0.95)
		r, g, b := c.RGB255()
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}
