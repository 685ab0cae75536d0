package tiling

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/go-tiled/common"
)

// DefaultFill is the padding colour for edge tiles: opaque black.
var DefaultFill color.Color = color.NRGBA{R: 0, G: 0, B: 0, A: 255}

// Tile is the pixel buffer sampled for one window. Image is always
// TileSize x TileSize with origin (0,0); pixels beyond the window are fill.
type Tile struct {
	Window Window
	Image  *image.NRGBA
}

// Sampler extracts fixed-size tiles from a source image.
type Sampler struct {
	// TileSize is the square edge length of every produced tile.
	TileSize int
	// Fill is the colour used to pad windows smaller than TileSize.
	Fill color.Color
}

// NewSampler creates a sampler that pads with DefaultFill.
func NewSampler(tileSize int) *Sampler {
	return &Sampler{TileSize: tileSize, Fill: DefaultFill}
}

// Sample crops the window from img and pads it on the bottom and right up to
// TileSize x TileSize. Pixel content is copied, never resampled, so object
// scale is preserved.
//
// Arguments:
//   - img: The source image. It is only read.
//   - win: The window to sample, relative to img.Bounds().Min.
//
// Returns:
//   - Tile: The sampled tile.
//   - error: A *common.ConfigError if the tile size is invalid or the window
//     is empty, larger than the tile, or outside the image.
func (s *Sampler) Sample(img image.Image, win Window) (Tile, error) {
	if s.TileSize <= 0 {
		return Tile{}, common.NewConfigError("tile_size", s.TileSize, "must be positive")
	}
	if win.Width <= 0 || win.Height <= 0 || win.Width > s.TileSize || win.Height > s.TileSize {
		return Tile{}, common.NewConfigError("window", win.String(), "must be non-empty and at most %d square", s.TileSize)
	}
	bounds := img.Bounds()
	src := win.Rect().Add(bounds.Min)
	if !src.In(bounds) {
		return Tile{}, common.NewConfigError("window", win.String(), "lies outside image bounds %v", bounds)
	}

	fill := s.Fill
	if fill == nil {
		fill = DefaultFill
	}

	crop := imaging.Crop(img, src)
	if !win.Padded(s.TileSize) {
		return Tile{Window: win, Image: crop}, nil
	}
	canvas := imaging.New(s.TileSize, s.TileSize, fill)
	return Tile{Window: win, Image: imaging.Paste(canvas, crop, image.Point{})}, nil
}

// Sample extracts the window from img with the default black padding.
func Sample(img image.Image, win Window, tileSize int) (Tile, error) {
	return NewSampler(tileSize).Sample(img, win)
}
