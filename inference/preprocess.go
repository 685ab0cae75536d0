package inference

import (
	"fmt"
	"image"
)

// PrepareInput writes img into dst as a normalized CHW float32 tensor
// (RGB planes, values / 255). The image must already be size x size; tiles
// are never resized here.
//
// Arguments:
//   - img: The tile to prepare.
//   - dst: The destination tensor data, at least 3*size*size floats.
//   - size: The square input size of the model.
//
// Returns:
//   - error: An error if the image or destination has the wrong size.
func PrepareInput(img image.Image, dst []float32, size int) error {
	b := img.Bounds()
	if b.Dx() != size || b.Dy() != size {
		return fmt.Errorf("tile is %dx%d, model expects %dx%d", b.Dx(), b.Dy(), size, size)
	}
	channelSize := size * size
	if len(dst) < channelSize*3 {
		return fmt.Errorf("destination tensor only holds %d floats, needs "+
			"%d (make sure it's the right shape!)", len(dst), channelSize*3)
	}
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	if nrgba, ok := img.(*image.NRGBA); ok {
		i := 0
		for y := 0; y < size; y++ {
			row := nrgba.Pix[(y)*nrgba.Stride:]
			for x := 0; x < size; x++ {
				p := row[x*4 : x*4+3]
				red[i] = float32(p[0]) / 255.0
				green[i] = float32(p[1]) / 255.0
				blue[i] = float32(p[2]) / 255.0
				i++
			}
		}
		return nil
	}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(bl>>8) / 255.0
			i++
		}
	}
	return nil
}
