package images

import (
	"image"

	"github.com/nfnt/resize"
)

// Thumbnail downscales img so that neither side exceeds maxSide, preserving
// aspect ratio. Images already within bounds are returned unchanged.
//
// Arguments:
//   - img: The image to downscale.
//   - maxSide: The maximum width and height of the result. Values <= 0 disable scaling.
//
// Returns:
//   - image.Image: The downscaled image.
//
// @example
// preview := images.Thumbnail(img, 1024)
func Thumbnail(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	if maxSide <= 0 || (b.Dx() <= maxSide && b.Dy() <= maxSide) {
		return img
	}
	return resize.Thumbnail(uint(maxSide), uint(maxSide), img, resize.Lanczos3)
}
