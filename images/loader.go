package images

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/nvr-ai/go-tiled/common"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	// Registers the WebP decoder with image.Decode.
	_ "golang.org/x/image/webp"
)

// Load reads and decodes the image at path.
//
// Arguments:
//   - path: The image file to load.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: A *common.ImageReadError if the file cannot be read or decoded, or
//     decodes to an empty raster.
//
// @example
// img, err := images.Load("site.tif")
//
//	if err != nil {
//	    log.Fatal(err)
//	}
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewImageReadError(path, err)
	}
	defer f.Close()

	img, _, err := Decode(f)
	if err != nil {
		return nil, common.NewImageReadError(path, errors.Cause(err))
	}
	return img, nil
}

// Decode decodes an image from r using every registered decoder.
//
// Returns:
//   - image.Image: The decoded image.
//   - Format: The detected format.
//   - error: A *common.ImageReadError on failure.
func Decode(r io.Reader) (image.Image, Format, error) {
	img, name, err := image.Decode(r)
	if err != nil {
		return nil, "", common.NewImageReadError("", err)
	}
	if img.Bounds().Empty() {
		return nil, "", common.NewImageReadError("", errors.New("image has no pixels"))
	}
	return img, Format(name), nil
}

// Encode writes img to w in the given format.
//
// Arguments:
//   - w: The destination writer.
//   - img: The image to encode.
//   - format: The output format. WebP is not supported for encoding.
//   - quality: JPEG quality in [1,100]; ignored by other formats.
//
// Returns:
//   - error: An error if the format is unsupported or encoding fails.
func Encode(w io.Writer, img image.Image, format Format, quality int) error {
	var err error
	switch format {
	case FormatJPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatBMP:
		err = bmp.Encode(w, img)
	case FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatGIF:
		err = gif.Encode(w, img, nil)
	default:
		return errors.Errorf("encoding to %s is not supported", format)
	}
	return errors.Wrapf(err, "encode %s", format)
}

// Save encodes img to path, choosing the format from the file extension.
func Save(path string, img image.Image, quality int) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, img, format, quality); err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(path, buf.Bytes(), 0o644), "write image")
}
