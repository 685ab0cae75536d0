// Package images - Image loading, encoding and preview utilities.
package images

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Format represents supported image formats.
type Format string

const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG Format = "jpeg"
	// FormatPNG is the PNG image format.
	FormatPNG Format = "png"
	// FormatWebP is the WebP image format (decode only).
	FormatWebP Format = "webp"
	// FormatBMP is the BMP image format.
	FormatBMP Format = "bmp"
	// FormatTIFF is the TIFF image format, common for aerial and satellite rasters.
	FormatTIFF Format = "tiff"
	// FormatGIF is the GIF image format.
	FormatGIF Format = "gif"
)

var extensions = map[string]Format{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".webp": FormatWebP,
	".bmp":  FormatBMP,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".gif":  FormatGIF,
}

// FormatFromPath returns the image format implied by the file extension.
//
// Arguments:
//   - path: The file path to inspect.
//
// Returns:
//   - Format: The format for the extension.
//   - error: An error if the extension is not a supported image format.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := extensions[ext]
	if !ok {
		return "", errors.Errorf("unsupported image extension %q", ext)
	}
	return f, nil
}
