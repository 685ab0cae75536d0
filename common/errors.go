package common

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigError reports an invalid tunable. It is raised before any tiling work.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

// NewConfigError creates a ConfigError for the named field.
//
// Arguments:
//   - field: The name of the offending tunable, e.g. "overlap_ratio".
//   - value: The rejected value.
//   - format: A printf-style description of the constraint.
//
// Returns:
//   - error: The configuration error.
func NewConfigError(field string, value interface{}, format string, args ...interface{}) error {
	return &ConfigError{Field: field, Value: value, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s=%v: %s", e.Field, e.Value, e.Reason)
}

// ImageReadError reports that a source image could not be loaded or decoded.
type ImageReadError struct {
	Path string
	Err  error
}

// NewImageReadError wraps a load or decode failure for path.
func NewImageReadError(path string, err error) error {
	return &ImageReadError{Path: path, Err: err}
}

func (e *ImageReadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("read image: %v", e.Err)
	}
	return fmt.Sprintf("read image %q: %v", e.Path, e.Err)
}

// Cause returns the underlying error.
func (e *ImageReadError) Cause() error { return e.Err }

// Unwrap returns the underlying error.
func (e *ImageReadError) Unwrap() error { return e.Err }

// InvalidDetectionError reports a malformed detection: a degenerate or
// non-finite box, a box outside its tile, or a confidence outside [0,1].
type InvalidDetectionError struct {
	Index      int
	Box        BoundingBox
	Confidence float64
	Reason     string
}

// NewInvalidDetectionError creates an InvalidDetectionError for the detection at index.
func NewInvalidDetectionError(index int, box BoundingBox, confidence float64, reason string) error {
	return &InvalidDetectionError{Index: index, Box: box, Confidence: confidence, Reason: reason}
}

func (e *InvalidDetectionError) Error() string {
	return fmt.Sprintf("invalid detection %d %s conf=%.4f: %s", e.Index, e.Box, e.Confidence, e.Reason)
}

// TileInferenceError reports that the detector failed for one tile.
type TileInferenceError struct {
	Tile     int
	X, Y     int
	Attempts int
	Err      error
}

func (e *TileInferenceError) Error() string {
	return fmt.Sprintf("tile %d at (%d,%d) failed after %d attempt(s): %v",
		e.Tile, e.X, e.Y, e.Attempts, e.Err)
}

// Cause returns the underlying detector error.
func (e *TileInferenceError) Cause() error { return e.Err }

// Unwrap returns the underlying detector error.
func (e *TileInferenceError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// IsImageReadError reports whether err is or wraps an ImageReadError.
func IsImageReadError(err error) bool {
	var target *ImageReadError
	return errors.As(err, &target)
}

// IsInvalidDetectionError reports whether err is or wraps an InvalidDetectionError.
func IsInvalidDetectionError(err error) bool {
	var target *InvalidDetectionError
	return errors.As(err, &target)
}

// IsTileInferenceError reports whether err is or wraps a TileInferenceError.
func IsTileInferenceError(err error) bool {
	var target *TileInferenceError
	return errors.As(err, &target)
}
