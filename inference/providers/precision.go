package providers

import "fmt"

// Precision is the OpenVINO inference precision.
//
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
type Precision string

const (
	// PrecisionAccuracy keeps the model's own input precision.
	PrecisionAccuracy Precision = "ACCURACY"
	// PrecisionFP32 runs in 32-bit floating point.
	PrecisionFP32 Precision = "FP32"
	// PrecisionFP16 runs in 16-bit floating point.
	PrecisionFP16 Precision = "FP16"
	// PrecisionINT8 runs quantized 8-bit integer kernels.
	PrecisionINT8 Precision = "INT8"
)

// Validate reports whether p is a known precision. Empty means FP32.
func (p Precision) Validate() error {
	switch p {
	case "", PrecisionAccuracy, PrecisionFP32, PrecisionFP16, PrecisionINT8:
		return nil
	}
	return fmt.Errorf("unsupported precision %q", p)
}
