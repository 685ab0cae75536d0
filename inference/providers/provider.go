// Package providers - Execution provider selection for ONNX Runtime sessions.
package providers

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	ort "github.com/yalue/onnxruntime_go"
)

// Backend names an ONNX Runtime execution provider.
type Backend string

const (
	// CPUBackend uses the default CPU execution provider.
	CPUBackend Backend = "cpu"
	// CUDABackend uses NVIDIA CUDA for GPU acceleration.
	CUDABackend Backend = "cuda"
	// CoreMLBackend uses Apple CoreML for macOS acceleration.
	CoreMLBackend Backend = "coreml"
	// OpenVINOBackend uses Intel OpenVINO.
	OpenVINOBackend Backend = "openvino"
)

// Config selects and tunes the execution provider.
type Config struct {
	// Backend specifies the execution provider to use.
	Backend Backend `json:"backend" yaml:"backend"`
	// DeviceID selects the GPU for CUDA or OpenVINO device index.
	DeviceID int `json:"device_id" yaml:"device_id"`
	// IntraOpThreads parallelizes execution within graph nodes. 0 uses the runtime default.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`
	// InterOpThreads parallelizes execution across graph nodes. 0 uses the runtime default.
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
	// Precision is the OpenVINO inference precision.
	Precision Precision `json:"precision" yaml:"precision"`
	// Options are passed verbatim to the provider, overriding derived values.
	Options map[string]string `json:"options" yaml:"options"`
}

// DefaultConfig returns a CPU configuration that leaves threading to the runtime.
//
// Tiles are already inferred in parallel, so each session is kept to one
// intra-op thread by default.
func DefaultConfig() Config {
	return Config{
		Backend:        CPUBackend,
		IntraOpThreads: 1,
		InterOpThreads: 1,
		Precision:      PrecisionFP32,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Backend {
	case CPUBackend, CUDABackend, CoreMLBackend, OpenVINOBackend:
	case "":
		return fmt.Errorf("backend is required")
	default:
		return fmt.Errorf("unsupported execution provider %q", c.Backend)
	}
	if c.DeviceID < 0 {
		return fmt.Errorf("device_id must be non-negative, got %d", c.DeviceID)
	}
	if c.IntraOpThreads < 0 || c.InterOpThreads < 0 {
		return fmt.Errorf("thread counts must be non-negative")
	}
	return c.Precision.Validate()
}

// ProviderOptions returns the key/value options passed to the provider.
func (c Config) ProviderOptions() map[string]string {
	opts := map[string]string{}
	switch c.Backend {
	case CUDABackend:
		opts["device_id"] = strconv.Itoa(c.DeviceID)
	case OpenVINOBackend:
		opts["device_type"] = "CPU"
		if c.Precision != "" {
			opts["precision"] = string(c.Precision)
		}
		if c.IntraOpThreads > 0 {
			opts["num_of_threads"] = strconv.Itoa(c.IntraOpThreads)
		}
	}
	for k, v := range c.Options {
		opts[k] = v
	}
	return opts
}

// NewSessionOptions creates session options with threading and the
// configured execution provider applied. The caller must Destroy them.
//
// Arguments:
//   - c: The provider configuration.
//
// Returns:
//   - *ort.SessionOptions: The session options.
//   - error: An error if the provider cannot be enabled.
func NewSessionOptions(c Config) (*ort.SessionOptions, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating ORT session options: %w", err)
	}

	if err := options.SetIntraOpNumThreads(c.IntraOpThreads); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("error setting intra-op threads: %w", err)
	}
	if err := options.SetInterOpNumThreads(c.InterOpThreads); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("error setting inter-op threads: %w", err)
	}

	if err := apply(options, c); err != nil {
		options.Destroy()
		return nil, err
	}
	return options, nil
}

func apply(options *ort.SessionOptions, c Config) error {
	switch c.Backend {
	case CUDABackend:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return fmt.Errorf("error creating CUDA options: %w", err)
		}
		defer cuda.Destroy()
		if err := cuda.Update(c.ProviderOptions()); err != nil {
			return fmt.Errorf("error updating CUDA options: %w", err)
		}
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			return fmt.Errorf("error enabling CUDA: %w", err)
		}
	case CoreMLBackend:
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			return fmt.Errorf("error enabling CoreML: %w", err)
		}
	case OpenVINOBackend:
		if err := options.AppendExecutionProviderOpenVINO(c.ProviderOptions()); err != nil {
			return fmt.Errorf("error enabling OpenVINO: %w", err)
		}
	}
	return nil
}

// LibraryEnv is the environment variable that overrides the shared library path.
const LibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// SharedLibraryPath returns the onnxruntime shared library for the current
// platform, honouring LibraryEnv.
//
// Returns:
//   - string: The path to the shared library.
func SharedLibraryPath() string {
	if p := os.Getenv(LibraryEnv); p != "" {
		return p
	}
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}
