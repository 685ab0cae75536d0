// Package inference - ONNX Runtime sessions, tensor preparation and session pooling.
package inference

import (
	"fmt"
	"os"
	"sync"

	"github.com/nvr-ai/go-tiled/inference/providers"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	initOnce sync.Once
	errInit  error
)

// InitializeRuntime loads the onnxruntime shared library once per process.
//
// Arguments:
//   - libPath: Path to the shared library. Empty uses providers.SharedLibraryPath.
//
// Returns:
//   - error: An error if the library is missing or fails to initialize. The
//     first outcome is returned on every later call.
func InitializeRuntime(libPath string) error {
	initOnce.Do(func() {
		if libPath == "" {
			libPath = providers.SharedLibraryPath()
		}
		if _, err := os.Stat(libPath); err != nil {
			errInit = fmt.Errorf("ONNX Runtime library not found at %s: %w", libPath, err)
			return
		}
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			errInit = fmt.Errorf("error initializing ORT environment: %w", err)
		}
	})
	return errInit
}

// Session represents a model session from the onnxruntime with its bound
// input and output tensors. A Session is not safe for concurrent use.
type Session struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]
}

// NewSessionArgs describes the model and tensors of a session.
type NewSessionArgs struct {
	ModelPath   string           `json:"model_path" yaml:"model_path"`
	InputName   string           `json:"input_name" yaml:"input_name"`
	OutputName  string           `json:"output_name" yaml:"output_name"`
	InputShape  []int64          `json:"input_shape" yaml:"input_shape"`
	OutputShape []int64          `json:"output_shape" yaml:"output_shape"`
	Provider    providers.Config `json:"provider" yaml:"provider"`
}

// NewSession creates a session with preallocated input and output tensors.
// InitializeRuntime must have succeeded first.
//
// Arguments:
//   - args: The session arguments.
//
// Returns:
//   - *Session: The session.
//   - error: An error if tensors or the session cannot be created.
func NewSession(args NewSessionArgs) (*Session, error) {
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(args.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(args.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	options, err := providers.NewSessionOptions(args.Provider)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		args.ModelPath,
		[]string{args.InputName},
		[]string{args.OutputName},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating ORT session: %w", err)
	}

	return &Session{
		Session: session,
		Input:   inputTensor,
		Output:  outputTensor,
	}, nil
}

// Run executes the model on the current contents of Input.
func (s *Session) Run() error {
	if s.Session == nil {
		return fmt.Errorf("session is closed")
	}
	return s.Session.Run()
}

// Close releases the resources associated with the Session.
func (s *Session) Close() {
	if s.Input != nil {
		s.Input.Destroy()
		s.Input = nil
	}
	if s.Output != nil {
		s.Output.Destroy()
		s.Output = nil
	}
	if s.Session != nil {
		s.Session.Destroy()
		s.Session = nil
	}
}
