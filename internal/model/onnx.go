//go:build onnx

package model

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"mnistd/internal/tensor"
)

var (
	onnxMu      sync.Mutex
	onnxLibPath string
	onnxInput   = "input"
	onnxOutput  = "output"
)

// ConfigureONNX sets the ONNX Runtime shared library path and the graph's
// input/output names. Empty values keep the current settings.
func ConfigureONNX(libPath, inputName, outputName string) {
	onnxMu.Lock()
	defer onnxMu.Unlock()
	if libPath != "" {
		onnxLibPath = libPath
	}
	if inputName != "" {
		onnxInput = inputName
	}
	if outputName != "" {
		onnxOutput = outputName
	}
}

// ONNXAvailable reports whether this build can decode ONNX blobs.
func ONNXAvailable() bool { return true }

func ensureONNXEnv() error {
	onnxMu.Lock()
	defer onnxMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if onnxLibPath != "" {
		ort.SetSharedLibraryPath(onnxLibPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// onnxModel runs a digit graph with input (1, 1, 28, 28) and output (1, 10).
// The session and its bound tensors are reused; the owning actor serializes
// calls to Forward.
type onnxModel struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func decodeONNX(b []byte) (Model, error) {
	if err := ensureONNXEnv(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	onnxMu.Lock()
	inName, outName := onnxInput, onnxOutput
	onnxMu.Unlock()

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, tensor.Channels, tensor.Height, tensor.Width))
	if err != nil {
		return nil, fmt.Errorf("%w: input tensor: %v", ErrDecode, err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, NumClasses))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("%w: output tensor: %v", ErrDecode, err)
	}
	session, err := ort.NewAdvancedSessionWithONNXData(b,
		[]string{inName}, []string{outName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("%w: onnx session: %v", ErrDecode, err)
	}
	return &onnxModel{session: session, input: input, output: output}, nil
}

func (m *onnxModel) Forward(x tensor.Tensor) (tensor.Tensor, error) {
	if x.Len() != tensor.Pixels {
		return tensor.Tensor{}, fmt.Errorf("%w: onnx input has %d elements, want %d", tensor.ErrShape, x.Len(), tensor.Pixels)
	}
	copy(m.input.GetData(), x.Data())
	if err := m.session.Run(); err != nil {
		return tensor.Tensor{}, fmt.Errorf("onnx inference: %w", err)
	}
	return tensor.FromFloats(m.output.GetData(), 1, NumClasses)
}

func (m *onnxModel) Close() error {
	m.input.Destroy()
	m.output.Destroy()
	return m.session.Destroy()
}
