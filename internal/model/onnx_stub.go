//go:build !onnx

package model

// This file keeps default builds CGO-free. The ONNX Runtime backend lives
// in onnx.go and is compiled with `-tags=onnx`.

import "fmt"

// ConfigureONNX is a no-op without the 'onnx' build tag.
func ConfigureONNX(libPath, inputName, outputName string) {}

// ONNXAvailable reports whether this build can decode ONNX blobs.
func ONNXAvailable() bool { return false }

func decodeONNX(b []byte) (Model, error) {
	return nil, fmt.Errorf("%w: not a native weight blob and onnx support is not built (missing 'onnx' build tag)", ErrDecode)
}
