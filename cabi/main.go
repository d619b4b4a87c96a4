// Package main exports a C ABI for single-image inference, built with
// -buildmode=c-shared.
package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/quill-ml/quill/internal/nn"
)

const (
	imagePixels = 28 * 28
	classCount  = 10
)

// QuillRecognize loads the model at modelPath, feeds it one flattened
// 28x28 grayscale image, and writes the ten class scores into out.
//
// The contract is deliberately lossy: on a null path, null image, load
// failure, or a model of the wrong shape, out is left all-zero rather
// than signaling an error. Callers must treat an all-zero score vector
// as ambiguous between "no confidence" and "invalid input".
//
//export QuillRecognize
func QuillRecognize(modelPath *C.char, image *C.uchar, out *C.double) {
	if out == nil {
		return
	}
	scores := unsafe.Slice((*float64)(unsafe.Pointer(out)), classCount)
	for i := range scores {
		scores[i] = 0.0
	}

	if modelPath == nil || image == nil {
		return
	}

	net, err := nn.Load(C.GoString(modelPath))
	if err != nil || net.InputSize() != imagePixels || net.OutputSize() != classCount {
		return
	}

	pixels := unsafe.Slice((*byte)(unsafe.Pointer(image)), imagePixels)
	inputs := make([]float64, imagePixels)
	for i, p := range pixels {
		inputs[i] = float64(p) / 255.0
	}

	copy(scores, net.Feedforward(inputs))
}

func main() {}
