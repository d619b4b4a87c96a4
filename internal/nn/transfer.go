package nn

import (
	"fmt"
	"math"
)

// TransferFunction selects the activation applied to a layer's stored
// pre-activation sums when they are read by a consumer (the next layer,
// or the caller for the final layer).
type TransferFunction uint8

const (
	// Identity passes values through unchanged. It is also what layer 0
	// is fed as its "previous" transfer function, so raw inputs are not
	// transformed on the way in.
	Identity TransferFunction = iota
	ReLU
	// LeakyReLU is a literal clamp max(x, 0.01), not the conventional
	// "x if x>0 else 0.01x" leaky rectifier. The derivative follows the
	// conventional definition (1 above zero, 0.01 below).
	LeakyReLU
	Tanh
	Sigmoid
	// Sigmoid2 is the scaled tanh 1.7159*tanh(2x/3) recommended by
	// LeCun for faster convergence.
	Sigmoid2

	numTransferFunctions
)

const (
	sigmoid2Scale = 1.7159
	sigmoid2Slope = 0.66666666
	sigmoid2Deriv = 1.1427894 // sigmoid2Scale * sigmoid2Slope
)

// Value applies the activation to a pre-activation sum.
func (tf TransferFunction) Value(x float64) float64 {
	switch tf {
	case Identity:
		return x
	case ReLU:
		return math.Max(x, 0.0)
	case LeakyReLU:
		return math.Max(x, 0.01)
	case Tanh:
		return math.Tanh(x)
	case Sigmoid:
		return 0.5 + 0.5*math.Tanh(x*0.5)
	case Sigmoid2:
		return sigmoid2Scale * math.Tanh(sigmoid2Slope*x)
	default:
		panic(fmt.Sprintf("nn: unknown transfer function %d", tf))
	}
}

// Derivative evaluates the activation's derivative. The argument is
// always the stored pre-activation sum, never the transformed value.
func (tf TransferFunction) Derivative(x float64) float64 {
	switch tf {
	case Identity:
		return 1.0
	case ReLU:
		if x > 0.0 {
			return 1.0
		}
		return 0.0
	case LeakyReLU:
		if x > 0.0 {
			return 1.0
		}
		return 0.01
	case Tanh:
		t := math.Tanh(x)
		return 1.0 - t*t
	case Sigmoid:
		t := math.Tanh(x * 0.5)
		return 0.25 - 0.25*t*t
	case Sigmoid2:
		t := math.Tanh(sigmoid2Slope * x)
		return sigmoid2Deriv - sigmoid2Deriv*t*t
	default:
		panic(fmt.Sprintf("nn: unknown transfer function %d", tf))
	}
}

// Valid reports whether tf is one of the defined variants. Used when
// validating a deserialized model.
func (tf TransferFunction) Valid() bool {
	return tf < numTransferFunctions
}

// String returns the variant name for logs and error messages.
func (tf TransferFunction) String() string {
	switch tf {
	case Identity:
		return "identity"
	case ReLU:
		return "relu"
	case LeakyReLU:
		return "leaky_relu"
	case Tanh:
		return "tanh"
	case Sigmoid:
		return "sigmoid"
	case Sigmoid2:
		return "sigmoid2"
	default:
		return fmt.Sprintf("transfer(%d)", uint8(tf))
	}
}
