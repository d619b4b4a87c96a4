package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// RPROP step-size bounds and adaptation factors. The rule reacts only
// to gradient-sign agreement across consecutive batches; gradient
// magnitude never enters the update.
const (
	initialRate = 0.1
	maxRate     = 0.01
	minRate     = 0.000001

	rateGrow   = 1.2
	rateShrink = 0.5
)

// signOf collapses a gradient to {-1, 0, 1}.
func signOf(x float64) int8 {
	if x == 0.0 {
		return 0
	}
	if x > 0.0 {
		return 1
	}
	return -1
}

// Layer is one dense layer of the network.
//
// Per-weight state lives in four matrices of identical shape
// [size][prevSize+1], the extra column holding the bias weight (its
// implicit input is the constant 1). Per-neuron state is split into
// two transient buffers: sums holds the raw pre-activation computed by
// the forward pass, deltas holds the local error gradient computed by
// the backward pass. Neither buffer is persisted.
type Layer struct {
	sums   []float64
	deltas []float64

	weights   [][]float64
	rates     [][]float64
	prevSigns [][]int8
	gradBatch [][]float64

	transfer TransferFunction
}

// newLayer allocates a layer of size neurons fed by prevSize values.
// Weights are drawn uniformly from [-1, 1), learning rates start at
// 0.1, and each previous sign starts as the sign of its weight.
func newLayer(size, prevSize int, tf TransferFunction) *Layer {
	l := &Layer{
		sums:      make([]float64, size),
		deltas:    make([]float64, size),
		weights:   make([][]float64, size),
		rates:     make([][]float64, size),
		prevSigns: make([][]int8, size),
		gradBatch: make([][]float64, size),
		transfer:  tf,
	}

	cols := prevSize + 1 // +1 for bias
	for i := range l.weights {
		l.weights[i] = make([]float64, cols)
		l.rates[i] = make([]float64, cols)
		l.prevSigns[i] = make([]int8, cols)
		l.gradBatch[i] = make([]float64, cols)

		for j := range l.weights[i] {
			w := rand.Float64()*2.0 - 1.0
			l.weights[i][j] = w
			l.rates[i][j] = initialRate
			l.prevSigns[i][j] = signOf(w)
		}
	}

	return l
}

// Size returns the neuron count.
func (l *Layer) Size() int {
	return len(l.sums)
}

// Transfer returns the layer's activation.
func (l *Layer) Transfer() TransferFunction {
	return l.transfer
}

// resetTransient reshapes and zeroes the non-persisted buffers. Called
// after deserialization, where only the weight-shaped state survives.
func (l *Layer) resetTransient() {
	l.sums = make([]float64, len(l.weights))
	l.deltas = make([]float64, len(l.weights))

	l.gradBatch = make([][]float64, len(l.weights))
	for i, row := range l.weights {
		l.gradBatch[i] = make([]float64, len(row))
	}
}

// forward computes every neuron's pre-activation sum from the previous
// layer's stored values. prevTF is the previous layer's transfer
// function; it is applied to prev here, lazily, rather than when prev
// was produced. The layer's own transfer function is NOT applied to
// the stored sums.
func (l *Layer) forward(prev []float64, prevTF TransferFunction) {
	activated := make([]float64, len(prev))
	for j, p := range prev {
		activated[j] = prevTF.Value(p)
	}

	for i, row := range l.weights {
		bias := row[len(row)-1]
		l.sums[i] = floats.Dot(activated, row[:len(prev)]) + bias
	}
}

// backwardOutput runs the backward step for the final layer, where the
// error is the difference between the transformed output and the
// expected value.
func (l *Layer) backwardOutput(inputs, expected []float64) {
	for i, sum := range l.sums {
		err := l.transfer.Value(sum) - expected[i]
		l.accumulate(i, l.transfer.Derivative(sum)*err, inputs)
	}
}

// backwardHidden runs the backward step for a hidden layer. next must
// already hold its own local gradients in deltas, which is guaranteed
// by walking the chain from the output layer toward the input.
func (l *Layer) backwardHidden(inputs []float64, next *Layer) {
	for i, sum := range l.sums {
		var err float64
		for k, delta := range next.deltas {
			err += delta * next.weights[k][i]
		}
		l.accumulate(i, l.transfer.Derivative(sum)*err, inputs)
	}
}

// accumulate folds one neuron's local gradient into the batch
// accumulator and records it in deltas for the next-lower layer to
// read.
func (l *Layer) accumulate(i int, delta float64, inputs []float64) {
	row := l.gradBatch[i]

	floats.AddScaled(row[:len(inputs)], delta, inputs)
	row[len(row)-1] += delta // bias gradient

	l.deltas[i] = delta
}

// applyGradients runs the RPROP update over every weight and zeroes
// the batch accumulator.
//
// When the accumulated gradient keeps the sign it had on the previous
// update, the step size grows; when the sign flips, the step size
// shrinks and the weight is left alone for one round (the recorded
// sign is cleared so the next update steps unconditionally). The step
// size stays within [minRate, maxRate].
func (l *Layer) applyGradients() {
	for i, row := range l.gradBatch {
		for j := range row {
			sign := signOf(row[j])

			switch product := sign * l.prevSigns[i][j]; {
			case product > 0:
				l.rates[i][j] = min(l.rates[i][j]*rateGrow, maxRate)
				l.weights[i][j] -= l.rates[i][j] * float64(sign)
				l.prevSigns[i][j] = sign
			case product < 0:
				l.rates[i][j] = max(l.rates[i][j]*rateShrink, minRate)
				l.prevSigns[i][j] = 0
			default:
				l.weights[i][j] -= l.rates[i][j] * float64(sign)
				l.prevSigns[i][j] = sign
			}

			row[j] = 0.0
		}
	}
}

// combine adds other's batch-gradient accumulator into l's. It merges
// partial gradients computed by parallel workers; weights, rates, and
// signs are never merged.
func (l *Layer) combine(other *Layer) {
	for i, row := range l.gradBatch {
		floats.Add(row, other.gradBatch[i])
	}
}

// clone deep-copies the layer, transient buffers included, so a worker
// can accumulate gradients without touching the original.
func (l *Layer) clone() *Layer {
	c := &Layer{
		sums:      append([]float64(nil), l.sums...),
		deltas:    append([]float64(nil), l.deltas...),
		weights:   make([][]float64, len(l.weights)),
		rates:     make([][]float64, len(l.rates)),
		prevSigns: make([][]int8, len(l.prevSigns)),
		gradBatch: make([][]float64, len(l.gradBatch)),
		transfer:  l.transfer,
	}

	for i := range l.weights {
		c.weights[i] = append([]float64(nil), l.weights[i]...)
		c.rates[i] = append([]float64(nil), l.rates[i]...)
		c.prevSigns[i] = append([]int8(nil), l.prevSigns[i]...)
		c.gradBatch[i] = append([]float64(nil), l.gradBatch[i]...)
	}

	return c
}
