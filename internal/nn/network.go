package nn

import (
	"fmt"
	"sync"
)

// Sample pairs one input vector with the output vector the network
// should produce for it.
type Sample struct {
	Inputs  []float64
	Outputs []float64
}

// LayerSpec declares one layer of a network under construction.
type LayerSpec struct {
	Size     int
	Transfer TransferFunction
}

// Network is a non-empty ordered chain of dense layers. Layer i is fed
// by layer i-1; layer 0 is fed by the raw input vector.
type Network struct {
	inputs int
	layers []*Layer
}

// New builds a freshly initialized network. The layer list must be
// non-empty and every size positive; violating that is a construction
// contract violation, not a recoverable error, so New panics.
func New(inputs int, specs []LayerSpec) *Network {
	if len(specs) == 0 {
		panic("nn: network needs at least one layer")
	}

	layers := make([]*Layer, len(specs))
	for i, spec := range specs {
		if spec.Size <= 0 {
			panic(fmt.Sprintf("nn: layer %d has non-positive size %d", i, spec.Size))
		}

		prevSize := inputs
		if i > 0 {
			prevSize = specs[i-1].Size
		}
		layers[i] = newLayer(spec.Size, prevSize, spec.Transfer)
	}

	return &Network{inputs: inputs, layers: layers}
}

// InputSize returns the expected input vector length.
func (n *Network) InputSize() int {
	return n.inputs
}

// OutputSize returns the final layer's neuron count.
func (n *Network) OutputSize() int {
	return n.layers[len(n.layers)-1].Size()
}

// Feedforward runs a full forward pass and returns the final layer's
// values with its transfer function applied. Intermediate layers are
// never transformed eagerly; each layer transforms its predecessor's
// sums inside its own forward step.
func (n *Network) Feedforward(inputs []float64) []float64 {
	n.forward(inputs)

	last := n.layers[len(n.layers)-1]
	out := make([]float64, last.Size())
	for i, sum := range last.sums {
		out[i] = last.transfer.Value(sum)
	}
	return out
}

func (n *Network) forward(inputs []float64) {
	for i, layer := range n.layers {
		if i == 0 {
			layer.forward(inputs, Identity)
		} else {
			prev := n.layers[i-1]
			layer.forward(prev.sums, prev.transfer)
		}
	}
}

// backward walks the chain from the output layer down to layer 0,
// accumulating per-weight gradients. Each layer reads the local
// gradients its successor just computed, which is what makes the chain
// rule telescope.
func (n *Network) backward(inputs, expected []float64) {
	last := len(n.layers) - 1

	for i := last; i >= 0; i-- {
		var in []float64
		if i == 0 {
			in = inputs
		} else {
			prev := n.layers[i-1]
			in = make([]float64, prev.Size())
			for j, sum := range prev.sums {
				in[j] = prev.transfer.Value(sum)
			}
		}

		if i == last {
			n.layers[i].backwardOutput(in, expected)
		} else {
			n.layers[i].backwardHidden(in, n.layers[i+1])
		}
	}
}

// accumulateBatch runs forward+backward over every sample without
// touching the weights.
func (n *Network) accumulateBatch(samples []Sample) {
	for _, sample := range samples {
		n.forward(sample.Inputs)
		n.backward(sample.Inputs, sample.Outputs)
	}
}

func (n *Network) applyGradients() {
	for _, layer := range n.layers {
		layer.applyGradients()
	}
}

func (n *Network) combine(other *Network) {
	for i, layer := range n.layers {
		layer.combine(other.layers[i])
	}
}

// TrainBatch accumulates gradients over the whole batch and then
// updates the weights once. Updates are batch-level, never per-sample.
func (n *Network) TrainBatch(samples []Sample) {
	n.accumulateBatch(samples)
	n.applyGradients()
}

// TrainBatchParallel behaves like TrainBatch but splits the batch into
// contiguous chunks across workers goroutines. Each of the workers-1
// spawned goroutines owns a deep clone of the network and only
// accumulates gradients; the calling goroutine processes the remaining
// chunk on the live network. Once every worker has joined, the clones'
// accumulators are merged into the live network in spawn order and the
// weights are updated exactly once.
//
// Small batches (fewer samples than workers) degrade to the
// single-goroutine path. The resulting weights match TrainBatch on the
// same batch up to floating-point summation order.
func (n *Network) TrainBatchParallel(samples []Sample, workers int) {
	if workers > 1 && len(samples) >= workers {
		perWorker := len(samples) / workers

		clones := make([]*Network, workers-1)
		var wg sync.WaitGroup
		for w := range clones {
			chunk := samples[:perWorker]
			samples = samples[perWorker:]

			clone := n.Clone()
			clones[w] = clone

			wg.Add(1)
			go func() {
				defer wg.Done()
				clone.accumulateBatch(chunk)
			}()
		}

		n.accumulateBatch(samples)
		wg.Wait()

		// Merge order is fixed so float summation stays reproducible.
		for _, clone := range clones {
			n.combine(clone)
		}
	} else {
		n.accumulateBatch(samples)
	}

	n.applyGradients()
}

// Clone deep-copies the network. The copy shares no state with the
// original.
func (n *Network) Clone() *Network {
	layers := make([]*Layer, len(n.layers))
	for i, layer := range n.layers {
		layers[i] = layer.clone()
	}
	return &Network{inputs: n.inputs, layers: layers}
}
