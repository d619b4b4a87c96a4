package nn

import (
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// Persistence errors.
var (
	// ErrMalformedModel marks a model file whose bytes decoded but do
	// not describe a consistent network: missing layers, mismatched
	// matrix shapes, unknown transfer tags, or out-of-range signs.
	// Undecodable bytes are wrapped with it as well.
	ErrMalformedModel = errors.New("malformed model data")
)

// layerState is the persisted subset of a Layer. The transient neuron
// buffers and the gradient accumulator are deliberately absent; Load
// rebuilds them zero-filled.
type layerState struct {
	Weights   [][]float64      `cbor:"weights"`
	Rates     [][]float64      `cbor:"learning_rates"`
	PrevSigns [][]int8         `cbor:"previous_signs"`
	Transfer  TransferFunction `cbor:"transfer"`
}

type networkState struct {
	Inputs int          `cbor:"inputs"`
	Layers []layerState `cbor:"layers"`
}

// Save writes the network to path as a CBOR document containing the
// input size and, per layer, the weight, learning-rate, and
// previous-sign matrices plus the transfer-function tag.
func (n *Network) Save(path string) error {
	state := networkState{
		Inputs: n.inputs,
		Layers: make([]layerState, len(n.layers)),
	}
	for i, layer := range n.layers {
		state.Layers[i] = layerState{
			Weights:   layer.weights,
			Rates:     layer.rates,
			PrevSigns: layer.prevSigns,
			Transfer:  layer.transfer,
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("nn: create model file: %w", err)
	}

	if err := cbor.NewEncoder(f).Encode(state); err != nil {
		_ = f.Close()
		return fmt.Errorf("nn: encode model: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("nn: close model file: %w", err)
	}
	return nil
}

// Load reads a network saved by Save. Weights, learning rates,
// previous signs, and transfer functions are restored; the neuron
// buffers and gradient accumulators come back zero-filled with the
// correct shape.
//
// Malformed or truncated bytes yield an error wrapping
// ErrMalformedModel; filesystem failures are returned as wrapped os
// errors.
func Load(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("nn: open model file: %w", err)
	}
	defer f.Close()

	var state networkState
	if err := cbor.NewDecoder(f).Decode(&state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedModel, err)
	}

	if err := state.validate(); err != nil {
		return nil, err
	}

	layers := make([]*Layer, len(state.Layers))
	for i, ls := range state.Layers {
		layers[i] = &Layer{
			weights:   ls.Weights,
			rates:     ls.Rates,
			prevSigns: ls.PrevSigns,
			transfer:  ls.Transfer,
		}
		layers[i].resetTransient()
	}

	return &Network{inputs: state.Inputs, layers: layers}, nil
}

// validate checks the shape chain: all matrices per layer share one
// shape, column count equals the previous size plus one, signs stay
// within {-1, 0, 1}, and the transfer tag is known.
func (s *networkState) validate() error {
	if s.Inputs <= 0 {
		return fmt.Errorf("%w: non-positive input size %d", ErrMalformedModel, s.Inputs)
	}
	if len(s.Layers) == 0 {
		return fmt.Errorf("%w: no layers", ErrMalformedModel)
	}

	prevSize := s.Inputs
	for i, layer := range s.Layers {
		if len(layer.Weights) == 0 {
			return fmt.Errorf("%w: layer %d is empty", ErrMalformedModel, i)
		}
		if !layer.Transfer.Valid() {
			return fmt.Errorf("%w: layer %d has unknown transfer tag %d",
				ErrMalformedModel, i, layer.Transfer)
		}
		if len(layer.Rates) != len(layer.Weights) || len(layer.PrevSigns) != len(layer.Weights) {
			return fmt.Errorf("%w: layer %d matrix row counts disagree", ErrMalformedModel, i)
		}

		cols := prevSize + 1
		for r, row := range layer.Weights {
			if len(row) != cols {
				return fmt.Errorf("%w: layer %d weight row %d has %d columns, want %d",
					ErrMalformedModel, i, r, len(row), cols)
			}
			if len(layer.Rates[r]) != cols || len(layer.PrevSigns[r]) != cols {
				return fmt.Errorf("%w: layer %d row %d matrix shapes disagree",
					ErrMalformedModel, i, r)
			}
			for _, sign := range layer.PrevSigns[r] {
				if sign < -1 || sign > 1 {
					return fmt.Errorf("%w: layer %d row %d has sign %d outside {-1,0,1}",
						ErrMalformedModel, i, r, sign)
				}
			}
		}

		prevSize = len(layer.Weights)
	}

	return nil
}
