package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPanicsOnEmptySpec(t *testing.T) {
	assert.Panics(t, func() { New(3, nil) })
	assert.Panics(t, func() { New(3, []LayerSpec{}) })
	assert.Panics(t, func() { New(3, []LayerSpec{{Size: 0, Transfer: Tanh}}) })
}

func TestNetworkSizeChain(t *testing.T) {
	n := New(5, []LayerSpec{
		{Size: 7, Transfer: Tanh},
		{Size: 4, Transfer: Sigmoid},
		{Size: 2, Transfer: Identity},
	})

	require.Equal(t, 5, n.InputSize())
	require.Equal(t, 2, n.OutputSize())

	prev := n.inputs
	for _, layer := range n.layers {
		for _, row := range layer.weights {
			require.Len(t, row, prev+1)
		}
		prev = layer.Size()
	}
}

// A fresh single-layer network fed all zeros outputs exactly the
// transformed bias weight per neuron.
func TestFeedforwardZeroInput(t *testing.T) {
	for tf := Identity; tf < numTransferFunctions; tf++ {
		n := New(6, []LayerSpec{{Size: 4, Transfer: tf}})

		out := n.Feedforward(make([]float64, 6))
		require.Len(t, out, 4)
		for i, got := range out {
			bias := n.layers[0].weights[i][6]
			assert.Equal(t, tf.Value(bias), got, "neuron %d under %s", i, tf)
		}
	}
}

// Only the final layer's output is transformed on the way out; the
// stored sums stay raw.
func TestFeedforwardTransformsLastLayerOnly(t *testing.T) {
	n := New(1, []LayerSpec{{Size: 1, Transfer: Sigmoid}})

	out := n.Feedforward([]float64{0.25})
	assert.Equal(t, Sigmoid.Value(n.layers[0].sums[0]), out[0])
	assert.NotEqual(t, out[0], n.layers[0].sums[0])
}

// TestBackpropGradients compares the analytic gradient of every weight
// in randomly shaped networks against a symmetric numerical difference
// over the summed raw outputs. The expected outputs are rigged to
// tf(sum)-1 so the output-layer error is exactly 1 and the accumulated
// gradient equals the derivative of the output sum with respect to the
// weight.
func TestBackpropGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const change = 0.1

	for trial := 0; trial < 10; trial++ {
		inputs := rng.Intn(9) + 1
		specs := make([]LayerSpec, rng.Intn(9)+1)
		for i := range specs {
			specs[i] = LayerSpec{Size: rng.Intn(9) + 1, Transfer: Sigmoid}
		}
		n := New(inputs, specs)

		outputSum := func(in []float64) float64 {
			n.forward(in)
			last := n.layers[len(n.layers)-1]
			var sum float64
			for _, s := range last.sums {
				sum += last.transfer.Value(s)
			}
			return sum
		}

		for li, layer := range n.layers {
			for ni := range layer.weights {
				for wi := range layer.weights[ni] {
					in := make([]float64, inputs)
					for k := range in {
						in[k] = rng.Float64()
					}

					w := layer.weights[ni][wi]

					layer.weights[ni][wi] = w + change
					left := outputSum(in)
					layer.weights[ni][wi] = w - change
					right := outputSum(in)
					layer.weights[ni][wi] = w

					numeric := (left - right) / (2 * change)

					n.forward(in)
					last := n.layers[len(n.layers)-1]
					expected := make([]float64, last.Size())
					for k, s := range last.sums {
						expected[k] = last.transfer.Value(s) - 1.0
					}

					n.forward(in)
					n.backward(in, expected)

					analytic := layer.gradBatch[ni][wi]
					require.InDeltaf(t, numeric, analytic, 0.001,
						"trial %d layer %d neuron %d weight %d", trial, li, ni, wi)

					for _, l := range n.layers {
						for _, row := range l.gradBatch {
							for j := range row {
								row[j] = 0.0
							}
						}
					}
				}
			}
		}
	}
}

// TrainBatch must leave identical weights to accumulating the same
// samples one by one and applying once.
func TestTrainBatchUpdatesOncePerBatch(t *testing.T) {
	base := New(3, []LayerSpec{{Size: 4, Transfer: Tanh}, {Size: 2, Transfer: Sigmoid}})
	other := base.Clone()

	samples := randomSamples(rand.New(rand.NewSource(7)), 12, 3, 2)

	base.TrainBatch(samples)

	other.accumulateBatch(samples)
	other.applyGradients()

	assertEqualWeights(t, base, other, 0.0)
}

func TestTrainBatchParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	specs := []LayerSpec{
		{Size: 8, Transfer: Tanh},
		{Size: 6, Transfer: Sigmoid2},
		{Size: 3, Transfer: Sigmoid},
	}

	for _, workers := range []int{1, 2, 3, 4, 7, 16, 64} {
		seq := New(5, specs)
		par := seq.Clone()

		samples := randomSamples(rng, 20, 5, 3)

		seq.TrainBatch(samples)
		par.TrainBatchParallel(samples, workers)

		assertEqualWeights(t, seq, par, 1e-9)
	}
}

// Batches smaller than the worker count degrade to the sequential
// path and must still update exactly once.
func TestTrainBatchParallelSmallBatch(t *testing.T) {
	seq := New(2, []LayerSpec{{Size: 2, Transfer: Sigmoid}})
	par := seq.Clone()

	samples := randomSamples(rand.New(rand.NewSource(3)), 3, 2, 2)

	seq.TrainBatch(samples)
	par.TrainBatchParallel(samples, 8)

	assertEqualWeights(t, seq, par, 0.0)
}

func TestCloneNetworkIsDeep(t *testing.T) {
	n := New(2, []LayerSpec{{Size: 3, Transfer: Tanh}, {Size: 1, Transfer: Sigmoid}})
	c := n.Clone()

	c.layers[0].weights[0][0] += 1.0
	c.layers[1].gradBatch[0][1] = 42.0

	assert.NotEqual(t, n.layers[0].weights[0][0], c.layers[0].weights[0][0])
	assert.Zero(t, n.layers[1].gradBatch[0][1])
}

// TestItLearns trains a 2-2-2-1 network on two linearly separated
// classes: inputs summing below 0.5 are class 0, inputs whose second
// coordinate is at least 0.5 are class 1. After 2000 batches of 10 the
// output must clear 0.4/0.6 thresholds on fresh samples.
func TestItLearns(t *testing.T) {
	n := New(2, []LayerSpec{
		{Size: 2, Transfer: Sigmoid2},
		{Size: 2, Transfer: Sigmoid2},
		{Size: 1, Transfer: Sigmoid},
	})

	rng := rand.New(rand.NewSource(1234))
	genSample := func(class int) Sample {
		first := rng.Float64() * 0.5
		var second float64
		if class == 0 {
			second = rng.Float64() * (0.5 - first)
		} else {
			second = max(rng.Float64()*first, 0.5)
		}
		return Sample{Inputs: []float64{first, second}, Outputs: []float64{float64(class)}}
	}

	for iter := 0; iter < 2000; iter++ {
		batch := make([]Sample, 10)
		for i := range batch {
			batch[i] = genSample(i % 2)
		}
		n.TrainBatch(batch)
	}

	for iter := 0; iter < 20; iter++ {
		assert.Less(t, n.Feedforward(genSample(0).Inputs)[0], 0.4)
		assert.Greater(t, n.Feedforward(genSample(1).Inputs)[0], 0.6)
	}
}

func randomSamples(rng *rand.Rand, count, inputs, outputs int) []Sample {
	samples := make([]Sample, count)
	for i := range samples {
		s := Sample{
			Inputs:  make([]float64, inputs),
			Outputs: make([]float64, outputs),
		}
		for j := range s.Inputs {
			s.Inputs[j] = rng.Float64()
		}
		for j := range s.Outputs {
			s.Outputs[j] = rng.Float64()
		}
		samples[i] = s
	}
	return samples
}

func assertEqualWeights(t *testing.T, a, b *Network, tol float64) {
	t.Helper()
	require.Equal(t, len(a.layers), len(b.layers))
	for li := range a.layers {
		for ni := range a.layers[li].weights {
			for wi, w := range a.layers[li].weights[ni] {
				if tol == 0.0 {
					require.Equal(t, w, b.layers[li].weights[ni][wi])
				} else {
					require.InDelta(t, w, b.layers[li].weights[ni][wi], tol)
				}
			}
		}
	}
}
