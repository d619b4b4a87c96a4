// Package train drives batch training and evaluation of digit
// classifiers over MNIST-style datasets.
package train

import (
	"fmt"
	"io"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/quill-ml/quill/internal/mnist"
	"github.com/quill-ml/quill/internal/nn"
)

// classCount is the number of digit classes and therefore the output
// layer size.
const classCount = 10

// architecture is the fixed classifier stack: two tanh hidden layers
// over one sigmoid scoring layer.
func architecture() []nn.LayerSpec {
	return []nn.LayerSpec{
		{Size: 50, Transfer: nn.Tanh},
		{Size: 50, Transfer: nn.Tanh},
		{Size: classCount, Transfer: nn.Sigmoid},
	}
}

// Samples drains the reader into training samples: pixels normalized
// to [0, 1], labels one-hot encoded over the ten classes.
func Samples(r *mnist.Reader) ([]nn.Sample, error) {
	samples := make([]nn.Sample, 0, r.Len())

	for {
		label, pixels, err := r.Next()
		if err == io.EOF {
			return samples, nil
		}
		if err != nil {
			return nil, err
		}

		inputs := make([]float64, len(pixels))
		for i, p := range pixels {
			inputs[i] = float64(p) / 255.0
		}

		outputs := make([]float64, classCount)
		if int(label) < classCount {
			outputs[label] = 1.0
		}

		samples = append(samples, nn.Sample{Inputs: inputs, Outputs: outputs})
	}
}

// xorshift is a tiny PRNG step used only to pick where in the sample
// set the rotating batch window starts.
func xorshift(x uint32) uint32 {
	x ^= x << 13
	x ^= x >> 17
	return x ^ (x << 5)
}

// Run trains a network over the configured dataset and saves it to the
// model path. Progress lines go to out.
//
// Each iteration trains on a contiguous window of the sample set; the
// window slides by one sample per iteration from a randomized start,
// wrapping around the set.
func Run(cfg Config, out io.Writer) error {
	reader, err := mnist.Open(cfg.TrainLabels, cfg.TrainImages)
	if err != nil {
		return err
	}
	defer reader.Close()

	samples, err := Samples(reader)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("train: dataset %q is empty", cfg.TrainImages)
	}

	inputSize := reader.Width() * reader.Height()

	var net *nn.Network
	if cfg.Mode == ModeTrain {
		net, err = nn.Load(cfg.ModelPath)
		if err != nil {
			return err
		}
		if net.InputSize() != inputSize {
			return fmt.Errorf("train: model expects %d inputs, dataset has %d",
				net.InputSize(), inputSize)
		}
	} else {
		net = nn.New(inputSize, architecture())
	}

	progressEvery := progressInterval(cfg.Iterations)
	batchBegin := int(xorshift(rand.Uint32()))

	for i := 0; i < cfg.Iterations; i++ {
		batch := make([]nn.Sample, cfg.BatchSize)
		for b := range batch {
			batch[b] = samples[(i+b+batchBegin)%len(samples)]
		}

		net.TrainBatchParallel(batch, cfg.Threads)

		if i%progressEvery == 0 || i == cfg.Iterations-1 {
			printProgress(out, i+1, cfg.Iterations)
		}
	}

	return net.Save(cfg.ModelPath)
}

// progressInterval spaces progress lines to roughly one percent of the
// run, never more often than every iteration.
func progressInterval(iterations int) int {
	return max(iterations/100, 1)
}

func printProgress(out io.Writer, done, total int) {
	const width = 30
	filled := done * width / total
	fmt.Fprintf(out, "[%s%s] %.2f%%\n",
		strings.Repeat("#", filled),
		strings.Repeat("_", width-filled),
		float64(done)/float64(total)*100.0)
}

// Summary is the result of an evaluation pass.
type Summary struct {
	Samples       int
	Correct       int
	Accuracy      float64
	CombinedError float64 // summed half squared error over all samples
	MeanError     float64 // per-sample mean of the half squared error
}

// Evaluate feeds up to limit samples from the reader through the
// network and scores argmax predictions against the labels. limit <= 0
// evaluates everything the reader has.
func Evaluate(net *nn.Network, r *mnist.Reader, limit int) (Summary, error) {
	if limit <= 0 || limit > r.Len() {
		limit = r.Len()
	}

	var summary Summary
	errs := make([]float64, 0, limit)

	for n := 0; n < limit; n++ {
		label, pixels, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Summary{}, err
		}

		inputs := make([]float64, len(pixels))
		for i, p := range pixels {
			inputs[i] = float64(p) / 255.0
		}

		out := net.Feedforward(inputs)

		guess := 0
		for i, score := range out {
			if score > out[guess] {
				guess = i
			}
		}
		if guess == int(label) {
			summary.Correct++
		}

		var sampleErr float64
		for i, score := range out {
			want := 0.0
			if i == int(label) {
				want = 1.0
			}
			diff := want - score
			sampleErr += diff * diff * 0.5
		}
		errs = append(errs, sampleErr)

		summary.Samples++
	}

	if summary.Samples > 0 {
		summary.Accuracy = float64(summary.Correct) / float64(summary.Samples)
		summary.MeanError = stat.Mean(errs, nil)
		for _, e := range errs {
			summary.CombinedError += e
		}
	}

	return summary, nil
}
