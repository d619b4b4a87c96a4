// Command quill trains and evaluates a digit classifier over MNIST
// IDX datasets.
//
// Usage:
//
//	quill -labels train-labels-idx1-ubyte -images train-images-idx3-ubyte
//	quill -config quill.yaml -mode train -iter 100
//
// Flags override values from the optional YAML config file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/quill-ml/quill/internal/mnist"
	"github.com/quill-ml/quill/internal/nn"
	"github.com/quill-ml/quill/internal/train"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("quill: ")

	configPath := flag.String("config", "", "optional YAML config file")
	mode := flag.String("mode", "", "program mode: restart or train (default restart)")
	output := flag.String("o", "", "output model path (default network.nn)")
	threads := flag.Int("threads", 0, "worker count (default: logical cores)")
	iterations := flag.Int("iter", 0, "iterations to train for (default 10)")
	batchSize := flag.Int("batch", 0, "batch size (default 10000)")
	images := flag.String("images", "", "training images (IDX)")
	labels := flag.String("labels", "", "training labels (IDX)")
	testImages := flag.String("test-images", "", "test images (defaults to training images)")
	testLabels := flag.String("test-labels", "", "test labels (defaults to training labels)")
	evalLimit := flag.Int("eval", 1000, "samples to evaluate after training")
	flag.Parse()

	cfg := train.Default()
	if *configPath != "" {
		var err error
		cfg, err = train.FromFile(*configPath)
		if err != nil {
			log.Fatal(err)
		}
	}

	if *mode != "" {
		cfg.Mode = train.Mode(*mode)
	}
	if *output != "" {
		cfg.ModelPath = *output
	}
	if *threads > 0 {
		cfg.Threads = *threads
	}
	if *iterations > 0 {
		cfg.Iterations = *iterations
	}
	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}
	if *images != "" {
		cfg.TrainImages = *images
	}
	if *labels != "" {
		cfg.TrainLabels = *labels
	}
	if *testImages != "" {
		cfg.TestImages = *testImages
	}
	if *testLabels != "" {
		cfg.TestLabels = *testLabels
	}

	if err := cfg.Validate(); err != nil {
		log.Printf("%v", err)
		flag.Usage()
		os.Exit(1)
	}

	if err := train.Run(cfg, os.Stdout); err != nil {
		log.Fatal(err)
	}

	if err := evaluate(cfg, *evalLimit); err != nil {
		log.Fatal(err)
	}
}

func evaluate(cfg train.Config, limit int) error {
	net, err := nn.Load(cfg.ModelPath)
	if err != nil {
		return err
	}

	reader, err := mnist.Open(cfg.TestLabels, cfg.TestImages)
	if err != nil {
		return err
	}
	defer reader.Close()

	summary, err := train.Evaluate(net, reader, limit)
	if err != nil {
		return err
	}

	fmt.Printf("combined error: %g, percent correct: %.2f%%\n",
		summary.CombinedError, summary.Accuracy*100.0)
	return nil
}
