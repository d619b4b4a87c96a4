package train

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"gopkg.in/yaml.v3"
)

// Mode selects what the driver does with the model file.
type Mode string

const (
	// ModeRestart discards any existing model and trains from fresh
	// random weights.
	ModeRestart Mode = "restart"
	// ModeTrain continues training the model already on disk.
	ModeTrain Mode = "train"
)

// Config errors.
var (
	ErrMissingDataset = errors.New("training labels and images paths are required")
	ErrInvalidMode    = errors.New("invalid mode")
)

// Config carries every run parameter of the training driver. All
// fields can come from a YAML file, command-line flags, or both (flags
// win).
type Config struct {
	Mode       Mode   `yaml:"mode"`
	ModelPath  string `yaml:"model"`
	Threads    int    `yaml:"threads"`
	Iterations int    `yaml:"iterations"`
	BatchSize  int    `yaml:"batch_size"`

	TrainImages string `yaml:"train_images"`
	TrainLabels string `yaml:"train_labels"`
	TestImages  string `yaml:"test_images"`
	TestLabels  string `yaml:"test_labels"`
}

// Default returns the baseline configuration: restart mode, model at
// ./network.nn, ten iterations of 10000-sample batches, and one worker
// per logical core.
func Default() Config {
	return Config{
		Mode:       ModeRestart,
		ModelPath:  "network.nn",
		Threads:    defaultThreads(),
		Iterations: 10,
		BatchSize:  10000,
	}
}

// defaultThreads asks the CPUID leaf for the logical core count and
// falls back to the runtime's view when it is unavailable (common in
// containers and on non-x86 hosts).
func defaultThreads() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// FromFile overlays the YAML document at path onto the default
// configuration.
func FromFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("train: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("train: parse config: %w", err)
	}

	return cfg, nil
}

// Validate normalizes the configuration and rejects unusable values.
// Missing test datasets fall back to the training ones, as the test
// pass is only a rough progress indicator.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeRestart, ModeTrain:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}

	if c.TrainLabels == "" || c.TrainImages == "" {
		return ErrMissingDataset
	}
	if c.TestLabels == "" {
		c.TestLabels = c.TrainLabels
	}
	if c.TestImages == "" {
		c.TestImages = c.TrainImages
	}

	if c.Threads < 1 {
		c.Threads = defaultThreads()
	}
	if c.Iterations < 1 {
		return fmt.Errorf("train: iterations must be positive, got %d", c.Iterations)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("train: batch size must be positive, got %d", c.BatchSize)
	}
	if c.ModelPath == "" {
		return errors.New("train: model path must not be empty")
	}

	return nil
}
