package config

import (
	"github.com/pkg/errors"
)

// Config captures the paths and knobs for one run.
type Config struct {
	WeightsDir string
	ImagesPath string
	LabelsPath string
	Index      int
	Limit      int
	Backend    string
}

// Overrides captures CLI supplied values. Zero values leave the default.
type Overrides struct {
	WeightsDir string
	ImagesPath string
	LabelsPath string
	Index      int
	Limit      int
	Backend    string
}

// Default matches the layout of the pretrained model directory.
func Default() *Config {
	return &Config{
		WeightsDir: "models/mnist-lenet",
		ImagesPath: "models/mnist-lenet/t10k-images.idx3-ubyte",
		LabelsPath: "models/mnist-lenet/t10k-labels.idx1-ubyte",
		Index:      0,
		Backend:    "graph",
	}
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.WeightsDir != "" {
		c.WeightsDir = o.WeightsDir
	}
	if o.ImagesPath != "" {
		c.ImagesPath = o.ImagesPath
	}
	if o.LabelsPath != "" {
		c.LabelsPath = o.LabelsPath
	}
	if o.Index > 0 {
		c.Index = o.Index
	}
	if o.Limit > 0 {
		c.Limit = o.Limit
	}
	if o.Backend != "" {
		c.Backend = o.Backend
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.WeightsDir == "" {
		return errors.New("weights directory must be set")
	}
	if c.ImagesPath == "" {
		return errors.New("image archive must be set")
	}
	if c.Index < 0 {
		return errors.Errorf("index must be >= 0 (got %d)", c.Index)
	}
	if c.Limit < 0 {
		return errors.Errorf("limit must be >= 0 (got %d)", c.Limit)
	}
	switch c.Backend {
	case "graph", "reference":
	default:
		return errors.Errorf("backend must be graph or reference (got %q)", c.Backend)
	}
	return nil
}
