package vae

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// Float is the dtype every model is built with.
var Float = G.Float32

// Config configures a model variant. Every recognised override is a named
// field; there is no dynamic injection of unknown settings.
type Config struct {
	InputDims       []int // feature width per view
	ZDim            int   // latent width before any private concatenation
	HiddenLayerDims []int // encoder hidden widths; decoders mirror them
	NonLinear       bool  // ReLU between hidden layers

	LearningRate float64
	Beta         float64 // weight on the KL term only
	Threshold    float64 // dropout threshold; 0 disables sparsity for good

	JoinType   string // joint models: "Mean" or "PoE"
	CrossRecon bool   // independent model: decode every view from every latent
	Private    bool   // DVCCA: add per-view private encoders

	BatchSize int
	FwdOnly   bool // deterministic sampling, no gradient graph
}

// DefaultConf returns a workable configuration: unit latent, no hidden
// layers, Adam at 2e-3, beta 1, cross reconstruction on, mean join.
func DefaultConf(inputDims ...int) Config {
	return Config{
		InputDims:    inputDims,
		ZDim:         1,
		LearningRate: 0.002,
		Beta:         1,
		JoinType:     "Mean",
		CrossRecon:   true,
		BatchSize:    32,
	}
}

// NViews returns the number of configured views.
func (c Config) NViews() int { return len(c.InputDims) }

// Sparse reports whether the sparsity gate is enabled. A zero threshold
// disables it permanently for any model built from this config.
func (c Config) Sparse() bool { return c.Threshold != 0 }

// Validate fails fast on any setting a model cannot be built from.
func (c Config) Validate() error {
	if len(c.InputDims) == 0 {
		return errors.New("at least one view is required")
	}
	for i, d := range c.InputDims {
		if d < 1 {
			return errors.Errorf("view %d has invalid width %d", i, d)
		}
	}
	for i, d := range c.HiddenLayerDims {
		if d < 1 {
			return errors.Errorf("hidden layer %d has invalid width %d", i, d)
		}
	}
	if c.ZDim < 1 {
		return errors.Errorf("latent width must be positive, got %d", c.ZDim)
	}
	if c.BatchSize < 1 {
		return errors.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return errors.Errorf("learning rate must be positive, got %v", c.LearningRate)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return errors.Errorf("threshold must lie in [0, 1], got %v", c.Threshold)
	}
	return nil
}
