// Package gate implements the variational-dropout sparsity gate: a learned
// log-variance parameter of shape [1, zDim] whose per-dimension dropout rate
// decides which latent dimensions are noise. The gate is read during loss
// computation through the encoders and applied as a hard mask only at
// evaluation time.
package gate

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
)

// Gate owns the learnable log-alpha parameter.
type Gate struct {
	logAlpha *G.Node
}

// New creates a gate over zDim latent dimensions on g. The parameter is
// initialised from N(0, 0.01).
func New(g *G.ExprGraph, zDim int) *Gate {
	la := G.NewMatrix(g, G.Float32, G.WithShape(1, zDim), G.WithName("log_alpha"), G.WithInit(G.Gaussian(0, 0.01)))
	return &Gate{logAlpha: la}
}

// LogAlpha returns the parameter node, shape [1, zDim].
func (ga *Gate) LogAlpha() *G.Node { return ga.logAlpha }

// Dims returns the number of gated latent dimensions.
func (ga *Gate) Dims() int { return ga.logAlpha.Shape()[1] }

// DropoutRate returns exp(logAlpha) / (exp(logAlpha) + 1) per dimension: the
// probability that a dimension is pure noise. Values lie in (0, 1).
func (ga *Gate) DropoutRate() ([]float32, error) {
	val := ga.logAlpha.Value()
	if val == nil {
		return nil, errors.New("log_alpha has no value yet")
	}
	data, ok := val.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("log_alpha holds %T, want []float32", val.Data())
	}
	rates := make([]float32, len(data))
	for i, la := range data {
		a := math32.Exp(la)
		rates[i] = a / (a + 1)
	}
	return rates, nil
}

// KeepMask returns, per latent dimension, whether the dimension survives
// thresholding: kept when its dropout rate is below threshold. The threshold
// must lie in (0, 1].
func (ga *Gate) KeepMask(threshold float64) ([]bool, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, errors.Errorf("threshold must lie in (0, 1], got %v", threshold)
	}
	rates, err := ga.DropoutRate()
	if err != nil {
		return nil, err
	}
	keep := make([]bool, len(rates))
	for i, r := range rates {
		keep[i] = r < float32(threshold)
	}
	return keep, nil
}

// Apply zeroes the dropped latent dimensions of z in place. The mask is per
// dimension: the same columns are zeroed for every sample in the batch.
func Apply(z *tensor.Dense, keep []bool) error {
	if z.Dims() != 2 {
		return errors.Errorf("masking wants a [batch, zDim] latent, got shape %v", z.Shape())
	}
	if z.Shape()[1] != len(keep) {
		return errors.Errorf("mask covers %d dimensions but the latent has %d", len(keep), z.Shape()[1])
	}
	rows, err := native.MatrixF32(z)
	if err != nil {
		return errors.Wrapf(err, "masking latent")
	}
	for _, row := range rows {
		for j, k := range keep {
			if !k {
				row[j] = 0
			}
		}
	}
	return nil
}
