// Package fuse combines per-view posterior parameters into a single joint
// posterior. Two strategies are provided: the arithmetic mean of the
// per-view parameters, and the precision-weighted product of experts.
package fuse

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Strategy names accepted by FromName.
const (
	MeanJoin = "Mean"
	PoEJoin  = "PoE"
)

// Strategy fuses per-view location and log-variance nodes, all of shape
// [batch, zDim], into a single pair of the same shape.
type Strategy interface {
	Fuse(mus, logvars []*G.Node) (mu, logvar *G.Node, err error)
	Name() string
}

// FromName resolves a join type name to its strategy. Unknown names are a
// configuration error.
func FromName(name string) (Strategy, error) {
	switch name {
	case MeanJoin:
		return Mean{}, nil
	case PoEJoin:
		return PoE{}, nil
	}
	return nil, errors.Errorf("unknown join type %q: want %q or %q", name, MeanJoin, PoEJoin)
}

// Mean fuses by taking the elementwise mean of the locations and of the
// log-variances. Log-variances are averaged directly rather than combined by
// precision, so the fused variance is the geometric mean of the per-view
// variances.
type Mean struct{}

// Name implements Strategy.
func (Mean) Name() string { return MeanJoin }

// Fuse implements Strategy.
func (Mean) Fuse(mus, logvars []*G.Node) (*G.Node, *G.Node, error) {
	if err := checkViews(mus, logvars); err != nil {
		return nil, nil, err
	}
	mu, err := average(mus)
	if err != nil {
		return nil, nil, err
	}
	logvar, err := average(logvars)
	if err != nil {
		return nil, nil, err
	}
	return mu, logvar, nil
}

// PoE fuses by treating each view's posterior as an independent Gaussian
// expert plus an implicit unit-variance prior expert. Precisions add, so the
// fused variance never exceeds any single expert's variance, and the prior
// expert keeps it from collapsing when only one view is present.
type PoE struct{}

// Name implements Strategy.
func (PoE) Name() string { return PoEJoin }

// Fuse implements Strategy.
func (PoE) Fuse(mus, logvars []*G.Node) (*G.Node, *G.Node, error) {
	if err := checkViews(mus, logvars); err != nil {
		return nil, nil, err
	}
	var precSum, weighted *G.Node
	for i := range mus {
		neg, err := G.Neg(logvars[i])
		if err != nil {
			return nil, nil, errors.WithStack(err)
		}
		prec, err := G.Exp(neg) // 1/var_i, in log space
		if err != nil {
			return nil, nil, errors.WithStack(err)
		}
		w, err := G.HadamardProd(mus[i], prec)
		if err != nil {
			return nil, nil, errors.WithStack(err)
		}
		if precSum, err = accumulate(precSum, prec); err != nil {
			return nil, nil, err
		}
		if weighted, err = accumulate(weighted, w); err != nil {
			return nil, nil, err
		}
	}

	// the prior expert contributes unit precision and zero mean
	precSum, err := G.Add(precSum, constant(1, mus[0].Dtype()))
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	mu, err := G.HadamardDiv(weighted, precSum)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	logPrec, err := G.Log(precSum)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	logvar, err := G.Neg(logPrec)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	return mu, logvar, nil
}

func checkViews(mus, logvars []*G.Node) error {
	if len(mus) == 0 {
		return errors.New("fusing requires at least one view")
	}
	if len(mus) != len(logvars) {
		return errors.Errorf("view count mismatch: %d locations, %d log-variances", len(mus), len(logvars))
	}
	return nil
}

func average(ns []*G.Node) (*G.Node, error) {
	var sum *G.Node
	var err error
	for _, n := range ns {
		if sum, err = accumulate(sum, n); err != nil {
			return nil, err
		}
	}
	avg, err := G.Mul(constant(1/float64(len(ns)), ns[0].Dtype()), sum)
	return avg, errors.WithStack(err)
}

func accumulate(sum, n *G.Node) (*G.Node, error) {
	if sum == nil {
		return n, nil
	}
	out, err := G.Add(sum, n)
	return out, errors.WithStack(err)
}

func constant(v float64, dt tensor.Dtype) *G.Node {
	if dt == G.Float32 {
		return G.NewConstant(float32(v))
	}
	return G.NewConstant(v)
}
