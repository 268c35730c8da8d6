package vae

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// Optimizer pairs an Adam solver with the parameter subset it owns. The
// partitioning is decided at Init per variant: one per view for fully
// decoupled models, a {shared encoder, private encoders, decoders} split for
// disentangled models, and a single optimiser when fusion couples every
// view's gradients.
type Optimizer struct {
	name   string
	solver G.Solver
	params []G.ValueGrad
}

func newAdam(name string, lr float64, ns G.Nodes) *Optimizer {
	return &Optimizer{
		name:   name,
		solver: G.NewAdamSolver(G.WithLearnRate(lr)),
		params: G.NodesToValueGrads(ns),
	}
}

// Name identifies the parameter group this optimiser covers.
func (o *Optimizer) Name() string { return o.name }

// Step applies one update to the optimiser's parameter group. The gradients
// must have been populated by a prior forward pass.
func (o *Optimizer) Step() error {
	if err := o.solver.Step(o.params); err != nil {
		return errors.Wrapf(err, "optimizer %q", o.name)
	}
	return nil
}
