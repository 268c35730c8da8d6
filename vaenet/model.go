// Package vae implements multi-view variational autoencoder variants on a
// gorgonia expression graph. All variants share one pipeline, assembled at
// Init time: encode each view, optionally fuse the per-view posteriors,
// sample by reparameterisation, decode, and aggregate the KL and
// reconstruction terms into total = beta*kl - ll. A forward pass is a single
// synchronous run of the compiled graph.
package vae

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/gorgonia/multivae/gate"
)

// Losses holds the three loss scalars of one forward pass.
// Total is always Beta*KL - LL; Beta never scales LL.
type Losses struct {
	Total float32
	KL    float32
	LL    float32
}

// Forward is the outcome of one forward pass. XRecon[i][j] is view i
// reconstructed from latent j; models with a single (joint) latent have one
// column. Mus and LogVars hold the posterior parameters, one entry per
// posterior the variant produces.
type Forward struct {
	XRecon  [][]G.Value
	Mus     []G.Value
	LogVars []G.Value

	total, kl, ll G.Value
}

// Forwarder is the forward/loss contract a training driver consumes.
type Forwarder interface {
	Init() error
	Forward(xs []*tensor.Dense) (*Forward, error)
	Loss(fwd *Forward) Losses
}

// OptimizerConfigurer is the optimiser-construction contract. The returned
// partitioning is fixed at Init and matches which parameters receive
// gradients from the loss graph.
type OptimizerConfigurer interface {
	ConfigureOptimizers() []*Optimizer
}

// Model is what every variant implements. The two capability interfaces are
// composed by delegation to the shared base; there is no training-helper
// mixin on the network types.
type Model interface {
	Forwarder
	OptimizerConfigurer

	Conf() Config
	Learnables() G.Nodes
	Dropout() ([]float32, error)
	ApplyThreshold(zs []*tensor.Dense) error
	Close() error
}

// base carries everything the variants share: the graph, input nodes, the
// sparsity gate, the VM, and the read-out values of one forward pass.
type base struct {
	Config

	g    *G.ExprGraph
	xs   []*G.Node
	gate *gate.Gate
	vm   G.VM

	learnables G.Nodes
	optimizers []*Optimizer

	reconVals      [][]G.Value
	muVals, lvVals []G.Value
	totalVal       G.Value
	klVal, llVal   G.Value
}

// Conf returns the model's configuration.
func (b *base) Conf() Config { return b.Config }

// Learnables returns every parameter node of the model, gate included.
func (b *base) Learnables() G.Nodes { return b.learnables }

// ConfigureOptimizers returns the optimiser partition fixed at Init.
func (b *base) ConfigureOptimizers() []*Optimizer { return b.optimizers }

// Close releases the underlying VM.
func (b *base) Close() error {
	if b.vm == nil {
		return nil
	}
	return b.vm.Close()
}

// Loss assembles the loss scalars captured by fwd.
func (b *base) Loss(fwd *Forward) Losses {
	if fwd == nil {
		return Losses{Total: math32.NaN(), KL: math32.NaN(), LL: math32.NaN()}
	}
	return Losses{Total: scalar(fwd.total), KL: scalar(fwd.kl), LL: scalar(fwd.ll)}
}

// Dropout returns the per-dimension dropout rate of the sparsity gate.
func (b *base) Dropout() ([]float32, error) {
	if b.gate == nil {
		return nil, errors.New("dropout is unsupported for a non-sparse model")
	}
	return b.gate.DropoutRate()
}

// ApplyThreshold zeroes, in place and identically across the batch, every
// latent dimension whose dropout rate reaches the configured threshold. It
// is an evaluation-time operation; the loss never sees the mask.
func (b *base) ApplyThreshold(zs []*tensor.Dense) error {
	if b.gate == nil {
		return errors.New("thresholding is unsupported for a non-sparse model")
	}
	keep, err := b.gate.KeepMask(b.Threshold)
	if err != nil {
		return err
	}
	for i, z := range zs {
		if err := gate.Apply(z, keep); err != nil {
			return errors.Wrapf(err, "latent %d", i)
		}
	}
	return nil
}

// reset clears graph state so Init can be called again.
func (b *base) reset() {
	if b.vm != nil {
		b.vm.Close()
	}
	b.g = nil
	b.xs = nil
	b.gate = nil
	b.vm = nil
	b.learnables = nil
	b.optimizers = nil
	b.reconVals = nil
	b.muVals = nil
	b.lvVals = nil
}

// inputs creates one input matrix node per view.
func (b *base) inputs() {
	b.xs = make([]*G.Node, b.NViews())
	for i, d := range b.InputDims {
		b.xs[i] = G.NewMatrix(b.g, Float, G.WithShape(b.BatchSize, d), G.WithName(viewName("x", i)))
	}
}

// seal finishes graph construction: scales the KL by beta, forms the total,
// installs the read-outs, and takes the gradient unless the graph is
// forward-only. kl and ll must be scalar nodes; the reported KL is the
// unscaled one, so Total == Beta*KL - LL holds for the read values.
func (b *base) seal(m *maebe, kl, ll *G.Node) error {
	scaled := m.scale(b.Beta, kl)
	total := m.sub(scaled, ll)
	if m.err != nil {
		return m.err
	}
	G.Read(kl, &b.klVal)
	G.Read(ll, &b.llVal)
	G.Read(total, &b.totalVal)

	if b.FwdOnly {
		return nil
	}
	if _, err := G.Grad(total, b.learnables...); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// run binds the inputs and executes the graph once.
func (b *base) run(xs []*tensor.Dense) (*Forward, error) {
	if b.g == nil {
		return nil, errors.New("model is not initialised")
	}
	if len(xs) != b.NViews() {
		return nil, errors.Errorf("model is configured for %d views, got %d inputs", b.NViews(), len(xs))
	}
	for i, x := range xs {
		want := tensor.Shape{b.BatchSize, b.InputDims[i]}
		if !x.Shape().Eq(want) {
			return nil, errors.Errorf("view %d has shape %v, want %v", i, x.Shape(), want)
		}
		G.Let(b.xs[i], x)
	}
	if b.vm == nil {
		if b.FwdOnly {
			b.vm = G.NewTapeMachine(b.g)
		} else {
			b.vm = G.NewTapeMachine(b.g, G.BindDualValues(b.learnables...))
		}
	}
	b.vm.Reset()
	if err := b.vm.RunAll(); err != nil {
		return nil, errors.Wrapf(err, "forward pass")
	}
	return &Forward{
		XRecon:  b.reconVals,
		Mus:     b.muVals,
		LogVars: b.lvVals,
		total:   b.totalVal,
		kl:      b.klVal,
		ll:      b.llVal,
	}, nil
}

func scalar(v G.Value) float32 {
	if v == nil {
		return math32.NaN()
	}
	switch data := v.Data().(type) {
	case float32:
		return data
	case float64:
		return float32(data)
	}
	return math32.NaN()
}

func viewName(prefix string, i int) string {
	return fmt.Sprintf("%s_%d", prefix, i)
}
