package vae

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/gorgonia/multivae/dist"
	"github.com/gorgonia/multivae/fuse"
	"github.com/gorgonia/multivae/gate"
)

// JointVAE fuses the per-view posteriors into a single joint posterior using
// the configured join type, samples one shared latent, and decodes every
// view from it. The fusion couples every view's gradients, so a single
// optimiser covers all parameters.
type JointVAE struct {
	base
	strategy fuse.Strategy
	encoders []*Encoder
	decoders []*Decoder
}

// NewJointVAE validates conf, resolves the join type, and returns an
// uninitialised model. Unknown join types fail here, not at Init.
func NewJointVAE(conf Config) (*JointVAE, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	strategy, err := fuse.FromName(conf.JoinType)
	if err != nil {
		return nil, errors.Wrapf(err, "configuring joint model")
	}
	return &JointVAE{base: base{Config: conf}, strategy: strategy}, nil
}

// Init builds the computation: encode, fuse, sample once, decode every view,
// one KL on the fused posterior.
func (v *JointVAE) Init() error {
	v.reset()
	v.g = G.NewGraph()
	v.inputs()
	n := v.NViews()
	if v.Sparse() {
		v.gate = gate.New(v.g, v.ZDim)
	}

	var m maebe

	// encode
	mus := make([]*G.Node, n)
	logvars := make([]*G.Node, n)
	v.encoders = make([]*Encoder, n)
	for i := range v.InputDims {
		var la *G.Node
		if v.gate != nil {
			la = v.gate.LogAlpha()
		}
		v.encoders[i] = newEncoder(viewName("enc", i), v.HiddenLayerDims, v.ZDim, v.NonLinear, la)
		q := v.encoders[i].fwd(&m, v.xs[i])
		if m.err != nil {
			return m.err
		}
		mus[i], logvars[i] = q.Mean(), q.LogVar()
	}

	// fuse
	mu, logvar, err := v.strategy.Fuse(mus, logvars)
	if err != nil {
		return errors.Wrapf(err, "%s fusion", v.strategy.Name())
	}
	q := dist.NewNormal(mu, logvar)
	z := m.sample(q, !v.FwdOnly)

	// decode every view from the shared latent
	v.decoders = make([]*Decoder, n)
	recons := make([]*dist.Normal, n)
	v.reconVals = make([][]G.Value, n)
	for i, d := range v.InputDims {
		v.decoders[i] = newDecoder(viewName("dec", i), v.HiddenLayerDims, d, v.NonLinear)
		recons[i] = v.decoders[i].fwd(&m, z)
		v.reconVals[i] = make([]G.Value, 1)
	}
	if m.err != nil {
		return m.err
	}

	// one KL for the fused posterior, reconstruction per view
	kl := m.do(func() (*G.Node, error) {
		if v.Sparse() {
			return q.SparseKLDivergence()
		}
		return q.KLDivergence(nil)
	})
	kl = m.reduce(kl)
	var ll *G.Node
	for i, r := range recons {
		i, r := i, r
		term := m.do(func() (*G.Node, error) { return r.LogLikelihood(v.xs[i]) })
		ll = m.accumulate(ll, m.reduce(term))
	}
	if m.err != nil {
		return m.err
	}

	// read-outs: the single joint posterior and one reconstruction per view
	v.muVals = make([]G.Value, 1)
	v.lvVals = make([]G.Value, 1)
	G.Read(q.Mean(), &v.muVals[0])
	G.Read(q.LogVar(), &v.lvVals[0])
	for i, r := range recons {
		G.Read(r.Mean(), &v.reconVals[i][0])
	}

	for _, e := range v.encoders {
		v.learnables = append(v.learnables, e.Params()...)
	}
	for _, d := range v.decoders {
		v.learnables = append(v.learnables, d.Params()...)
	}
	if v.gate != nil {
		v.learnables = append(v.learnables, v.gate.LogAlpha())
	}

	if err := v.seal(&m, kl, ll); err != nil {
		return err
	}
	if !v.FwdOnly {
		v.optimizers = []*Optimizer{newAdam("joint", v.LearningRate, v.learnables)}
	}
	return nil
}

// Forward runs one pass over the given views.
func (v *JointVAE) Forward(xs []*tensor.Dense) (*Forward, error) { return v.run(xs) }
