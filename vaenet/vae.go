package vae

import (
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/gorgonia/multivae/dist"
	"github.com/gorgonia/multivae/gate"
)

// VAE is the multi-view variational autoencoder with a separate latent
// representation per view. With CrossRecon every view is decoded from every
// latent, otherwise each view is decoded from its own. Sparsity, when
// enabled, shares one gate across all views.
//
// Training graphs sample by reparameterisation; forward-only graphs return
// the posterior means.
type VAE struct {
	base
	encoders []*Encoder
	decoders []*Decoder
}

// NewVAE validates conf and returns an uninitialised model.
func NewVAE(conf Config) (*VAE, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &VAE{base: base{Config: conf}}, nil
}

// Init builds the whole computation: encode, sample, decode, losses, and the
// per-view optimiser partition.
func (v *VAE) Init() error {
	v.reset()
	v.g = G.NewGraph()
	v.inputs()
	n := v.NViews()
	if v.Sparse() {
		v.gate = gate.New(v.g, v.ZDim)
	}

	var m maebe

	// encode
	qs := make([]*dist.Normal, n)
	v.encoders = make([]*Encoder, n)
	groups := make([]G.Nodes, n)
	for i := range v.InputDims {
		var la *G.Node
		if v.gate != nil {
			la = v.gate.LogAlpha()
		}
		v.encoders[i] = newEncoder(viewName("enc", i), v.HiddenLayerDims, v.ZDim, v.NonLinear, la)
		qs[i] = v.encoders[i].fwd(&m, v.xs[i])
		groups[i] = append(groups[i], v.encoders[i].Params()...)
	}
	if m.err != nil {
		return m.err
	}

	// sample
	zs := make([]*G.Node, n)
	for i, q := range qs {
		zs[i] = m.sample(q, !v.FwdOnly)
	}

	// decode
	v.decoders = make([]*Decoder, n)
	recons := make([][]*dist.Normal, n)
	v.reconVals = make([][]G.Value, n)
	for i, d := range v.InputDims {
		v.decoders[i] = newDecoder(viewName("dec", i), v.HiddenLayerDims, d, v.NonLinear)
		if v.CrossRecon {
			recons[i] = make([]*dist.Normal, n)
			v.reconVals[i] = make([]G.Value, n)
			for j := range zs {
				recons[i][j] = v.decoders[i].fwd(&m, zs[j])
			}
		} else {
			recons[i] = []*dist.Normal{v.decoders[i].fwd(&m, zs[i])}
			v.reconVals[i] = make([]G.Value, 1)
		}
		groups[i] = append(groups[i], v.decoders[i].Params()...)
	}
	if m.err != nil {
		return m.err
	}

	// losses: KL per view, log-likelihood per (view, latent) pair
	var kl, ll *G.Node
	for _, q := range qs {
		q := q
		term := m.do(func() (*G.Node, error) {
			if v.Sparse() {
				return q.SparseKLDivergence()
			}
			return q.KLDivergence(nil)
		})
		kl = m.accumulate(kl, m.reduce(term))
	}
	for i := range recons {
		for j := range recons[i] {
			i, j := i, j
			term := m.do(func() (*G.Node, error) { return recons[i][j].LogLikelihood(v.xs[i]) })
			ll = m.accumulate(ll, m.reduce(term))
		}
	}
	if m.err != nil {
		return m.err
	}

	// read-outs
	v.muVals = make([]G.Value, n)
	v.lvVals = make([]G.Value, n)
	for i, q := range qs {
		G.Read(q.Mean(), &v.muVals[i])
		G.Read(q.LogVar(), &v.lvVals[i])
	}
	for i := range recons {
		for j, r := range recons[i] {
			G.Read(r.Mean(), &v.reconVals[i][j])
		}
	}

	// the gate is shared by every view; it lives in the first group so it is
	// stepped exactly once per update
	if v.gate != nil {
		groups[0] = append(groups[0], v.gate.LogAlpha())
	}
	for _, grp := range groups {
		v.learnables = append(v.learnables, grp...)
	}

	if err := v.seal(&m, kl, ll); err != nil {
		return err
	}
	if !v.FwdOnly {
		for i, grp := range groups {
			v.optimizers = append(v.optimizers, newAdam(viewName("view", i), v.LearningRate, grp))
		}
	}
	return nil
}

// Forward runs one pass over the given views.
func (v *VAE) Forward(xs []*tensor.Dense) (*Forward, error) { return v.run(xs) }
