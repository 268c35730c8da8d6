package vae

import (
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/gorgonia/multivae/dist"
	"github.com/gorgonia/multivae/gate"
)

// DVCCA is the disentangled shared+private variant. A shared encoder reads
// view 0; with Private, every view also has a private encoder and the
// effective latent width doubles: view i is decoded from the concatenation
// of the shared and private-i latents, and everything downstream of the
// encoders (gate width, decoder input width) uses the doubled width.
//
// With sparsity the gate spans the concatenated latent and the per-view
// log-variance is derived from the concatenated location, so the whole gate
// receives gradients.
type DVCCA struct {
	base
	shared   *Encoder
	private  []*Encoder
	decoders []*Decoder
	zOut     int
}

// NewDVCCA validates conf and returns an uninitialised model.
func NewDVCCA(conf Config) (*DVCCA, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &DVCCA{base: base{Config: conf}}, nil
}

// ZOut is the effective latent width: ZDim, doubled when Private.
func (v *DVCCA) ZOut() int { return v.zOut }

// Init builds the computation. The optimiser partition is {shared encoder},
// one per private encoder, one per decoder.
func (v *DVCCA) Init() error {
	v.reset()
	v.g = G.NewGraph()
	v.inputs()
	n := v.NViews()
	v.zOut = v.ZDim
	if v.Private {
		v.zOut += v.ZDim
	}
	if v.Sparse() {
		v.gate = gate.New(v.g, v.zOut)
	}

	var m maebe
	training := !v.FwdOnly

	var qs []*dist.Normal
	zs := make([]*G.Node, n)
	switch {
	case !v.Private:
		var la *G.Node
		if v.gate != nil {
			la = v.gate.LogAlpha()
		}
		v.shared = newEncoder("enc_shared", v.HiddenLayerDims, v.ZDim, v.NonLinear, la)
		q := v.shared.fwd(&m, v.xs[0])
		if m.err != nil {
			return m.err
		}
		qs = []*dist.Normal{q}
		z := m.sample(q, training)
		for i := range zs {
			zs[i] = z
		}

	case v.Sparse():
		// locations only; the gate provides the concatenated log-variance
		v.shared = newEncoder("enc_shared", v.HiddenLayerDims, v.ZDim, v.NonLinear, nil)
		muShared := v.shared.fwdMu(&m, v.xs[0])
		v.private = make([]*Encoder, n)
		qs = make([]*dist.Normal, n)
		for i := range v.InputDims {
			v.private[i] = newEncoder(viewName("enc_private", i), v.HiddenLayerDims, v.ZDim, v.NonLinear, nil)
			muPriv := v.private[i].fwdMu(&m, v.xs[i])
			mu := m.concat(1, muShared, muPriv)
			logvar := m.sparseLogVar(mu, v.gate.LogAlpha())
			if m.err != nil {
				return m.err
			}
			qs[i] = dist.NewNormal(mu, logvar)
			zs[i] = m.sample(qs[i], training)
		}

	default:
		v.shared = newEncoder("enc_shared", v.HiddenLayerDims, v.ZDim, v.NonLinear, nil)
		qShared := v.shared.fwd(&m, v.xs[0])
		if m.err != nil {
			return m.err
		}
		v.private = make([]*Encoder, n)
		qs = make([]*dist.Normal, n)
		for i := range v.InputDims {
			v.private[i] = newEncoder(viewName("enc_private", i), v.HiddenLayerDims, v.ZDim, v.NonLinear, nil)
			qPriv := v.private[i].fwd(&m, v.xs[i])
			if m.err != nil {
				return m.err
			}
			mu := m.concat(1, qShared.Mean(), qPriv.Mean())
			logvar := m.concat(1, qShared.LogVar(), qPriv.LogVar())
			qs[i] = dist.NewNormal(mu, logvar)
			zs[i] = m.sample(qs[i], training)
		}
	}
	if m.err != nil {
		return m.err
	}

	// decode view i from its (possibly concatenated) latent
	v.decoders = make([]*Decoder, n)
	recons := make([]*dist.Normal, n)
	v.reconVals = make([][]G.Value, n)
	for i, d := range v.InputDims {
		v.decoders[i] = newDecoder(viewName("dec", i), v.HiddenLayerDims, d, v.NonLinear)
		recons[i] = v.decoders[i].fwd(&m, zs[i])
		v.reconVals[i] = make([]G.Value, 1)
	}
	if m.err != nil {
		return m.err
	}

	// KL over every posterior against the prior, reconstruction per view
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
	for i, r := range recons {
		i, r := i, r
		term := m.do(func() (*G.Node, error) { return r.LogLikelihood(v.xs[i]) })
		ll = m.accumulate(ll, m.reduce(term))
	}
	if m.err != nil {
		return m.err
	}

	v.muVals = make([]G.Value, len(qs))
	v.lvVals = make([]G.Value, len(qs))
	for i, q := range qs {
		G.Read(q.Mean(), &v.muVals[i])
		G.Read(q.LogVar(), &v.lvVals[i])
	}
	for i, r := range recons {
		G.Read(r.Mean(), &v.reconVals[i][0])
	}

	// partition: shared encoder (with gate), private encoders, decoders
	sharedGroup := append(G.Nodes{}, v.shared.Params()...)
	if v.gate != nil {
		sharedGroup = append(sharedGroup, v.gate.LogAlpha())
	}
	groups := []G.Nodes{sharedGroup}
	for _, e := range v.private {
		groups = append(groups, e.Params())
	}
	for _, d := range v.decoders {
		groups = append(groups, d.Params())
	}
	for _, grp := range groups {
		v.learnables = append(v.learnables, grp...)
	}

	if err := v.seal(&m, kl, ll); err != nil {
		return err
	}
	if !v.FwdOnly {
		v.optimizers = append(v.optimizers, newAdam("enc_shared", v.LearningRate, sharedGroup))
		for i, e := range v.private {
			v.optimizers = append(v.optimizers, newAdam(viewName("enc_private", i), v.LearningRate, e.Params()))
		}
		for i, d := range v.decoders {
			v.optimizers = append(v.optimizers, newAdam(viewName("dec", i), v.LearningRate, d.Params()))
		}
	}
	return nil
}

// Forward runs one pass over the given views.
func (v *DVCCA) Forward(xs []*tensor.Dense) (*Forward, error) { return v.run(xs) }
