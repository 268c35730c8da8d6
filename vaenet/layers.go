package vae

import (
	"fmt"

	G "gorgonia.org/gorgonia"

	"github.com/gorgonia/multivae/dist"
)

// Encoder is an MLP mapping one view to the parameters of its posterior.
// When a gate slice is attached, the log-variance is tied to the gate instead
// of having its own head: logvar = logAlpha + log(mu^2).
type Encoder struct {
	name      string
	hidden    []int
	zDim      int
	nonLinear bool
	logAlpha  *G.Node // nil for dense encoders

	params G.Nodes
}

func newEncoder(name string, hidden []int, zDim int, nonLinear bool, logAlpha *G.Node) *Encoder {
	return &Encoder{
		name:      name,
		hidden:    hidden,
		zDim:      zDim,
		nonLinear: nonLinear,
		logAlpha:  logAlpha,
	}
}

func (e *Encoder) hiddenFwd(m *maebe, x *G.Node) *G.Node {
	h := x
	for l, width := range e.hidden {
		h = m.linear(h, width, fmt.Sprintf("%s_h%d", e.name, l))
		if e.nonLinear {
			h = m.rectify(h)
		}
	}
	return h
}

// fwd wires the encoder onto x ([batch, inputDim]) and returns the posterior.
func (e *Encoder) fwd(m *maebe, x *G.Node) *dist.Normal {
	h := e.hiddenFwd(m, x)
	mu := m.linear(h, e.zDim, e.name+"_mu")
	var logvar *G.Node
	if e.logAlpha != nil {
		logvar = m.sparseLogVar(mu, e.logAlpha)
	} else {
		logvar = m.linear(h, e.zDim, e.name+"_logvar")
	}
	e.params = append(e.params, m.claim()...)
	if m.err != nil {
		return nil
	}
	return dist.NewNormal(mu, logvar)
}

// fwdMu wires only the location head. Disentangled models use it when the
// log-variance is derived from a gate over the concatenated posterior rather
// than per encoder.
func (e *Encoder) fwdMu(m *maebe, x *G.Node) *G.Node {
	h := e.hiddenFwd(m, x)
	mu := m.linear(h, e.zDim, e.name+"_mu")
	e.params = append(e.params, m.claim()...)
	return mu
}

// Params returns the learnables this encoder created. The gate parameter is
// not included; it belongs to the model.
func (e *Encoder) Params() G.Nodes { return e.params }

// Decoder is an MLP mapping a latent code back to a view's feature space,
// mirroring the encoder's hidden widths in reverse. Its output is the mean of
// a unit-variance Gaussian over the view. One decoder may be applied to
// several latents (cross reconstruction); the weights are created on the
// first application and shared by the rest.
type Decoder struct {
	name      string
	hidden    []int
	outputDim int
	nonLinear bool

	layers []*denseLayer
	params G.Nodes
}

func newDecoder(name string, hidden []int, outputDim int, nonLinear bool) *Decoder {
	return &Decoder{
		name:      name,
		hidden:    hidden,
		outputDim: outputDim,
		nonLinear: nonLinear,
	}
}

func (d *Decoder) build(m *maebe, z *G.Node) {
	g := z.Graph()
	batch := z.Shape()[0]
	in := z.Shape()[1]
	for l := len(d.hidden) - 1; l >= 0; l-- {
		d.layers = append(d.layers, m.newDense(g, in, d.hidden[l], batch, fmt.Sprintf("%s_h%d", d.name, l)))
		in = d.hidden[l]
	}
	d.layers = append(d.layers, m.newDense(g, in, d.outputDim, batch, d.name+"_out"))
	d.params = append(d.params, m.claim()...)
}

// fwd wires the decoder onto z ([batch, zDim]) and returns the observation
// distribution over the view.
func (d *Decoder) fwd(m *maebe, z *G.Node) *dist.Normal {
	if d.layers == nil {
		d.build(m, z)
	}
	h := z
	for i, l := range d.layers {
		h = m.apply(l, h)
		if d.nonLinear && i < len(d.layers)-1 {
			h = m.rectify(h)
		}
	}
	if m.err != nil {
		return nil
	}
	return dist.NewUnitNormal(h)
}

// Params returns the learnables this decoder created.
func (d *Decoder) Params() G.Nodes { return d.params }
