package vae

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"

	"github.com/gorgonia/multivae/dist"
)

// maebe accumulates the first graph-construction error so a whole network can
// be wired without checking every op. It also records the learnable nodes it
// creates, so callers can claim them into per-component parameter groups.
type maebe struct {
	err  error
	vars G.Nodes
}

// generic monad... still useful
func (m *maebe) do(f func() (*G.Node, error)) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = f(); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

// claim returns the learnables created since the previous claim.
func (m *maebe) claim() G.Nodes {
	vs := m.vars
	m.vars = nil
	return vs
}

// denseLayer is a fully connected layer whose weights are created once and
// may be applied to several inputs of the same shape.
type denseLayer struct {
	w, b *G.Node
}

func (m *maebe) newDense(g *G.ExprGraph, in, units, batch int, name string) *denseLayer {
	if m.err != nil {
		return nil
	}
	w := G.NewMatrix(g, Float, G.WithShape(in, units), G.WithInit(G.GlorotN(1.0)), G.WithName(name+"_w"))
	b := G.NewMatrix(g, Float, G.WithShape(batch, units), G.WithInit(G.Zeroes()), G.WithName(name+"_b"))
	m.vars = append(m.vars, w, b)
	return &denseLayer{w: w, b: b}
}

func (m *maebe) apply(l *denseLayer, x *G.Node) *G.Node {
	if m.err != nil || l == nil {
		return nil
	}
	xw := m.do(func() (*G.Node, error) { return G.Mul(x, l.w) })
	return m.do(func() (*G.Node, error) { return G.Add(xw, l.b) })
}

func (m *maebe) linear(input *G.Node, units int, name string) *G.Node {
	if m.err != nil {
		return nil
	}
	l := m.newDense(input.Graph(), input.Shape()[1], units, input.Shape()[0], name)
	return m.apply(l, input)
}

func (m *maebe) rectify(input *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Rectify(input) })
}

func (m *maebe) concat(axis int, ns ...*G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Concat(axis, ns...) })
}

// reduce turns an elementwise [batch, dim] loss term into a scalar: sum over
// the feature axis, mean over the batch.
func (m *maebe) reduce(n *G.Node) *G.Node {
	summed := m.do(func() (*G.Node, error) { return G.Sum(n, 1) })
	return m.do(func() (*G.Node, error) { return G.Mean(summed) })
}

// accumulate adds n onto sum, starting the sum when it is nil.
func (m *maebe) accumulate(sum, n *G.Node) *G.Node {
	if m.err != nil {
		return nil
	}
	if sum == nil {
		return n
	}
	return m.do(func() (*G.Node, error) { return G.Add(sum, n) })
}

func (m *maebe) scale(k float64, n *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Mul(constant(k), n) })
}

func (m *maebe) sub(a, b *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Sub(a, b) })
}

// sparseLogVar computes logvar = logAlpha + log(mu^2 + eps), broadcasting the
// [1, zDim] gate parameter over the batch.
func (m *maebe) sparseLogVar(mu, logAlpha *G.Node) *G.Node {
	sq := m.do(func() (*G.Node, error) { return G.Square(mu) })
	sq = m.do(func() (*G.Node, error) { return G.Add(sq, constant(1e-8)) })
	lg := m.do(func() (*G.Node, error) { return G.Log(sq) })
	return m.do(func() (*G.Node, error) { return G.BroadcastAdd(lg, logAlpha, nil, []byte{0}) })
}

// sample draws from q, reparameterised when training.
func (m *maebe) sample(q *dist.Normal, training bool) *G.Node {
	return m.do(func() (*G.Node, error) { return q.Sample(training) })
}

func constant(v float64) *G.Node {
	switch Float {
	case G.Float32:
		return G.NewConstant(float32(v))
	default:
		return G.NewConstant(v)
	}
}
