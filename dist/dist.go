// Package dist provides diagonal Gaussian distributions over gorgonia
// expression-graph nodes. A Normal wraps the location and log-variance
// outputs of an encoder and exposes sampling, log-likelihood and KL
// divergence as graph operations, so gradients flow through all of them.
package dist

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Constants of the polynomial approximation to the variational dropout KL
// (Molchanov et al., "Variational Dropout Sparsifies Deep Neural Networks").
const (
	k1 = 0.63576
	k2 = 1.8732
	k3 = 1.48695
)

const (
	log2Pi      = 1.8378770664093453 // log(2*pi)
	logAlphaEps = 1e-8               // guards log(mu^2) when mu is 0
)

// Normal is a diagonal Gaussian parameterised by a location node and a
// log-variance node of the same shape. A nil log-variance denotes a fixed
// unit variance, which is the observation model used by decoders.
type Normal struct {
	mu     *G.Node
	logvar *G.Node
}

// NewNormal returns a Gaussian with the given location and log-variance.
func NewNormal(mu, logvar *G.Node) *Normal { return &Normal{mu: mu, logvar: logvar} }

// NewUnitNormal returns a Gaussian with the given location and unit variance.
func NewUnitNormal(mu *G.Node) *Normal { return &Normal{mu: mu} }

// Mean returns the location node.
func (n *Normal) Mean() *G.Node { return n.mu }

// LogVar returns the log-variance node. It is nil for unit-variance normals.
func (n *Normal) LogVar() *G.Node { return n.logvar }

// StdDev returns sqrt(exp(logvar)).
func (n *Normal) StdDev() (*G.Node, error) {
	if n.logvar == nil {
		return nil, errors.New("unit variance normal carries no log-variance node")
	}
	v, err := G.Exp(n.logvar)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	sd, err := G.Sqrt(v)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return sd, nil
}

// Sample draws from the distribution. When training is true the draw is
// reparameterised as mu + eps*std with eps ~ N(0, 1), so it stays
// differentiable with respect to mu and logvar; otherwise the mean is
// returned. The flag is fixed at graph construction time.
func (n *Normal) Sample(training bool) (*G.Node, error) {
	if !training {
		return n.mu, nil
	}
	shp := n.mu.Shape()
	eps := G.GaussianRandomNode(n.mu.Graph(), n.mu.Dtype(), 0, 1, shp...)
	if n.logvar == nil {
		z, err := G.Add(n.mu, eps)
		return z, errors.WithStack(err)
	}
	sd, err := n.StdDev()
	if err != nil {
		return nil, err
	}
	scaled, err := G.HadamardProd(eps, sd)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	z, err := G.Add(n.mu, scaled)
	return z, errors.WithStack(err)
}

// LogLikelihood returns the elementwise Gaussian log-density of x under the
// distribution, shaped like x. Callers sum over the feature axis and average
// over the batch. The density is evaluated in log space: the precision is
// exp(-logvar), never 1/exp(logvar).
func (n *Normal) LogLikelihood(x *G.Node) (*G.Node, error) {
	diff, err := G.Sub(x, n.mu)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	sq, err := G.Square(diff)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	nll := sq
	if n.logvar != nil {
		neg, err := G.Neg(n.logvar)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		prec, err := G.Exp(neg)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if nll, err = G.HadamardProd(sq, prec); err != nil {
			return nil, errors.WithStack(err)
		}
		if nll, err = G.Add(nll, n.logvar); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	nll, err = G.Add(nll, constant(log2Pi, n.mu.Dtype()))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	ll, err := G.Mul(constant(-0.5, n.mu.Dtype()), nll)
	return ll, errors.WithStack(err)
}

// KLDivergence returns the elementwise closed form KL(q || prior), shaped
// like mu. A nil prior means the standard normal N(0, I). Callers sum over
// the latent axis and average over the batch.
func (n *Normal) KLDivergence(prior *Normal) (*G.Node, error) {
	if n.logvar == nil {
		return nil, errors.New("kl divergence is unsupported for a unit variance normal")
	}
	if prior == nil {
		return n.standardKL()
	}
	if prior.logvar == nil {
		return nil, errors.New("kl divergence needs a prior with a log-variance node")
	}
	// 0.5 * (logvar_p - logvar_q + (var_q + (mu_q - mu_p)^2) * exp(-logvar_p) - 1)
	dt := n.mu.Dtype()
	varQ, err := G.Exp(n.logvar)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	diff, err := G.Sub(n.mu, prior.mu)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	sq, err := G.Square(diff)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	num, err := G.Add(varQ, sq)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	negLvP, err := G.Neg(prior.logvar)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	precP, err := G.Exp(negLvP)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	ratio, err := G.HadamardProd(num, precP)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	lvDiff, err := G.Sub(prior.logvar, n.logvar)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	kl, err := G.Add(lvDiff, ratio)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if kl, err = G.Sub(kl, constant(1, dt)); err != nil {
		return nil, errors.WithStack(err)
	}
	kl, err = G.Mul(constant(0.5, dt), kl)
	return kl, errors.WithStack(err)
}

// standardKL is KL(q || N(0, I)) = -0.5 * (1 + logvar - mu^2 - exp(logvar)),
// elementwise.
func (n *Normal) standardKL() (*G.Node, error) {
	dt := n.mu.Dtype()
	muSq, err := G.Square(n.mu)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	v, err := G.Exp(n.logvar)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	inner, err := G.Sub(n.logvar, muSq)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if inner, err = G.Sub(inner, v); err != nil {
		return nil, errors.WithStack(err)
	}
	if inner, err = G.Add(inner, constant(1, dt)); err != nil {
		return nil, errors.WithStack(err)
	}
	kl, err := G.Mul(constant(-0.5, dt), inner)
	return kl, errors.WithStack(err)
}

// SparseKLDivergence returns the elementwise approximation of the KL between
// the posterior and the implicit log-uniform prior of variational dropout.
// The per-element log-alpha is recovered as logvar - log(mu^2), and the KL is
// the smooth polynomial approximation
//
//	-(k1*sigmoid(k2 + k3*logAlpha) - 0.5*softplus(-logAlpha) - k1)
//
// evaluated with sigmoid and softplus so nothing overflows.
func (n *Normal) SparseKLDivergence() (*G.Node, error) {
	if n.logvar == nil {
		return nil, errors.New("sparse kl divergence is unsupported for a unit variance normal")
	}
	dt := n.mu.Dtype()
	muSq, err := G.Square(n.mu)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if muSq, err = G.Add(muSq, constant(logAlphaEps, dt)); err != nil {
		return nil, errors.WithStack(err)
	}
	logMuSq, err := G.Log(muSq)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	logAlpha, err := G.Sub(n.logvar, logMuSq)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	scaled, err := G.Mul(constant(k3, dt), logAlpha)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	shifted, err := G.Add(scaled, constant(k2, dt))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	sig, err := G.Sigmoid(shifted)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	t1, err := G.Mul(constant(k1, dt), sig)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	negLA, err := G.Neg(logAlpha)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	sp, err := G.Softplus(negLA)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	t2, err := G.Mul(constant(0.5, dt), sp)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	negKL, err := G.Sub(t1, t2)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if negKL, err = G.Sub(negKL, constant(k1, dt)); err != nil {
		return nil, errors.WithStack(err)
	}
	kl, err := G.Neg(negKL)
	return kl, errors.WithStack(err)
}

func constant(v float64, dt tensor.Dtype) *G.Node {
	if dt == G.Float32 {
		return G.NewConstant(float32(v))
	}
	return G.NewConstant(v)
}
