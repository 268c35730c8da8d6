// Package multivae trains multi-view variational autoencoders: models that
// learn joint or per-view latent representations across several aligned
// data views. The model variants live in the vaenet package; this package
// provides the registry, the mini-batch training driver, loss statistics,
// and an architecture export.
package multivae

import (
	"github.com/pkg/errors"

	vae "github.com/gorgonia/multivae/vaenet"
)

// Model type names accepted by New.
const (
	ModelVAE      = "VAE"       // independent per-view latents
	ModelJointVAE = "joint_VAE" // one fused latent (Mean or PoE)
	ModelDVCCA    = "DVCCA"     // disentangled shared+private latents
)

// New constructs and initialises the named model variant. Unknown model
// types and invalid configurations fail here; nothing is defaulted silently.
func New(modelType string, conf vae.Config) (vae.Model, error) {
	var m vae.Model
	var err error
	switch modelType {
	case ModelVAE:
		m, err = vae.NewVAE(conf)
	case ModelJointVAE:
		m, err = vae.NewJointVAE(conf)
	case ModelDVCCA:
		m, err = vae.NewDVCCA(conf)
	default:
		return nil, errors.Errorf("unknown model type %q", modelType)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "constructing %s", modelType)
	}
	if err := m.Init(); err != nil {
		return nil, errors.Wrapf(err, "initialising %s", modelType)
	}
	return m, nil
}
