package multivae

import (
	"bytes"
	"log"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	vae "github.com/gorgonia/multivae/vaenet"
)

// Experiment owns a model, its per-epoch loss statistics, and a buffered
// logger. It is the entry point for training a model on aligned multi-view
// data.
type Experiment struct {
	Statistics
	M vae.Model

	name   string
	buf    bytes.Buffer
	logger *log.Logger
}

// NewExperiment builds and initialises the named model variant.
func NewExperiment(name, modelType string, conf vae.Config) (*Experiment, error) {
	m, err := New(modelType, conf)
	if err != nil {
		return nil, err
	}
	e := &Experiment{
		Statistics: makeStatistics(),
		M:          m,
		name:       name,
	}
	e.logger = log.New(&e.buf, "", log.Ltime)
	return e, nil
}

// Learn trains for the given number of epochs. views holds one [rows, dim]
// tensor per view, row-aligned across views; each epoch shuffles all views
// with a single permutation so samples stay aligned, then iterates full
// mini-batches (a trailing partial batch is dropped). Losses must stay
// finite; a NaN or Inf total aborts training.
func (e *Experiment) Learn(views []*tensor.Dense, epochs int) error {
	conf := e.M.Conf()
	if len(views) != conf.NViews() {
		return errors.Errorf("model is configured for %d views, got %d", conf.NViews(), len(views))
	}
	rows := views[0].Shape()[0]
	for i, vw := range views {
		if vw.Shape()[0] != rows {
			return errors.Errorf("view %d has %d rows, view 0 has %d", i, vw.Shape()[0], rows)
		}
	}
	batches := rows / conf.BatchSize
	if batches == 0 {
		return errors.Errorf("need at least %d rows per view, got %d", conf.BatchSize, rows)
	}

	opts := e.M.ConfigureOptimizers()
	var s slicer
	for epoch := 0; epoch < epochs; epoch++ {
		if err := shuffleViews(views); err != nil {
			return err
		}
		var epochLosses []vae.Losses
		for bat := 0; bat < batches; bat++ {
			batchStart := bat * conf.BatchSize
			batchEnd := batchStart + conf.BatchSize

			xs := make([]*tensor.Dense, len(views))
			for i, vw := range views {
				xs[i] = s.Slice(vw, sli(batchStart, batchEnd))
			}
			if s.err != nil {
				return s.err
			}

			fwd, err := e.M.Forward(xs)
			if err != nil {
				return errors.Wrapf(err, "epoch %d batch %d", epoch, bat)
			}
			losses := e.M.Loss(fwd)
			if math32.IsNaN(losses.Total) || math32.IsInf(losses.Total, 0) {
				return errors.Errorf("non-finite total loss %v at epoch %d batch %d", losses.Total, epoch, bat)
			}

			var stepErrs manyErr
			for _, o := range opts {
				if err := o.Step(); err != nil {
					stepErrs = append(stepErrs, err)
				}
			}
			if len(stepErrs) > 0 {
				return stepErrs
			}

			for _, x := range xs {
				tensor.ReturnTensor(x)
			}
			epochLosses = append(epochLosses, losses)
		}
		avg := e.update(epochLosses)
		e.logger.Printf("%s epoch %d: total %.4f kl %.4f ll %.4f", e.name, epoch, avg.Total, avg.KL, avg.LL)
	}
	return nil
}

// Log returns everything the experiment logged so far.
func (e *Experiment) Log() string { return e.buf.String() }

// Close releases the model's resources.
func (e *Experiment) Close() error { return e.M.Close() }
