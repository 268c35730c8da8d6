package multivae

import (
	"encoding/csv"
	"os"
	"strconv"

	"gorgonia.org/vecf32"

	vae "github.com/gorgonia/multivae/vaenet"
)

// Statistics records the batch-averaged losses of every training epoch.
type Statistics struct {
	Totals []float32
	KLs    []float32
	LLs    []float32
}

func makeStatistics() Statistics {
	return Statistics{
		Totals: make([]float32, 0, 64),
		KLs:    make([]float32, 0, 64),
		LLs:    make([]float32, 0, 64),
	}
}

// update appends the mean of one epoch's batch losses and returns it.
func (s *Statistics) update(batch []vae.Losses) vae.Losses {
	sums := make([]float32, 3)
	for _, l := range batch {
		sums[0] += l.Total
		sums[1] += l.KL
		sums[2] += l.LL
	}
	if len(batch) > 0 {
		vecf32.Scale(sums, 1/float32(len(batch)))
	}
	s.Totals = append(s.Totals, sums[0])
	s.KLs = append(s.KLs, sums[1])
	s.LLs = append(s.LLs, sums[2])
	return vae.Losses{Total: sums[0], KL: sums[1], LL: sums[2]}
}

// Epochs returns how many epochs have been recorded.
func (s *Statistics) Epochs() int { return len(s.Totals) }

// Dump writes the loss history as CSV, one row per epoch.
func (s *Statistics) Dump(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"total", "kl", "ll"}); err != nil {
		return err
	}
	for i := range s.Totals {
		record := []string{
			strconv.FormatFloat(float64(s.Totals[i]), 'f', 6, 32),
			strconv.FormatFloat(float64(s.KLs[i]), 'f', 6, 32),
			strconv.FormatFloat(float64(s.LLs[i]), 'f', 6, 32),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
