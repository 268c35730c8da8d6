package multivae

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	vae "github.com/gorgonia/multivae/vaenet"
)

func TestStatisticsUpdate(t *testing.T) {
	assert := assert.New(t)
	s := makeStatistics()

	avg := s.update([]vae.Losses{
		{Total: 2, KL: 1, LL: -1},
		{Total: 4, KL: 3, LL: -1},
	})
	assert.Equal(vae.Losses{Total: 3, KL: 2, LL: -1}, avg)
	assert.Equal(1, s.Epochs())

	s.update([]vae.Losses{{Total: 1, KL: 1, LL: 0}})
	assert.Equal(2, s.Epochs())
	assert.Equal([]float32{3, 1}, s.Totals)
	assert.Equal([]float32{2, 1}, s.KLs)
	assert.Equal([]float32{-1, 0}, s.LLs)
}

func TestStatisticsDump(t *testing.T) {
	assert := assert.New(t)
	s := makeStatistics()
	s.update([]vae.Losses{{Total: 2.5, KL: 2, LL: -0.5}})
	s.update([]vae.Losses{{Total: 1.5, KL: 1, LL: -0.5}})

	filename := filepath.Join(t.TempDir(), "losses.csv")
	if err := s.Dump(filename); err != nil {
		t.Fatalf("%+v", err)
	}

	f, err := os.Open(filename)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if assert.Equal(3, len(records)) {
		assert.Equal([]string{"total", "kl", "ll"}, records[0])
		assert.Equal([]string{"2.500000", "2.000000", "-0.500000"}, records[1])
		assert.Equal([]string{"1.500000", "1.000000", "-0.500000"}, records[2])
	}
}
