package gate

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestDropoutRate(t *testing.T) {
	assert := assert.New(t)
	g := G.NewGraph()
	ga := New(g, 4)
	assert.Equal(4, ga.Dims())
	assert.True(ga.LogAlpha().Shape().Eq(tensor.Shape{1, 4}))

	rates, err := ga.DropoutRate()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(4, len(rates))

	las := ga.LogAlpha().Value().Data().([]float32)
	for i, r := range rates {
		a := math32.Exp(las[i])
		assert.InDelta(a/(a+1), r, 1e-6)
		assert.True(r > 0 && r < 1, "rate %d is %v", i, r)
	}
}

func TestKeepMask(t *testing.T) {
	assert := assert.New(t)
	g := G.NewGraph()
	ga := New(g, 3)

	// every rate lies strictly below 1
	keep, err := ga.KeepMask(1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for i, k := range keep {
		assert.True(k, "dimension %d dropped at threshold 1", i)
	}

	// the init is N(0, 0.01), so every rate hovers near 0.5
	keep, err = ga.KeepMask(1e-6)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for i, k := range keep {
		assert.False(k, "dimension %d kept at a vanishing threshold", i)
	}

	for _, bad := range []float64{0, -0.5, 1.5} {
		_, err := ga.KeepMask(bad)
		assert.Error(err, "threshold %v", bad)
	}
}

func TestApply(t *testing.T) {
	assert := assert.New(t)
	z := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking([]float32{1, 2, 3, 4, 5, 6}))

	if err := Apply(z, []bool{true, false, true}); err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal([]float32{1, 0, 3, 4, 0, 6}, z.Data().([]float32))
}

func TestApplyErrors(t *testing.T) {
	assert := assert.New(t)

	vec := tensor.New(tensor.WithShape(3), tensor.WithBacking([]float32{1, 2, 3}))
	assert.Error(Apply(vec, []bool{true, true, true}))

	z := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking(make([]float32, 6)))
	assert.Error(Apply(z, []bool{true, false}))
}
