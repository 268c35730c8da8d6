package vae

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorgonia.org/tensor"
)

func TestJointVAEPoE(t *testing.T) {
	assert := assert.New(t)
	conf := DefaultConf(10, 15)
	conf.ZDim = 3
	conf.HiddenLayerDims = []int{16}
	conf.NonLinear = true
	conf.JoinType = "PoE"

	m, err := NewJointVAE(conf)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := m.Init(); err != nil {
		t.Fatalf("%+v", err)
	}
	defer m.Close()

	fwd, err := m.Forward([]*tensor.Dense{randView(32, 10), randView(32, 15)})
	if err != nil {
		t.Fatalf("%+v", err)
	}

	// one fused posterior, one reconstruction per view
	assert.Equal(1, len(fwd.Mus))
	assert.Equal(1, len(fwd.LogVars))
	assert.True(fwd.Mus[0].Shape().Eq(tensor.Shape{32, 3}))
	for i, d := range conf.InputDims {
		assert.Equal(1, len(fwd.XRecon[i]))
		assert.True(fwd.XRecon[i][0].Shape().Eq(tensor.Shape{32, d}), "recon %d has shape %v", i, fwd.XRecon[i][0].Shape())
	}

	losses := m.Loss(fwd)
	finite(t, losses)
	assert.InDelta(float64(losses.KL)-float64(losses.LL), float64(losses.Total), 1e-3)

	// fusion couples every view, so there is a single optimiser
	opts := m.ConfigureOptimizers()
	if assert.Equal(1, len(opts)) {
		assert.Equal("joint", opts[0].Name())
		if err := opts[0].Step(); err != nil {
			t.Fatalf("%+v", err)
		}
	}
}

func TestJointVAEMean(t *testing.T) {
	conf := DefaultConf(6, 4)
	conf.ZDim = 2
	conf.BatchSize = 8

	m, err := NewJointVAE(conf)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := m.Init(); err != nil {
		t.Fatalf("%+v", err)
	}
	defer m.Close()

	fwd, err := m.Forward([]*tensor.Dense{randView(8, 6), randView(8, 4)})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	finite(t, m.Loss(fwd))
}

func TestJointVAEUnknownJoin(t *testing.T) {
	conf := DefaultConf(6, 4)
	conf.JoinType = "product"
	if _, err := NewJointVAE(conf); err == nil {
		t.Error("expected an unknown join type to fail at construction")
	}
}

func TestJointVAESparse(t *testing.T) {
	assert := assert.New(t)
	conf := DefaultConf(6, 4)
	conf.ZDim = 3
	conf.Threshold = 0.5
	conf.BatchSize = 8
	conf.JoinType = "PoE"

	m, err := NewJointVAE(conf)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := m.Init(); err != nil {
		t.Fatalf("%+v", err)
	}
	defer m.Close()

	fwd, err := m.Forward([]*tensor.Dense{randView(8, 6), randView(8, 4)})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	finite(t, m.Loss(fwd))

	rates, err := m.Dropout()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(conf.ZDim, len(rates))
}
