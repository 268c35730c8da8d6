package vae

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConf(t *testing.T) {
	got := DefaultConf(10, 15)
	want := Config{
		InputDims:    []int{10, 15},
		ZDim:         1,
		LearningRate: 0.002,
		Beta:         1,
		JoinType:     "Mean",
		CrossRecon:   true,
		BatchSize:    32,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected defaults (-want +got):\n%s", diff)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("%+v", err)
	}
	if got.NViews() != 2 {
		t.Errorf("expected 2 views, got %d", got.NViews())
	}
	if got.Sparse() {
		t.Error("defaults should not enable sparsity")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no views", func(c *Config) { c.InputDims = nil }},
		{"zero width view", func(c *Config) { c.InputDims = []int{10, 0} }},
		{"zero width hidden layer", func(c *Config) { c.HiddenLayerDims = []int{8, 0} }},
		{"non-positive latent", func(c *Config) { c.ZDim = 0 }},
		{"non-positive batch", func(c *Config) { c.BatchSize = 0 }},
		{"non-positive learning rate", func(c *Config) { c.LearningRate = 0 }},
		{"negative threshold", func(c *Config) { c.Threshold = -0.1 }},
		{"threshold above one", func(c *Config) { c.Threshold = 1.1 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			conf := DefaultConf(10, 15)
			c.mutate(&conf)
			if err := conf.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestSparse(t *testing.T) {
	conf := DefaultConf(10)
	conf.Threshold = 0.5
	if !conf.Sparse() {
		t.Error("a non-zero threshold should enable sparsity")
	}
	if err := conf.Validate(); err != nil {
		t.Fatalf("%+v", err)
	}
}
