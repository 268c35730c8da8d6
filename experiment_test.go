package multivae

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorgonia.org/tensor"
)

func TestExperimentLearn(t *testing.T) {
	assert := assert.New(t)
	e, err := NewExperiment("sanity", ModelVAE, smallConf())
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer e.Close()

	views := []*tensor.Dense{randView(16, 4), randView(16, 3)}
	if err := e.Learn(views, 2); err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(2, e.Epochs())
	assert.True(strings.Contains(e.Log(), "sanity epoch 0"))
	assert.True(strings.Contains(e.Log(), "sanity epoch 1"))
}

func TestExperimentLearnJoint(t *testing.T) {
	conf := smallConf()
	conf.JoinType = "PoE"
	e, err := NewExperiment("joint", ModelJointVAE, conf)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer e.Close()

	views := []*tensor.Dense{randView(8, 4), randView(8, 3)}
	if err := e.Learn(views, 1); err != nil {
		t.Fatalf("%+v", err)
	}
	if e.Epochs() != 1 {
		t.Errorf("expected 1 recorded epoch, got %d", e.Epochs())
	}
}

func TestExperimentLearnErrors(t *testing.T) {
	assert := assert.New(t)
	e, err := NewExperiment("broken", ModelVAE, smallConf())
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer e.Close()

	// wrong view count
	assert.Error(e.Learn([]*tensor.Dense{randView(16, 4)}, 1))

	// misaligned rows across views
	assert.Error(e.Learn([]*tensor.Dense{randView(16, 4), randView(12, 3)}, 1))

	// fewer rows than one batch
	assert.Error(e.Learn([]*tensor.Dense{randView(4, 4), randView(4, 3)}, 1))
}

func TestShuffleViewsAligned(t *testing.T) {
	assert := assert.New(t)
	rows := 32
	a := tensor.New(tensor.WithShape(rows, 1), tensor.WithBacking(iotaF32(rows)))
	b := tensor.New(tensor.WithShape(rows, 2), tensor.WithBacking(iotaF32(rows * 2)))

	if err := shuffleViews([]*tensor.Dense{a, b}); err != nil {
		t.Fatalf("%+v", err)
	}

	// rows move together: row i of a still pairs with row i of b
	aData := a.Data().([]float32)
	bData := b.Data().([]float32)
	seen := make(map[float32]bool, rows)
	for i := 0; i < rows; i++ {
		idx := aData[i]
		assert.False(seen[idx], "row %v appears twice", idx)
		seen[idx] = true
		assert.Equal(idx*2, bData[i*2], "row %d lost alignment", i)
		assert.Equal(idx*2+1, bData[i*2+1], "row %d lost alignment", i)
	}

	c := tensor.New(tensor.WithShape(rows+1, 1), tensor.WithBacking(iotaF32(rows+1)))
	assert.Error(shuffleViews([]*tensor.Dense{a, c}))
}

func iotaF32(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}
