package multivae

import (
	"strings"
	"testing"

	"github.com/awalterschulze/gographviz"
	"github.com/stretchr/testify/assert"
)

func parseDot(t *testing.T, s string) *gographviz.Graph {
	t.Helper()
	ast, err := gographviz.ParseString(s)
	if err != nil {
		t.Fatalf("%+v\n%s", err, s)
	}
	g := gographviz.NewGraph()
	if err := gographviz.Analyse(ast, g); err != nil {
		t.Fatalf("%+v", err)
	}
	return g
}

func TestToDot(t *testing.T) {
	assert := assert.New(t)
	conf := smallConf()
	conf.Threshold = 0.5
	conf.JoinType = "PoE"
	conf.Private = true

	for _, mt := range []string{ModelVAE, ModelJointVAE, ModelDVCCA} {
		s, err := ToDot("demo", mt, conf)
		if err != nil {
			t.Fatalf("%s: %+v", mt, err)
		}
		g := parseDot(t, s)
		assert.True(g.Directed, "%s produced an undirected graph", mt)
		assert.True(len(g.Nodes.Nodes) > conf.NViews(), "%s produced only %d nodes", mt, len(g.Nodes.Nodes))
		assert.Contains(s, "gate", "%s omitted the sparsity gate", mt)
		for _, id := range []string{"view_0", "view_1", "summary"} {
			assert.True(g.IsNode(id), "%s omitted node %q", mt, id)
		}
	}
}

func TestToDotJointFusion(t *testing.T) {
	assert := assert.New(t)
	conf := smallConf()
	conf.JoinType = "Mean"

	s, err := ToDot("demo", ModelJointVAE, conf)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	g := parseDot(t, s)
	assert.True(g.IsNode("join"))
	assert.True(strings.Contains(s, "Mean"))

	s, err = ToDot("demo", ModelVAE, conf)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.False(parseDot(t, s).IsNode("join"), "an unfused model has no fusion node")
}

func TestToDotErrors(t *testing.T) {
	conf := smallConf()
	if _, err := ToDot("demo", "GAN", conf); err == nil {
		t.Error("expected an unknown model type to fail")
	}
	conf.ZDim = 0
	if _, err := ToDot("demo", ModelVAE, conf); err == nil {
		t.Error("expected an invalid configuration to fail")
	}
}
