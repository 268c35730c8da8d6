package multivae

import (
	"bytes"
	"fmt"
	"strconv"
	"text/template"

	"github.com/awalterschulze/gographviz"
	"github.com/pkg/errors"

	vae "github.com/gorgonia/multivae/vaenet"
)

type modelSummary struct {
	Name   string
	Type   string
	Join   string
	Views  int
	ZDim   int
	Sparse bool
}

// ToDot renders the dataflow of a model configuration (views, encoders,
// fusion, gate, latents, decoders) as a graphviz document.
func ToDot(name, modelType string, conf vae.Config) (string, error) {
	if err := conf.Validate(); err != nil {
		return "", err
	}

	g := gographviz.NewGraph()
	if err := g.SetName("G"); err != nil {
		return "", errors.WithStack(err)
	}
	g.SetDir(true)

	summary := modelSummary{
		Name:   name,
		Type:   modelType,
		Views:  conf.NViews(),
		ZDim:   conf.ZDim,
		Sparse: conf.Sparse(),
	}
	if modelType == ModelJointVAE {
		summary.Join = conf.JoinType
	}
	if modelType == ModelDVCCA && conf.Private {
		summary.ZDim = conf.ZDim + conf.ZDim
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, summary); err != nil {
		return "", errors.WithStack(err)
	}
	g.AddNode("G", "summary", map[string]string{
		"fontname": "Monaco",
		"shape":    "none",
		"label":    buf.String(),
	})

	node := func(id, label string) {
		g.AddNode("G", id, map[string]string{"shape": "box", "label": strconv.Quote(label)})
	}
	edge := func(from, to string) {
		g.AddEdge(from, to, true, nil)
	}

	for i, d := range conf.InputDims {
		node(fmt.Sprintf("view_%d", i), fmt.Sprintf("view %d [%d]", i, d))
	}
	if conf.Sparse() {
		node("gate", "sparsity gate")
	}

	switch modelType {
	case ModelVAE:
		for i := range conf.InputDims {
			node(fmt.Sprintf("enc_%d", i), fmt.Sprintf("encoder %d", i))
			node(fmt.Sprintf("z_%d", i), fmt.Sprintf("z%d [%d]", i, conf.ZDim))
			node(fmt.Sprintf("dec_%d", i), fmt.Sprintf("decoder %d", i))
			edge(fmt.Sprintf("view_%d", i), fmt.Sprintf("enc_%d", i))
			edge(fmt.Sprintf("enc_%d", i), fmt.Sprintf("z_%d", i))
			if conf.Sparse() {
				edge("gate", fmt.Sprintf("enc_%d", i))
			}
		}
		for i := range conf.InputDims {
			if conf.CrossRecon {
				for j := range conf.InputDims {
					edge(fmt.Sprintf("z_%d", j), fmt.Sprintf("dec_%d", i))
				}
			} else {
				edge(fmt.Sprintf("z_%d", i), fmt.Sprintf("dec_%d", i))
			}
		}

	case ModelJointVAE:
		node("join", conf.JoinType+" fusion")
		node("z", fmt.Sprintf("z [%d]", conf.ZDim))
		edge("join", "z")
		for i := range conf.InputDims {
			node(fmt.Sprintf("enc_%d", i), fmt.Sprintf("encoder %d", i))
			node(fmt.Sprintf("dec_%d", i), fmt.Sprintf("decoder %d", i))
			edge(fmt.Sprintf("view_%d", i), fmt.Sprintf("enc_%d", i))
			edge(fmt.Sprintf("enc_%d", i), "join")
			edge("z", fmt.Sprintf("dec_%d", i))
			if conf.Sparse() {
				edge("gate", fmt.Sprintf("enc_%d", i))
			}
		}

	case ModelDVCCA:
		node("enc_shared", "shared encoder")
		edge("view_0", "enc_shared")
		for i := range conf.InputDims {
			node(fmt.Sprintf("z_%d", i), fmt.Sprintf("z%d [%d]", i, summary.ZDim))
			node(fmt.Sprintf("dec_%d", i), fmt.Sprintf("decoder %d", i))
			edge("enc_shared", fmt.Sprintf("z_%d", i))
			if conf.Private {
				node(fmt.Sprintf("enc_private_%d", i), fmt.Sprintf("private encoder %d", i))
				edge(fmt.Sprintf("view_%d", i), fmt.Sprintf("enc_private_%d", i))
				edge(fmt.Sprintf("enc_private_%d", i), fmt.Sprintf("z_%d", i))
			}
			edge(fmt.Sprintf("z_%d", i), fmt.Sprintf("dec_%d", i))
			if conf.Sparse() {
				edge("gate", fmt.Sprintf("z_%d", i))
			}
		}

	default:
		return "", errors.Errorf("unknown model type %q", modelType)
	}

	return g.String(), nil
}

const tmplRaw = `<
<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0">
<TR><TD>Model</TD><TD>{{.Name}}</TD></TR>
<TR><TD>Type</TD><TD>{{.Type}}</TD></TR>
<TR><TD>Views</TD><TD>{{.Views}}</TD></TR>
<TR><TD>Latent</TD><TD>{{.ZDim}}</TD></TR>
{{if .Join}}<TR><TD>Join</TD><TD>{{.Join}}</TD></TR>
{{end}}<TR><TD>Sparse</TD><TD>{{.Sparse}}</TD></TR>
</TABLE>
>
`

var tmpl *template.Template

func init() {
	tmpl = template.Must(template.New("summary").Parse(tmplRaw))
}
