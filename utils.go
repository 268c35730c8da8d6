package multivae

import (
	"bytes"
	"fmt"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
)

type slicer struct {
	v   tensor.View
	err error
}

func (s *slicer) Slice(a *tensor.Dense, slices ...tensor.Slice) *tensor.Dense {
	if s.err != nil {
		return nil
	}
	if s.v, s.err = a.Slice(slices...); s.err != nil {
		s.err = errors.Wrapf(s.err, "Slicer failed") // get a stack trace
		return nil
	}
	return s.v.(*tensor.Dense)
}

type rs struct {
	start, end, step int
}

func (s rs) Start() int { return s.start }
func (s rs) End() int   { return s.end }
func (s rs) Step() int  { return s.step }

// sli creates a ranged slice. It takes an optional step param.
func sli(start, end int, opts ...int) rs {
	step := 1
	if len(opts) > 0 {
		step = opts[0]
	}
	return rs{
		start: start,
		end:   end,
		step:  step,
	}
}

type manyErr []error

func (err manyErr) Error() string {
	var buf bytes.Buffer
	for _, e := range err {
		fmt.Fprintln(&buf, e.Error())
	}
	return buf.String()
}

// shuffleViews shuffles the rows of every view with one permutation, keeping
// samples aligned across views.
func shuffleViews(views []*tensor.Dense) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	mats := make([][][]float32, len(views))
	rows := -1
	for i, v := range views {
		var err error
		if mats[i], err = native.MatrixF32(v); err != nil {
			return errors.Wrapf(err, "shuffle failed - view %d", i)
		}
		if rows == -1 {
			rows = len(mats[i])
		} else if len(mats[i]) != rows {
			return errors.Errorf("view %d has %d rows, view 0 has %d", i, len(mats[i]), rows)
		}
	}

	for i := rows - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		for _, mat := range mats {
			rowI, rowJ := mat[i], mat[j]
			for k := range rowI {
				rowI[k], rowJ[k] = rowJ[k], rowI[k]
			}
		}
	}
	return nil
}
