package actors

import (
	"fmt"

	"github.com/sarchlab/arrayflow/dataflow"
)

// Transpose swaps the two dimensions of a 2-D array without moving any token
// itself. Each firing reads one column along the slow dimension and writes it
// with the slow dimension varying fastest, so the output array is stored in
// the opposite order of the input.
type Transpose struct {
	*dataflow.ActorBase

	In, Out *dataflow.Port
}

// NewTranspose creates a transpose of an array whose fast dimension is fast
// with nFast elements and whose slow dimension is slow with nSlow elements.
func NewTranspose(name, fast, slow string, nFast, nSlow int) *Transpose {
	if fast == slow {
		panic("transpose " + name + " needs two distinct dimensions")
	}

	a := &Transpose{ActorBase: dataflow.NewActorBase(name)}
	a.SetRepetitions(fmt.Sprintf("[%d]", nFast))

	column := dataflow.Declaration{
		Pattern: fmt.Sprintf("%s=%d", slow, nSlow),
		Tiling:  fmt.Sprintf("%s=1", fast),
	}

	a.In = a.AddInput("In", column)
	a.Out = a.AddOutput("Out", column)

	return a
}

// Fire copies one column.
func (a *Transpose) Fire() error {
	n, err := a.In.TokensPerFiring()
	if err != nil {
		return err
	}

	if !a.Out.HasRoom(n) {
		return fmt.Errorf("%s: no room for %d tokens", a.Name(), n)
	}

	for i := 0; i < n; i++ {
		tok, err := a.In.Get()
		if err != nil {
			return err
		}

		if err := a.Out.Put(tok); err != nil {
			return err
		}
	}

	return nil
}
