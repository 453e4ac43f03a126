package actors

import (
	"fmt"

	"github.com/sarchlab/arrayflow/array"
	"github.com/sarchlab/arrayflow/dataflow"
)

// Scale multiplies every token by a constant factor.
type Scale struct {
	*dataflow.ActorBase

	In, Out *dataflow.Port

	factor float64
}

// NewScale creates a scale actor. Input and output follow the given
// declarations.
func NewScale(
	name string,
	factor float64,
	in, out dataflow.Declaration,
) *Scale {
	a := &Scale{
		ActorBase: dataflow.NewActorBase(name),
		factor:    factor,
	}

	a.In = a.AddInput("In", in)
	a.Out = a.AddOutput("Out", out)

	return a
}

// Fire scales one firing's worth of tokens.
func (a *Scale) Fire() error {
	n, err := a.In.TokensPerFiring()
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		tok, err := a.In.Get()
		if err != nil {
			return err
		}

		v, err := toFloat(tok)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Name(), err)
		}

		if err := a.Out.Put(v * a.factor); err != nil {
			return err
		}
	}

	return nil
}

func toFloat(t array.Token) (float64, error) {
	switch v := t.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}

	return 0, fmt.Errorf("token %v of type %T is not a number", t, t)
}
