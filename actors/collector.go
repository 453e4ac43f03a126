package actors

import (
	"github.com/sarchlab/arrayflow/array"
	"github.com/sarchlab/arrayflow/dataflow"
	"github.com/sarchlab/arrayflow/metadata"
)

// A Collector is a sink that keeps every token it reads, one slice per
// iteration of the director.
type Collector struct {
	*dataflow.ActorBase

	In *dataflow.Port

	perIteration int
	fired        int
	iterations   [][]array.Token
}

// NewCollector creates a collector. A new iteration starts every time the
// repetitions are exhausted. An input without a pattern reads the producer's
// whole array in one firing.
func NewCollector(
	name string,
	reps string,
	in dataflow.Declaration,
) *Collector {
	a := &Collector{ActorBase: dataflow.NewActorBase(name)}
	a.SetRepetitions(reps)
	a.In = a.AddInput("In", in)

	return a
}

// Initialize drops the collected tokens.
func (a *Collector) Initialize() error {
	n, err := metadata.NewProvider().IterationCount(a)
	if err != nil {
		return err
	}

	a.perIteration = n
	a.iterations = nil
	a.fired = 0

	return nil
}

// Fire reads one firing's worth of tokens.
func (a *Collector) Fire() error {
	n, err := a.In.TokensPerFiring()
	if err != nil {
		return err
	}

	if a.perIteration < 1 || a.fired%a.perIteration == 0 {
		a.iterations = append(a.iterations, nil)
	}

	last := len(a.iterations) - 1

	for i := 0; i < n; i++ {
		tok, err := a.In.Get()
		if err != nil {
			return err
		}

		a.iterations[last] = append(a.iterations[last], tok)
	}

	a.fired++

	return nil
}

// Tokens returns all collected tokens in reading order.
func (a *Collector) Tokens() []array.Token {
	var all []array.Token
	for _, it := range a.iterations {
		all = append(all, it...)
	}

	return all
}

// Iterations returns the collected tokens grouped by iteration.
func (a *Collector) Iterations() [][]array.Token {
	return a.iterations
}
