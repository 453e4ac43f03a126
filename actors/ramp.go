// Package actors provides ready-made actors for building pipelines.
package actors

import (
	"github.com/sarchlab/arrayflow/dataflow"
)

// A Ramp is a source that writes an arithmetic sequence. Every firing writes
// as many tokens as the output declaration accesses. The sequence restarts
// when the ramp is initialized.
type Ramp struct {
	*dataflow.ActorBase

	Out *dataflow.Port

	start, step, next float64
}

// Initialize restarts the sequence.
func (a *Ramp) Initialize() error {
	a.next = a.start
	return nil
}

// Fire writes the next firing's worth of tokens.
func (a *Ramp) Fire() error {
	n, err := a.Out.TokensPerFiring()
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		if err := a.Out.Put(a.next); err != nil {
			return err
		}

		a.next += a.step
	}

	return nil
}

// RampBuilder can build ramps.
type RampBuilder struct {
	decl        dataflow.Declaration
	repetitions string
	start, step float64
}

// MakeRampBuilder creates a builder of ramps that count 0, 1, 2, ...
func MakeRampBuilder() RampBuilder {
	return RampBuilder{step: 1}
}

// WithOutput sets the declaration of the output port.
func (b RampBuilder) WithOutput(decl dataflow.Declaration) RampBuilder {
	b.decl = decl
	return b
}

// WithRepetitions sets the repetition space, for example "[2,3]".
func (b RampBuilder) WithRepetitions(reps string) RampBuilder {
	b.repetitions = reps
	return b
}

// WithStart sets the first value.
func (b RampBuilder) WithStart(start float64) RampBuilder {
	b.start = start
	return b
}

// WithStep sets the difference between two successive values.
func (b RampBuilder) WithStep(step float64) RampBuilder {
	b.step = step
	return b
}

// Build creates a ramp with an output port named "Out".
func (b RampBuilder) Build(name string) *Ramp {
	a := &Ramp{
		ActorBase: dataflow.NewActorBase(name),
		start:     b.start,
		step:      b.step,
		next:      b.start,
	}

	a.SetRepetitions(b.repetitions)
	a.Out = a.AddOutput("Out", b.decl)

	return a
}
