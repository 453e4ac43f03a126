package actors

import (
	"fmt"

	"github.com/sarchlab/arrayflow/array"
	"github.com/sarchlab/arrayflow/dataflow"
)

// A ShapedRamp is a dynamic source. It chooses the shape of its array at run
// time: every firing sends a header describing the shape and then the whole
// array, filled with an arithmetic sequence.
type ShapedRamp struct {
	*dataflow.ActorBase

	Out *dataflow.Port

	shapes      []array.Shape
	start, step float64
	fired       int
}

// Initialize restarts the shape cycle.
func (a *ShapedRamp) Initialize() error {
	a.fired = 0
	return nil
}

// Shape returns the shape the next firing will send.
func (a *ShapedRamp) Shape() array.Shape {
	return a.shapes[a.fired%len(a.shapes)]
}

// Fire sends a header followed by the array data.
func (a *ShapedRamp) Fire() error {
	shape := a.Shape()

	for _, t := range array.EncodeHeader(shape) {
		if err := a.Out.Put(t); err != nil {
			return err
		}
	}

	n := shape.PatternSize() * shape.TokensPerData
	if !a.Out.HasRoom(n) {
		return fmt.Errorf("%s: no room for %d tokens", a.Name(), n)
	}

	v := a.start
	for i := 0; i < n; i++ {
		if err := a.Out.Put(v); err != nil {
			return err
		}

		v += a.step
	}

	a.fired++

	return nil
}

// ShapedRampBuilder can build shaped ramps.
type ShapedRampBuilder struct {
	shapes      []array.Shape
	base        string
	start, step float64
}

// MakeShapedRampBuilder creates a builder of shaped ramps that count 0, 1,
// 2, ...
func MakeShapedRampBuilder() ShapedRampBuilder {
	return ShapedRampBuilder{step: 1}
}

// WithShapes sets the shapes sent by successive firings. The cycle restarts
// after the last shape.
func (b ShapedRampBuilder) WithShapes(shapes ...array.Shape) ShapedRampBuilder {
	b.shapes = append([]array.Shape(nil), shapes...)
	return b
}

// WithBase sets the base of the output port, for example "x=1".
func (b ShapedRampBuilder) WithBase(base string) ShapedRampBuilder {
	b.base = base
	return b
}

// WithStart sets the first value of every array.
func (b ShapedRampBuilder) WithStart(start float64) ShapedRampBuilder {
	b.start = start
	return b
}

// WithStep sets the difference between two successive values.
func (b ShapedRampBuilder) WithStep(step float64) ShapedRampBuilder {
	b.step = step
	return b
}

// Build creates a shaped ramp with a dynamic output port named "Out".
func (b ShapedRampBuilder) Build(name string) *ShapedRamp {
	if len(b.shapes) == 0 {
		panic("shaped ramp " + name + " needs at least one shape")
	}

	for _, s := range b.shapes {
		if s.TokensPerData < 1 || len(s.Dims) == 0 {
			panic(fmt.Sprintf("shaped ramp %s: invalid shape %v", name, s))
		}
	}

	a := &ShapedRamp{
		ActorBase: dataflow.NewActorBase(name),
		shapes:    b.shapes,
		start:     b.start,
		step:      b.step,
	}

	a.Out = a.AddOutput("Out", dataflow.Declaration{
		Base:    b.base,
		Dynamic: true,
	})

	return a
}
