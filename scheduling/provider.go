// Package scheduling configures the buffers of a composite and orders its
// actors into a static schedule.
package scheduling

import (
	"github.com/sarchlab/arrayflow/array"
	"github.com/sarchlab/arrayflow/dataflow"
)

// A MetadataProvider tells the scheduler how each port walks its array.
type MetadataProvider interface {
	Base(p *dataflow.Port) (map[string]int, error)
	TokensPerData(p *dataflow.Port) (int, error)
	Pattern(p *dataflow.Port) ([]array.Axis, error)
	Tiling(p *dataflow.Port) ([]array.Axis, error)
	Repetitions(p *dataflow.Port) ([]int, error)
	PatternAddressCount(p *dataflow.Port) (int, error)
	ArraySize(p *dataflow.Port) (int, error)
	ArraySizes(p *dataflow.Port) (map[string]int, error)
	DimensionOrder(p *dataflow.Port) ([]string, error)
	IsDynamic(p *dataflow.Port) bool
	Dependencies(p *dataflow.Port) []string
}

// An IterationProvider tells how many times each actor fires per iteration.
type IterationProvider interface {
	IterationCounts(a dataflow.Actor) ([]int, error)
	IterationCount(a dataflow.Actor) (int, error)
}
