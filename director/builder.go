package director

import (
	"github.com/sarchlab/arrayflow/dataflow"
	"github.com/sarchlab/arrayflow/id"
	"github.com/sarchlab/arrayflow/metadata"
	"github.com/sarchlab/arrayflow/naming"
	"github.com/sarchlab/arrayflow/scheduling"
)

// Builder can build directors.
type Builder struct {
	scheduler ScheduleProvider
	factory   dataflow.ReceiverFactory
	idGen     id.Generator
}

// MakeBuilder creates a builder that schedules with the declarations of the
// ports and allocates all buffers from one arena.
func MakeBuilder() Builder {
	return Builder{}
}

// WithScheduler sets the schedule provider.
func (b Builder) WithScheduler(s ScheduleProvider) Builder {
	b.scheduler = s
	return b
}

// WithReceiverFactory sets the factory that creates edges and receivers.
func (b Builder) WithReceiverFactory(f dataflow.ReceiverFactory) Builder {
	b.factory = f
	return b
}

// WithIDGenerator sets the generator of firing IDs.
func (b Builder) WithIDGenerator(g id.Generator) Builder {
	b.idGen = g
	return b
}

// Build creates a director for the composite.
func (b Builder) Build(name string, c *dataflow.Composite) *Director {
	naming.NameMustBeValid(name)

	if b.scheduler == nil {
		p := metadata.NewProvider()
		b.scheduler = scheduling.NewScheduler(p, p)
	}

	if b.factory == nil {
		b.factory = dataflow.NewArenaReceiverFactory()
	}

	if b.idGen == nil {
		b.idGen = id.NewGenerator()
	}

	return &Director{
		NamedBase: naming.MakeNamedBase(name),
		composite: c,
		scheduler: b.scheduler,
		factory:   b.factory,
		idGen:     b.idGen,
	}
}
