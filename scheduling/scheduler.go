package scheduling

import (
	"strings"

	"github.com/sarchlab/arrayflow/array"
	"github.com/sarchlab/arrayflow/dataflow"
)

// Scheduler configures every edge of a composite from the declarations of
// its ports and orders the actors.
type Scheduler struct {
	metadata   MetadataProvider
	iterations IterationProvider
	rates      *RateTable
}

// NewScheduler creates a Scheduler.
func NewScheduler(m MetadataProvider, it IterationProvider) *Scheduler {
	return &Scheduler{
		metadata:   m,
		iterations: it,
		rates:      NewRateTable(),
	}
}

// Rates returns the declarations made by the last call to DeclareRates.
func (s *Scheduler) Rates() *RateTable {
	return s.rates
}

// DeclareRates computes the token rate of every boundary port of c. A
// boundary input consumes its whole array; a boundary output produces the
// whole array of the inner port that feeds it.
func (s *Scheduler) DeclareRates(c *dataflow.Composite) ([]RateDeclaration, error) {
	s.rates = NewRateTable()

	for _, p := range c.Inputs() {
		if err := s.declareInput(p); err != nil {
			return nil, err
		}
	}

	for _, p := range c.Outputs() {
		if err := s.declareOutput(c, p); err != nil {
			return nil, err
		}
	}

	return s.rates.Declarations(), nil
}

// Redeclare recomputes the rates that depend on param, after the parameter
// has changed.
func (s *Scheduler) Redeclare(
	c *dataflow.Composite,
	param string,
) ([]RateDeclaration, error) {
	var redone []RateDeclaration

	for _, name := range s.rates.Invalidate(param) {
		p, err := c.FindPort(name)
		if err != nil {
			return nil, notSchedulable(name, err, "port vanished")
		}

		if p.Direction() == dataflow.Input {
			err = s.declareInput(p)
		} else {
			err = s.declareOutput(c, p)
		}

		if err != nil {
			return nil, err
		}

		d := s.rates.decls[name]
		redone = append(redone, d)
	}

	return redone, nil
}

func (s *Scheduler) declareInput(p *dataflow.Port) error {
	rate, err := s.rate(p)
	if err != nil {
		return notSchedulable(p.Name(), err, "cannot compute consumption rate")
	}

	s.rates.Declare(RateDeclaration{
		Port:      p,
		Kind:      Consumption,
		Rate:      rate,
		DependsOn: s.metadata.Dependencies(p),
	})

	return nil
}

func (s *Scheduler) declareOutput(c *dataflow.Composite, p *dataflow.Port) error {
	src := c.Producer(p)
	if src == nil {
		return notSchedulable(p.Name(), nil, "output is not connected")
	}

	rate, err := s.rate(src)
	if err != nil {
		return notSchedulable(p.Name(), err,
			"cannot compute production rate of %s", src.Name())
	}

	deps := append(s.metadata.Dependencies(src), s.metadata.Dependencies(p)...)

	s.rates.Declare(RateDeclaration{
		Port:      p,
		Kind:      Production,
		Rate:      rate,
		DependsOn: deps,
	})

	return nil
}

func (s *Scheduler) rate(p *dataflow.Port) (int, error) {
	size, err := s.metadata.ArraySize(p)
	if err != nil {
		return 0, err
	}

	tpd, err := s.metadata.TokensPerData(p)
	if err != nil {
		return 0, err
	}

	return size * tpd, nil
}

// BuildSchedule configures every edge and receiver of c and returns the
// actors in dependency order. Receivers must have been created.
func (s *Scheduler) BuildSchedule(c *dataflow.Composite) (Schedule, error) {
	configured := make(map[*dataflow.Port]bool)

	for _, sink := range c.SinkPorts() {
		src := c.Producer(sink)
		if src == nil {
			return Schedule{}, notSchedulable(sink.Name(), nil,
				"%s is not connected", sink.Direction())
		}

		if err := s.configureOutput(src, configured); err != nil {
			return Schedule{}, err
		}
	}

	for _, a := range c.Actors() {
		for _, out := range a.Outputs() {
			if out.Edge() == nil {
				continue
			}

			if err := s.configureOutput(out, configured); err != nil {
				return Schedule{}, err
			}
		}

		for _, in := range a.Inputs() {
			if err := s.configureInput(in); err != nil {
				return Schedule{}, err
			}
		}
	}

	for _, out := range c.Outputs() {
		if err := s.configureInput(out); err != nil {
			return Schedule{}, err
		}
	}

	return s.order(c)
}

func (s *Scheduler) order(c *dataflow.Composite) (Schedule, error) {
	sorted, cyclic := TopologicalSort(c.Actors(), c.Successors)
	if len(cyclic) > 0 {
		names := make([]string, 0, len(cyclic))
		for _, a := range cyclic {
			names = append(names, a.Name())
		}

		return Schedule{}, notSchedulable(strings.Join(names, ", "), nil,
			"actors form a cycle")
	}

	schedule := Schedule{}

	for _, a := range sorted {
		n, err := s.iterations.IterationCount(a)
		if err != nil {
			return Schedule{}, notSchedulable(a.Name(), err,
				"cannot compute iteration count")
		}

		schedule.Firings = append(schedule.Firings, Firing{
			Actor:      a,
			Iterations: n,
		})
	}

	return schedule, nil
}

func (s *Scheduler) configureOutput(
	src *dataflow.Port,
	configured map[*dataflow.Port]bool,
) error {
	if configured[src] {
		return nil
	}

	edge := src.Edge()
	if edge == nil {
		return notSchedulable(src.Name(), nil, "receivers are not created")
	}

	dynamic := s.metadata.IsDynamic(src)
	edge.SetDynamic(dynamic)

	shape := array.OutputShape{}

	if !dynamic {
		spec, err := s.spec(src)
		if err != nil {
			return notSchedulable(src.Name(), err, "cannot read output array")
		}

		order, err := s.metadata.DimensionOrder(src)
		if err != nil {
			return notSchedulable(src.Name(), err, "cannot read dimension order")
		}

		sizes, err := s.metadata.ArraySizes(src)
		if err != nil {
			return notSchedulable(src.Name(), err, "cannot read array sizes")
		}

		shape = array.OutputShape{Spec: spec, Order: order, Sizes: sizes}
	}

	if err := edge.SetOutputArray(shape); err != nil {
		return notSchedulable(src.Name(), err, "cannot set output array")
	}

	configured[src] = true

	return nil
}

func (s *Scheduler) configureInput(sink *dataflow.Port) error {
	recv := sink.Receiver()
	if recv == nil {
		return notSchedulable(sink.Name(), nil, "receivers are not created")
	}

	spec, err := s.spec(sink)
	if err != nil {
		return notSchedulable(sink.Name(), err, "cannot read input array")
	}

	if err := recv.SetInputArray(spec); err != nil {
		return notSchedulable(sink.Name(), err, "cannot set input array")
	}

	return nil
}

func (s *Scheduler) spec(p *dataflow.Port) (*array.Spec, error) {
	base, err := s.metadata.Base(p)
	if err != nil {
		return nil, err
	}

	pattern, err := s.metadata.Pattern(p)
	if err != nil {
		return nil, err
	}

	tiling, err := s.metadata.Tiling(p)
	if err != nil {
		return nil, err
	}

	reps, err := s.metadata.Repetitions(p)
	if err != nil {
		return nil, err
	}

	tpd, err := s.metadata.TokensPerData(p)
	if err != nil {
		return nil, err
	}

	return &array.Spec{
		Base:          base,
		Pattern:       pattern,
		Tiling:        tiling,
		Repetitions:   reps,
		TokensPerData: tpd,
	}, nil
}
