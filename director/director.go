// Package director runs the actors of a composite following a static
// schedule.
package director

import (
	"context"
	"fmt"

	"github.com/rs/xid"

	"github.com/sarchlab/arrayflow/dataflow"
	"github.com/sarchlab/arrayflow/hooking"
	"github.com/sarchlab/arrayflow/id"
	"github.com/sarchlab/arrayflow/naming"
	"github.com/sarchlab/arrayflow/scheduling"
)

// Hook positions of a director.
var (
	// HookPosRunStart is hooked when a run starts. Item is a RunInfo.
	HookPosRunStart = &hooking.HookPos{Name: "Run Start"}

	// HookPosIterationStart is hooked after the receivers are reset at the
	// start of an iteration. Item is the iteration number.
	HookPosIterationStart = &hooking.HookPos{Name: "Iteration Start"}

	// HookPosBeforeFiring is hooked before an actor fires. Item is a
	// FiringRecord.
	HookPosBeforeFiring = &hooking.HookPos{Name: "Before Firing"}

	// HookPosAfterFiring is hooked after an actor fires, whether the firing
	// failed or not. Item is a FiringRecord.
	HookPosAfterFiring = &hooking.HookPos{Name: "After Firing"}

	// HookPosRunError is hooked when a run stops on an error. Item is the
	// error.
	HookPosRunError = &hooking.HookPos{Name: "Run Error"}

	// HookPosRunEnd is hooked when a run completes. Item is a RunInfo.
	HookPosRunEnd = &hooking.HookPos{Name: "Run End"}
)

// A ScheduleProvider configures the buffers of a composite and orders its
// actors.
type ScheduleProvider interface {
	DeclareRates(c *dataflow.Composite) ([]scheduling.RateDeclaration, error)
	BuildSchedule(c *dataflow.Composite) (scheduling.Schedule, error)
}

// RunInfo describes a run.
type RunInfo struct {
	RunID               string
	Iterations          int
	FiringsPerIteration int
}

// A FiringRecord describes one firing of an actor.
type FiringRecord struct {
	ID        string
	RunID     string
	Actor     string
	Iteration int
	Index     int
	Err       error
}

// A FiringError reports the firing that stopped a run.
type FiringError struct {
	Actor     string
	Iteration int
	Index     int
	Err       error
}

func (e *FiringError) Error() string {
	return fmt.Sprintf("%s failed in iteration %d, firing %d: %v",
		e.Actor, e.Iteration, e.Index, e.Err)
}

// Unwrap returns the error returned by the actor.
func (e *FiringError) Unwrap() error {
	return e.Err
}

// Director fires the actors of one composite.
type Director struct {
	hooking.HookableBase
	naming.NamedBase

	composite *dataflow.Composite
	scheduler ScheduleProvider
	factory   dataflow.ReceiverFactory
	idGen     id.Generator
	edgeHooks []hooking.Hook

	runID       string
	schedule    scheduling.Schedule
	initialized bool
	iteration   int
	firings     uint64
}

// Composite returns the composite the director runs.
func (d *Director) Composite() *dataflow.Composite {
	return d.composite
}

// RunID returns the identifier of the current run, or "" before Initialize.
func (d *Director) RunID() string {
	return d.runID
}

// Schedule returns the schedule built by Initialize.
func (d *Director) Schedule() scheduling.Schedule {
	return d.schedule
}

// Iterations returns the number of iterations completed since Initialize.
func (d *Director) Iterations() int {
	return d.iteration
}

// Firings returns the number of firings since Initialize.
func (d *Director) Firings() uint64 {
	return d.firings
}

// DeclareRates returns the token rates of the composite's boundary ports.
func (d *Director) DeclareRates() ([]scheduling.RateDeclaration, error) {
	return d.scheduler.DeclareRates(d.composite)
}

// AcceptEdgeHook registers a hook that is attached to every edge the
// director creates, before the edges are configured.
func (d *Director) AcceptEdgeHook(hook hooking.Hook) {
	d.edgeHooks = append(d.edgeHooks, hook)
}

// Initialize creates the receivers, builds the schedule and initializes the
// actors. It can be called again after declarations change.
func (d *Director) Initialize() error {
	d.runID = xid.New().String()
	d.composite.CreateReceivers(d.factory)

	for _, e := range d.composite.Edges() {
		for _, h := range d.edgeHooks {
			e.AcceptHook(h)
		}
	}

	schedule, err := d.scheduler.BuildSchedule(d.composite)
	if err != nil {
		return err
	}

	for _, a := range d.composite.Actors() {
		initializer, ok := a.(dataflow.Initializer)
		if !ok {
			continue
		}

		if err := initializer.Initialize(); err != nil {
			return fmt.Errorf("%s: initialize: %w", a.Name(), err)
		}
	}

	d.schedule = schedule
	d.iteration = 0
	d.firings = 0
	d.initialized = true

	return nil
}

// Run executes the schedule for the given number of iterations. Every
// iteration starts by resetting all receivers. Cancellation is checked
// between firings.
func (d *Director) Run(ctx context.Context, iterations int) error {
	if !d.initialized {
		if err := d.Initialize(); err != nil {
			return err
		}
	}

	info := RunInfo{
		RunID:               d.runID,
		Iterations:          iterations,
		FiringsPerIteration: d.schedule.TotalFirings(),
	}
	d.invoke(HookPosRunStart, info, nil)

	for i := 0; i < iterations; i++ {
		if err := d.iterate(ctx); err != nil {
			d.invoke(HookPosRunError, err, nil)
			return err
		}
	}

	d.invoke(HookPosRunEnd, info, nil)

	return nil
}

func (d *Director) iterate(ctx context.Context) error {
	for _, r := range d.composite.Receivers() {
		r.Reset()
	}

	d.invoke(HookPosIterationStart, d.iteration, nil)

	for _, f := range d.schedule.Firings {
		for k := 0; k < f.Iterations; k++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := d.fire(f.Actor, k); err != nil {
				return err
			}
		}
	}

	d.iteration++

	return nil
}

func (d *Director) fire(a dataflow.Actor, index int) error {
	rec := FiringRecord{
		ID:        d.idGen.Generate(),
		RunID:     d.runID,
		Actor:     a.Name(),
		Iteration: d.iteration,
		Index:     index,
	}

	d.invoke(HookPosBeforeFiring, rec, nil)

	rec.Err = a.Fire()
	d.firings++

	d.invoke(HookPosAfterFiring, rec, nil)

	if rec.Err != nil {
		return &FiringError{
			Actor:     rec.Actor,
			Iteration: rec.Iteration,
			Index:     rec.Index,
			Err:       rec.Err,
		}
	}

	return nil
}

func (d *Director) invoke(pos *hooking.HookPos, item, detail any) {
	if d.NumHooks() == 0 {
		return
	}

	d.InvokeHook(hooking.HookCtx{
		Domain: d,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
