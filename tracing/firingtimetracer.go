// Package tracing measures how long actors take to fire.
package tracing

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/sarchlab/arrayflow/director"
	"github.com/sarchlab/arrayflow/hooking"
)

// A TimeTeller tells the current time.
type TimeTeller interface {
	Now() time.Time
}

// WallClock tells the time of the system clock.
type WallClock struct{}

// Now returns time.Now().
func (WallClock) Now() time.Time {
	return time.Now()
}

// ActorFilter selects the actors a tracer follows.
type ActorFilter func(actor string) bool

// ActorTime summarizes the firings of one actor.
type ActorTime struct {
	Actor   string
	Count   uint64
	Total   time.Duration
	Longest time.Duration
}

// Average returns the mean firing time.
func (a ActorTime) Average() time.Duration {
	if a.Count == 0 {
		return 0
	}

	return a.Total / time.Duration(a.Count)
}

// FiringTimeTracer collects the time each actor spends in Fire. Attach it to
// a director with AcceptHook.
type FiringTimeTracer struct {
	timeTeller TimeTeller
	filter     ActorFilter

	lock     sync.Mutex
	inflight map[string]time.Time
	actors   []string
	times    map[string]*ActorTime
}

// NewFiringTimeTracer creates a new FiringTimeTracer. A nil filter follows
// all actors.
func NewFiringTimeTracer(
	timeTeller TimeTeller,
	filter ActorFilter,
) *FiringTimeTracer {
	return &FiringTimeTracer{
		timeTeller: timeTeller,
		filter:     filter,
		inflight:   make(map[string]time.Time),
		times:      make(map[string]*ActorTime),
	}
}

// Func records the start and the end of firings.
func (t *FiringTimeTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case director.HookPosBeforeFiring:
		t.StartFiring(ctx.Item.(director.FiringRecord))
	case director.HookPosAfterFiring:
		t.EndFiring(ctx.Item.(director.FiringRecord))
	}
}

// StartFiring records the start time of a firing.
func (t *FiringTimeTracer) StartFiring(rec director.FiringRecord) {
	if t.filter != nil && !t.filter(rec.Actor) {
		return
	}

	now := t.timeTeller.Now()

	t.lock.Lock()
	t.inflight[rec.ID] = now
	t.lock.Unlock()
}

// EndFiring adds the duration of a firing to its actor.
func (t *FiringTimeTracer) EndFiring(rec director.FiringRecord) {
	t.lock.Lock()
	defer t.lock.Unlock()

	start, ok := t.inflight[rec.ID]
	if !ok {
		return
	}

	delete(t.inflight, rec.ID)

	d := t.timeTeller.Now().Sub(start)

	at, found := t.times[rec.Actor]
	if !found {
		at = &ActorTime{Actor: rec.Actor}
		t.times[rec.Actor] = at
		t.actors = append(t.actors, rec.Actor)
	}

	at.Count++
	at.Total += d

	if d > at.Longest {
		at.Longest = d
	}
}

// Times returns the summary of every actor, in the order the actors first
// completed a firing.
func (t *FiringTimeTracer) Times() []ActorTime {
	t.lock.Lock()
	defer t.lock.Unlock()

	times := make([]ActorTime, 0, len(t.actors))
	for _, a := range t.actors {
		times = append(times, *t.times[a])
	}

	return times
}

// TotalTime returns the time spent in all followed firings.
func (t *FiringTimeTracer) TotalTime() time.Duration {
	var total time.Duration
	for _, at := range t.Times() {
		total += at.Total
	}

	return total
}

// Report writes one line per actor.
func (t *FiringTimeTracer) Report(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTOR\tFIRINGS\tTOTAL\tAVERAGE\tLONGEST")

	for _, at := range t.Times() {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			at.Actor, at.Count, at.Total, at.Average(), at.Longest)
	}

	return tw.Flush()
}
