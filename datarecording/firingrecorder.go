package datarecording

import (
	"strings"

	"github.com/sarchlab/arrayflow/array"
	"github.com/sarchlab/arrayflow/director"
	"github.com/sarchlab/arrayflow/hooking"
)

// Table names used by FiringRecorder.
const (
	FiringTable = "firing"
	EdgeTable   = "edge"
)

// FiringEntry is one row of the firing table.
type FiringEntry struct {
	ID        string
	RunID     string
	Actor     string
	Iteration int
	Idx       int
	Error     string
}

// EdgeEntry is one row of the edge table, written every time an edge takes
// a new shape.
type EdgeEntry struct {
	RunID  string
	Edge   string
	Mode   string
	Epoch  int
	Dims   string
	Length int
}

// FiringRecorder is a hook that records firings and edge shapes. Attach it to
// a director with Attach.
type FiringRecorder struct {
	recorder DataRecorder
	director *director.Director
}

// NewFiringRecorder creates the firing and edge tables in recorder.
func NewFiringRecorder(recorder DataRecorder) *FiringRecorder {
	recorder.CreateTable(FiringTable, FiringEntry{})
	recorder.CreateTable(EdgeTable, EdgeEntry{})

	return &FiringRecorder{recorder: recorder}
}

// Attach registers the recorder on the director and on the edges the
// director creates.
func (r *FiringRecorder) Attach(d *director.Director) {
	r.director = d
	d.AcceptHook(r)
	d.AcceptEdgeHook(r)
}

// Func records the hook.
func (r *FiringRecorder) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case director.HookPosAfterFiring:
		r.recordFiring(ctx.Item.(director.FiringRecord))
	case array.HookPosReconfigure:
		r.recordEdge(ctx)
	case director.HookPosRunEnd, director.HookPosRunError:
		r.recorder.Flush()
	}
}

func (r *FiringRecorder) recordFiring(rec director.FiringRecord) {
	entry := FiringEntry{
		ID:        rec.ID,
		RunID:     rec.RunID,
		Actor:     rec.Actor,
		Iteration: rec.Iteration,
		Idx:       rec.Index,
	}

	if rec.Err != nil {
		entry.Error = rec.Err.Error()
	}

	r.recorder.InsertData(FiringTable, entry)
}

func (r *FiringRecorder) recordEdge(ctx hooking.HookCtx) {
	edge, ok := ctx.Domain.(*array.Edge)
	if !ok {
		return
	}

	order, _ := ctx.Item.([]string)
	length, _ := ctx.Detail.(int)

	runID := ""
	if r.director != nil {
		runID = r.director.RunID()
	}

	r.recorder.InsertData(EdgeTable, EdgeEntry{
		RunID:  runID,
		Edge:   edge.Name(),
		Mode:   edge.Mode().String(),
		Epoch:  edge.Epoch(),
		Dims:   strings.Join(order, ","),
		Length: length,
	})
}
