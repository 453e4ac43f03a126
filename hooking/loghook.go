package hooking

import (
	"fmt"
	"log"

	"github.com/sarchlab/arrayflow/naming"
)

// LogHook prints every hook invocation it receives into a logger. It can be
// attached to any hookable object; a nil Positions set logs all positions.
type LogHook struct {
	*log.Logger

	Positions map[*HookPos]bool
}

// NewLogHook returns a new LogHook which will write into the logger.
func NewLogHook(logger *log.Logger, positions ...*HookPos) *LogHook {
	h := &LogHook{Logger: logger}

	if len(positions) > 0 {
		h.Positions = make(map[*HookPos]bool, len(positions))
		for _, p := range positions {
			h.Positions[p] = true
		}
	}

	return h
}

// Func writes the hook information into the logger.
func (h *LogHook) Func(ctx HookCtx) {
	if h.Positions != nil && !h.Positions[ctx.Pos] {
		return
	}

	where := "-"
	if named, ok := ctx.Domain.(naming.Named); ok {
		where = named.Name()
	}

	line := fmt.Sprintf("%s, %s, %v", where, ctx.Pos.Name, ctx.Item)
	if ctx.Detail != nil {
		line += fmt.Sprintf(", %v", ctx.Detail)
	}

	h.Logger.Print(line)
}
