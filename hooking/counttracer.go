package hooking

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"

	"github.com/sarchlab/arrayflow/naming"
)

// CountTracer counts how many times each hook position fires on each domain.
type CountTracer struct {
	lock sync.Mutex

	posNames []string
	counts   map[string]map[string]uint64
}

// NewCountTracer creates a new CountTracer.
func NewCountTracer() *CountTracer {
	return &CountTracer{
		counts: make(map[string]map[string]uint64),
	}
}

// Func records one hit.
func (t *CountTracer) Func(ctx HookCtx) {
	t.lock.Lock()
	defer t.lock.Unlock()

	where := ""
	if named, ok := ctx.Domain.(naming.Named); ok {
		where = named.Name()
	}

	byDomain, ok := t.counts[ctx.Pos.Name]
	if !ok {
		byDomain = make(map[string]uint64)
		t.counts[ctx.Pos.Name] = byDomain
		t.posNames = append(t.posNames, ctx.Pos.Name)
	}

	byDomain[where]++
}

// PosNames returns the hook position names seen so far, in the order they
// were first seen.
func (t *CountTracer) PosNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]string(nil), t.posNames...)
}

// Count returns the number of hits of a position on a domain.
func (t *CountTracer) Count(pos *HookPos, domain string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.counts[pos.Name][domain]
}

// Total returns the number of hits of a position over all domains.
func (t *CountTracer) Total(pos *HookPos) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	var sum uint64
	for _, c := range t.counts[pos.Name] {
		sum += c
	}

	return sum
}

// Report writes one line per position and domain. Positions come in the order
// they were first seen, domains sorted by name.
func (t *CountTracer) Report(w io.Writer) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POSITION\tWHERE\tCOUNT")

	for _, pos := range t.posNames {
		byDomain := t.counts[pos]

		domains := make([]string, 0, len(byDomain))
		for d := range byDomain {
			domains = append(domains, d)
		}

		sort.Strings(domains)

		for _, d := range domains {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", pos, d, byDomain[d])
		}
	}

	return tw.Flush()
}
