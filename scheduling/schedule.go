package scheduling

import (
	"fmt"
	"strings"

	"github.com/sarchlab/arrayflow/dataflow"
)

// A Firing fires one actor Iterations times in a row.
type Firing struct {
	Actor      dataflow.Actor
	Iterations int
}

// A Schedule is the ordered list of firings of one iteration.
type Schedule struct {
	Firings []Firing
}

// TotalFirings returns the number of actor firings in one iteration.
func (s Schedule) TotalFirings() int {
	n := 0
	for _, f := range s.Firings {
		n += f.Iterations
	}

	return n
}

func (s Schedule) String() string {
	parts := make([]string, 0, len(s.Firings))
	for _, f := range s.Firings {
		parts = append(parts, fmt.Sprintf("%s(%d)", f.Actor.Name(), f.Iterations))
	}

	return strings.Join(parts, " ")
}
