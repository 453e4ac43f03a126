package scheduling

import "github.com/sarchlab/arrayflow/dataflow"

// RateKind tells whether a boundary port consumes or produces tokens.
type RateKind int

// Kinds of rates.
const (
	Consumption RateKind = iota
	Production
)

func (k RateKind) String() string {
	if k == Production {
		return "production"
	}

	return "consumption"
}

// A RateDeclaration is the number of tokens a boundary port moves per
// iteration of the composite.
type RateDeclaration struct {
	Port      *dataflow.Port
	Kind      RateKind
	Rate      int
	DependsOn []string
}

// A RateTable keeps the rate declarations of one composite and the parameters
// each of them was computed from.
type RateTable struct {
	order []string
	decls map[string]RateDeclaration
}

// NewRateTable creates an empty table.
func NewRateTable() *RateTable {
	return &RateTable{decls: make(map[string]RateDeclaration)}
}

// Declare adds or replaces the declaration of a port.
func (t *RateTable) Declare(d RateDeclaration) {
	name := d.Port.Name()
	if _, found := t.decls[name]; !found {
		t.order = append(t.order, name)
	}

	t.decls[name] = d
}

// Rate returns the declared rate of a port.
func (t *RateTable) Rate(portName string) (int, bool) {
	d, found := t.decls[portName]

	return d.Rate, found
}

// Declarations returns all declarations in the order they were first made.
func (t *RateTable) Declarations() []RateDeclaration {
	decls := make([]RateDeclaration, 0, len(t.order))
	for _, name := range t.order {
		decls = append(decls, t.decls[name])
	}

	return decls
}

// DependentsOf returns the declarations computed from param.
func (t *RateTable) DependentsOf(param string) []RateDeclaration {
	var deps []RateDeclaration

	for _, d := range t.Declarations() {
		for _, p := range d.DependsOn {
			if p == param {
				deps = append(deps, d)
				break
			}
		}
	}

	return deps
}

// Invalidate drops the declarations computed from param and returns the
// names of their ports.
func (t *RateTable) Invalidate(param string) []string {
	var names []string

	for _, d := range t.DependentsOf(param) {
		names = append(names, d.Port.Name())
		delete(t.decls, d.Port.Name())
	}

	kept := t.order[:0]
	for _, name := range t.order {
		if _, found := t.decls[name]; found {
			kept = append(kept, name)
		}
	}

	t.order = kept

	return names
}
