// Package dataflow models actors, their ports and the composites that
// connect them.
package dataflow

import (
	"fmt"
	"log"

	"github.com/sarchlab/arrayflow/array"
	"github.com/sarchlab/arrayflow/naming"
)

// Direction tells whether a port consumes or produces data for its owner.
type Direction int

// Port directions.
const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}

	return "input"
}

// Declaration holds the array parameters of a port in text form, for example
// Pattern "x=3.1,y=4.1" (extent.stride), Tiling "x=3,y=4" (stride) and Base
// "x=0,y=0".
type Declaration struct {
	Base          string `json:"base,omitempty"`
	Pattern       string `json:"pattern,omitempty"`
	Tiling        string `json:"tiling,omitempty"`
	TokensPerData int    `json:"tokens_per_data,omitempty"`

	// Dimensions optionally fixes the dimension order, e.g. "x,y".
	Dimensions string `json:"dimensions,omitempty"`

	// Sizes optionally fixes the array sizes, e.g. "x=6,y=4".
	Sizes string `json:"sizes,omitempty"`

	// Dynamic marks a producer whose shape arrives as a header.
	Dynamic bool `json:"dynamic,omitempty"`
}

// A Port belongs to an actor or to the boundary of a composite.
type Port struct {
	name     string
	owner    naming.Named
	dir      Direction
	boundary bool
	decl     Declaration

	edge     *array.Edge
	receiver *array.Receiver
}

func newPort(
	owner naming.Named,
	name string,
	dir Direction,
	boundary bool,
	decl Declaration,
) *Port {
	fullName := naming.BuildName(owner.Name(), name)
	naming.NameMustBeValid(fullName)

	return &Port{
		name:     fullName,
		owner:    owner,
		dir:      dir,
		boundary: boundary,
		decl:     decl,
	}
}

// Name returns the full name of the port, such as "Ramp.Out".
func (p *Port) Name() string {
	return p.name
}

// Owner returns the actor or composite that owns the port.
func (p *Port) Owner() naming.Named {
	return p.owner
}

// Direction returns whether the port is an input or an output of its owner.
func (p *Port) Direction() Direction {
	return p.dir
}

// IsBoundary tells whether the port is on the boundary of a composite.
func (p *Port) IsBoundary() bool {
	return p.boundary
}

// IsSource tells whether the port produces data inside its composite. Actor
// outputs and composite boundary inputs are sources.
func (p *Port) IsSource() bool {
	return (p.dir == Output) != p.boundary
}

// Declaration returns the array parameters of the port.
func (p *Port) Declaration() Declaration {
	return p.decl
}

// SetDeclaration replaces the array parameters. It takes effect the next time
// a schedule is built.
func (p *Port) SetDeclaration(decl Declaration) {
	p.decl = decl
}

// Edge returns the buffer a source port writes into, or nil before the
// receivers are created.
func (p *Port) Edge() *array.Edge {
	return p.edge
}

// Receiver returns the read view of a sink port, or nil before the receivers
// are created.
func (p *Port) Receiver() *array.Receiver {
	return p.receiver
}

// Put writes one token through a source port.
func (p *Port) Put(tok array.Token) error {
	p.mustBeSource()

	if p.edge == nil {
		return fmt.Errorf("%s: port is not connected", p.name)
	}

	return p.edge.Put(tok)
}

// HasRoom tells whether a source port can take n more tokens.
func (p *Port) HasRoom(n int) bool {
	p.mustBeSource()

	return p.edge != nil && p.edge.HasRoom(n)
}

// Get reads one token from a sink port.
func (p *Port) Get() (array.Token, error) {
	p.mustBeSink()

	if p.receiver == nil {
		return nil, fmt.Errorf("%s: port is not connected", p.name)
	}

	return p.receiver.Get()
}

// HasToken tells whether a sink port can deliver n more tokens.
func (p *Port) HasToken(n int) bool {
	p.mustBeSink()

	return p.receiver != nil && p.receiver.HasToken(n)
}

// TokensPerFiring returns how many tokens one firing moves through the port
// under the current configuration. On a sink port it fails with the
// receiver's error when the read side cannot be set up against the edge,
// such as a dimension the producer does not write.
func (p *Port) TokensPerFiring() (int, error) {
	if p.IsSource() {
		if p.edge == nil {
			return 0, fmt.Errorf("%s: port is not connected", p.name)
		}

		if !p.edge.Configured() {
			return 0, &array.Error{
				Kind:   array.EmptyReceiver,
				Where:  p.name,
				Reason: "buffer not configured",
			}
		}

		return p.edge.WriteLayout().Spec.FiringSize(), nil
	}

	if p.receiver == nil {
		return 0, fmt.Errorf("%s: port is not connected", p.name)
	}

	if err := p.receiver.Ready(); err != nil {
		return 0, err
	}

	return p.receiver.ReadLayout().Spec.FiringSize(), nil
}

func (p *Port) mustBeSource() {
	if !p.IsSource() {
		log.Panicf("%s is not a source port", p.name)
	}
}

func (p *Port) mustBeSink() {
	if p.IsSource() {
		log.Panicf("%s is not a sink port", p.name)
	}
}
