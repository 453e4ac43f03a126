package dataflow

import (
	"fmt"
	"os"

	"github.com/sarchlab/arrayflow/naming"
)

// An Actor is fired by a director. Each firing reads one pattern from every
// input and writes one pattern to every output.
type Actor interface {
	naming.Named

	Inputs() []*Port
	Outputs() []*Port

	// Repetitions returns the declared repetition counts, e.g. "[2,3]".
	Repetitions() string

	Fire() error
}

// An Initializer is an actor that needs to be set up before a run.
type Initializer interface {
	Initialize() error
}

// ActorBase provides the port bookkeeping that actors share.
type ActorBase struct {
	naming.NamedBase

	repetitions string
	inputs      []*Port
	outputs     []*Port
	ports       map[string]*Port
}

// NewActorBase creates a new ActorBase.
func NewActorBase(name string) *ActorBase {
	return &ActorBase{
		NamedBase: naming.MakeNamedBase(name),
		ports:     make(map[string]*Port),
	}
}

// AddInput creates an input port.
func (a *ActorBase) AddInput(name string, decl Declaration) *Port {
	p := a.addPort(name, Input, decl)
	a.inputs = append(a.inputs, p)

	return p
}

// AddOutput creates an output port.
func (a *ActorBase) AddOutput(name string, decl Declaration) *Port {
	p := a.addPort(name, Output, decl)
	a.outputs = append(a.outputs, p)

	return p
}

func (a *ActorBase) addPort(name string, dir Direction, decl Declaration) *Port {
	if _, found := a.ports[name]; found {
		panic("port " + name + " already exists on " + a.Name())
	}

	p := newPort(a, name, dir, false, decl)
	a.ports[name] = p

	return p
}

// Port returns the port with the given short name.
func (a *ActorBase) Port(name string) *Port {
	p, found := a.ports[name]
	if !found {
		errMsg := fmt.Sprintf(
			"Port %s is not available on actor %s.\n", name, a.Name())
		errMsg += "Available ports include:\n"

		for n := range a.ports {
			errMsg += fmt.Sprintf("\t%s\n", n)
		}

		fmt.Fprint(os.Stderr, errMsg)

		panic("port not found")
	}

	return p
}

// Inputs returns the input ports in creation order.
func (a *ActorBase) Inputs() []*Port {
	return a.inputs
}

// Outputs returns the output ports in creation order.
func (a *ActorBase) Outputs() []*Port {
	return a.outputs
}

// SetRepetitions declares the repetition counts, e.g. "[2,3]".
func (a *ActorBase) SetRepetitions(decl string) {
	a.repetitions = decl
}

// Repetitions returns the declared repetition counts.
func (a *ActorBase) Repetitions() string {
	return a.repetitions
}
