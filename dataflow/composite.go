package dataflow

import (
	"fmt"
	"log"

	"github.com/sarchlab/arrayflow/array"
	"github.com/sarchlab/arrayflow/naming"
)

// A Connection links a source port to a sink port.
type Connection struct {
	From *Port
	To   *Port
}

// A ReceiverFactory creates the buffers behind the connections of a
// composite.
type ReceiverFactory interface {
	NewEdge(source *Port) *array.Edge
	NewReceiver(edge *array.Edge, sink *Port) *array.Receiver
}

// ArenaReceiverFactory allocates every edge of a composite from one arena.
type ArenaReceiverFactory struct {
	Arena *array.Arena
}

// NewArenaReceiverFactory creates a factory backed by a fresh arena.
func NewArenaReceiverFactory() *ArenaReceiverFactory {
	return &ArenaReceiverFactory{Arena: array.NewArena()}
}

// NewEdge allocates the buffer written by source.
func (f *ArenaReceiverFactory) NewEdge(source *Port) *array.Edge {
	return array.NewEdge(source.Name(), f.Arena)
}

// NewReceiver creates the view sink reads through.
func (f *ArenaReceiverFactory) NewReceiver(
	edge *array.Edge,
	sink *Port,
) *array.Receiver {
	return edge.NewReceiver(sink.Name())
}

// A Composite is a graph of actors with boundary ports.
type Composite struct {
	naming.NamedBase

	actors      []Actor
	actorByName map[string]Actor
	inputs      []*Port
	outputs     []*Port
	ports       map[string]*Port
	connections []Connection
	producer    map[*Port]*Port
}

// NewComposite creates an empty composite.
func NewComposite(name string) *Composite {
	return &Composite{
		NamedBase:   naming.MakeNamedBase(name),
		actorByName: make(map[string]Actor),
		ports:       make(map[string]*Port),
		producer:    make(map[*Port]*Port),
	}
}

// AddActor adds an actor to the composite and binds its ports to it.
func (c *Composite) AddActor(a Actor) {
	if _, found := c.actorByName[a.Name()]; found {
		log.Panicf("actor %s already exists in %s", a.Name(), c.Name())
	}

	for _, p := range a.Inputs() {
		p.owner = a
	}

	for _, p := range a.Outputs() {
		p.owner = a
	}

	c.actors = append(c.actors, a)
	c.actorByName[a.Name()] = a
}

// AddInput creates a boundary input port. Inside the composite it acts as a
// source.
func (c *Composite) AddInput(name string, decl Declaration) *Port {
	p := c.addPort(name, Input, decl)
	c.inputs = append(c.inputs, p)

	return p
}

// AddOutput creates a boundary output port. Inside the composite it acts as
// a sink.
func (c *Composite) AddOutput(name string, decl Declaration) *Port {
	p := c.addPort(name, Output, decl)
	c.outputs = append(c.outputs, p)

	return p
}

func (c *Composite) addPort(name string, dir Direction, decl Declaration) *Port {
	if _, found := c.ports[name]; found {
		log.Panicf("port %s already exists on %s", name, c.Name())
	}

	p := newPort(c, name, dir, true, decl)
	c.ports[name] = p

	return p
}

// Port returns the boundary port with the given short name, or nil.
func (c *Composite) Port(name string) *Port {
	return c.ports[name]
}

// Connect links a source port to a sink port. A sink has at most one
// producer; a source may feed several sinks.
func (c *Composite) Connect(from, to *Port) {
	if !from.IsSource() {
		log.Panicf("cannot connect from %s: not a source", from.Name())
	}

	if to.IsSource() {
		log.Panicf("cannot connect to %s: not a sink", to.Name())
	}

	if p, found := c.producer[to]; found {
		log.Panicf("%s is already fed by %s", to.Name(), p.Name())
	}

	c.connections = append(c.connections, Connection{From: from, To: to})
	c.producer[to] = from
}

// Actors returns the actors in the order they were added.
func (c *Composite) Actors() []Actor {
	return c.actors
}

// Actor returns the actor with the given name, or nil.
func (c *Composite) Actor(name string) Actor {
	return c.actorByName[name]
}

// Inputs returns the boundary input ports.
func (c *Composite) Inputs() []*Port {
	return c.inputs
}

// Outputs returns the boundary output ports.
func (c *Composite) Outputs() []*Port {
	return c.outputs
}

// Connections returns all connections in the order they were made.
func (c *Composite) Connections() []Connection {
	return c.connections
}

// Producer returns the source port that feeds sink, or nil.
func (c *Composite) Producer(sink *Port) *Port {
	return c.producer[sink]
}

// Consumers returns the sink ports fed by source.
func (c *Composite) Consumers(source *Port) []*Port {
	var sinks []*Port

	for _, conn := range c.connections {
		if conn.From == source {
			sinks = append(sinks, conn.To)
		}
	}

	return sinks
}

// SinkPorts returns every port that reads inside the composite: actor inputs
// followed by boundary outputs.
func (c *Composite) SinkPorts() []*Port {
	var sinks []*Port

	for _, a := range c.actors {
		sinks = append(sinks, a.Inputs()...)
	}

	return append(sinks, c.outputs...)
}

// SourcePorts returns every port that writes inside the composite: boundary
// inputs followed by actor outputs.
func (c *Composite) SourcePorts() []*Port {
	sources := append([]*Port(nil), c.inputs...)

	for _, a := range c.actors {
		sources = append(sources, a.Outputs()...)
	}

	return sources
}

// Successors returns the actors that read data written by a, each once, in
// connection order.
func (c *Composite) Successors(a Actor) []Actor {
	var succ []Actor

	seen := make(map[string]bool)

	for _, conn := range c.connections {
		if conn.From.Owner() != naming.Named(a) {
			continue
		}

		next, ok := conn.To.Owner().(Actor)
		if !ok || seen[next.Name()] {
			continue
		}

		seen[next.Name()] = true
		succ = append(succ, next)
	}

	return succ
}

// CreateReceivers builds an edge for every connected source and a receiver
// for every connected sink. Calling it again replaces them.
func (c *Composite) CreateReceivers(f ReceiverFactory) {
	for _, p := range c.SourcePorts() {
		p.edge = nil
	}

	for _, p := range c.SinkPorts() {
		p.receiver = nil
	}

	for _, conn := range c.connections {
		src := conn.From
		if src.edge == nil {
			src.edge = f.NewEdge(src)
		}

		conn.To.receiver = f.NewReceiver(src.edge, conn.To)
	}
}

// Edges returns the edges created for the composite.
func (c *Composite) Edges() []*array.Edge {
	var edges []*array.Edge

	for _, p := range c.SourcePorts() {
		if p.edge != nil {
			edges = append(edges, p.edge)
		}
	}

	return edges
}

// Receivers returns the receivers created for the composite.
func (c *Composite) Receivers() []*array.Receiver {
	var receivers []*array.Receiver

	for _, p := range c.SinkPorts() {
		if p.receiver != nil {
			receivers = append(receivers, p.receiver)
		}
	}

	return receivers
}

// OwnerActor returns the actor that owns p, or nil for boundary ports.
func OwnerActor(p *Port) Actor {
	a, ok := p.Owner().(Actor)
	if !ok {
		return nil
	}

	return a
}

// MustFindPort resolves a full port name such as "Ramp.Out" or "Pipeline.In".
func (c *Composite) MustFindPort(fullName string) *Port {
	p, err := c.FindPort(fullName)
	if err != nil {
		log.Panic(err)
	}

	return p
}

// FindPort resolves a full port name such as "Ramp.Out" or "Pipeline.In".
func (c *Composite) FindPort(fullName string) (*Port, error) {
	for _, p := range c.SourcePorts() {
		if p.Name() == fullName {
			return p, nil
		}
	}

	for _, p := range c.SinkPorts() {
		if p.Name() == fullName {
			return p, nil
		}
	}

	return nil, fmt.Errorf("port %s not found in %s", fullName, c.Name())
}
