package array

import (
	"log"

	"github.com/sarchlab/arrayflow/hooking"
	"github.com/sarchlab/arrayflow/naming"
)

var (
	// HookPosPut marks when a token is written into a buffer.
	HookPosPut = &hooking.HookPos{Name: "Array Put"}

	// HookPosGet marks when a token is read from a buffer.
	HookPosGet = &hooking.HookPos{Name: "Array Get"}

	// HookPosHeader marks when a dynamic edge takes a header token.
	HookPosHeader = &hooking.HookPos{Name: "Array Header"}

	// HookPosReconfigure marks when an edge installs a new shape.
	HookPosReconfigure = &hooking.HookPos{Name: "Array Reconfigure"}
)

// Mode tells how an edge learns its shape.
type Mode int

// Configuration modes.
const (
	// Static edges are shaped from port declarations before execution.
	Static Mode = iota

	// Dynamic edges are shaped by a header at the head of the data stream.
	Dynamic
)

func (m Mode) String() string {
	if m == Dynamic {
		return "dynamic"
	}

	return "static"
}

type edgeConfig interface {
	mode() Mode
}

type staticConfig struct{}

func (*staticConfig) mode() Mode { return Static }

type dynamicConfig struct {
	header    headerState
	mirror    []Token
	streaming bool
	inputBase map[string]int
}

func (*dynamicConfig) mode() Mode { return Dynamic }

// OutputShape is what a producer declares about the array it writes.
type OutputShape struct {
	// Spec is the producer's own addressing.
	Spec *Spec

	// Order fixes the jump table; the first dimension varies fastest.
	Order []string

	// Sizes gives the array size along each dimension of Order.
	Sizes map[string]int
}

// An Edge is the producer side of a communication channel. It owns the
// buffer handle, the jump table and the write position. All receivers of the
// edge read the same buffer.
type Edge struct {
	hooking.HookableBase

	name   string
	arena  *Arena
	handle BufferHandle

	config     edgeConfig
	configured bool
	epoch      int

	order    []string
	sizes    map[string]int
	jumps    JumpTable
	write    Layout
	writePos int

	receivers []*Receiver
}

// NewEdge creates an unconfigured static edge whose buffer lives in arena.
func NewEdge(name string, arena *Arena) *Edge {
	naming.NameMustBeValid(name)

	return &Edge{
		name:   name,
		arena:  arena,
		handle: arena.Allocate(name),
		config: &staticConfig{},
	}
}

// Name returns the name of the edge, which is the name of the producing port.
func (e *Edge) Name() string {
	return e.name
}

// Mode returns the configuration mode.
func (e *Edge) Mode() Mode {
	return e.config.mode()
}

// SetDynamic switches between static and dynamic configuration. Switching
// drops the current shape.
func (e *Edge) SetDynamic(dynamic bool) {
	if dynamic == (e.Mode() == Dynamic) {
		return
	}

	if dynamic {
		e.config = &dynamicConfig{}
	} else {
		e.config = &staticConfig{}
	}

	e.configured = false
	e.writePos = 0
}

// Configured tells whether the edge has a shape.
func (e *Edge) Configured() bool {
	return e.configured
}

// Epoch counts the shapes installed so far.
func (e *Edge) Epoch() int {
	return e.epoch
}

// Handle returns the buffer handle.
func (e *Edge) Handle() BufferHandle {
	return e.handle
}

// Arena returns the arena that owns the buffer.
func (e *Edge) Arena() *Arena {
	return e.arena
}

// Jumps returns the jump table of the current shape.
func (e *Edge) Jumps() JumpTable {
	return e.jumps
}

// Order returns the dimension order of the current shape.
func (e *Edge) Order() []string {
	return e.order
}

// Sizes returns the dimension sizes of the current shape.
func (e *Edge) Sizes() map[string]int {
	return e.sizes
}

// WriteLayout returns the producer's layout.
func (e *Edge) WriteLayout() Layout {
	return e.write
}

// Len returns the logical length of the buffer.
func (e *Edge) Len() int {
	return e.arena.Len(e.handle)
}

// Receivers returns the receivers reading this edge.
func (e *Edge) Receivers() []*Receiver {
	return e.receivers
}

// NewReceiver creates a read view of the edge for a consuming port.
func (e *Edge) NewReceiver(name string) *Receiver {
	naming.NameMustBeValid(name)

	r := &Receiver{
		name: name,
		edge: e,
	}
	e.receivers = append(e.receivers, r)

	return r
}

// SetOutputArray installs the producer's shape. Dynamic edges only restart
// their header cycle; the shape arrives with the data.
func (e *Edge) SetOutputArray(shape OutputShape) error {
	if cfg, ok := e.config.(*dynamicConfig); ok {
		cfg.header.clear()
		cfg.streaming = false
		e.writePos = 0

		return nil
	}

	if shape.Spec == nil {
		return newError(InvalidSpec, e.name, "no output spec")
	}

	if err := shape.Spec.Validate(); err != nil {
		return newError(InvalidSpec, e.name, "%v", err)
	}

	length := shape.Spec.TokensPerData
	for _, d := range shape.Order {
		n, ok := shape.Sizes[d]
		if !ok || n < 1 {
			return newError(InvalidSpec, e.name,
				"dimension %q has no positive size", d)
		}

		length *= n
	}

	jumps := ComputeJumpTable(shape.Order, shape.Sizes)
	if missing := jumps.Missing(shape.Spec); missing != "" {
		return newError(InvalidSpec, e.name,
			"dimension %q is not in the dimension order", missing)
	}

	e.install(shape.Order, shape.Sizes, jumps, shape.Spec, length)

	return nil
}

func (e *Edge) install(
	order []string,
	sizes map[string]int,
	jumps JumpTable,
	spec *Spec,
	minLength int,
) {
	write := NewLayout(spec, jumps)

	length := minLength
	if end := write.Origin + spec.FiringSize(); end > length {
		length = end
	}

	e.arena.Resize(e.handle, length)

	e.order = append([]string(nil), order...)
	e.sizes = sizes
	e.jumps = jumps
	e.write = write
	e.writePos = 0
	e.configured = true
	e.epoch++

	if e.NumHooks() > 0 {
		e.InvokeHook(hooking.HookCtx{
			Domain: e,
			Pos:    HookPosReconfigure,
			Item:   e.order,
			Detail: length,
		})
	}
}

// pairInput records the base of the first consumer so that a dynamic
// producer writes where that consumer reads. Later receivers only fill the
// base in while the first one has not set its input array. The next header
// lays the array out at the recorded base.
func (e *Edge) pairInput(r *Receiver, spec *Spec) {
	cfg, ok := e.config.(*dynamicConfig)
	if !ok {
		return
	}

	if cfg.inputBase != nil && r != e.receivers[0] {
		return
	}

	cfg.inputBase = make(map[string]int, len(spec.Base))
	for d, b := range spec.Base {
		cfg.inputBase[d] = b
	}
}

// HasRoom tells whether the next n puts stay inside the buffer.
func (e *Edge) HasRoom(n int) bool {
	if cfg, ok := e.config.(*dynamicConfig); ok && !cfg.streaming {
		return true
	}

	if !e.configured {
		return false
	}

	return e.write.Fits(e.writePos, n, e.Len())
}

// Put writes one token at the next write position.
func (e *Edge) Put(tok Token) error {
	switch cfg := e.config.(type) {
	case *staticConfig:
		if !e.configured {
			return newError(EmptyReceiver, e.name, "buffer not configured")
		}
	case *dynamicConfig:
		if !cfg.streaming {
			return e.takeHeader(cfg, tok)
		}
	default:
		log.Panicf("unknown edge config %T", cfg)
	}

	return e.store(tok)
}

func (e *Edge) store(tok Token) error {
	addr := e.write.Address(e.writePos)
	if addr < 0 || addr >= e.Len() {
		return outOfRange(e.name, e.writePos, addr, e.Len())
	}

	e.arena.Store(e.handle, addr, tok)

	if e.NumHooks() > 0 {
		e.InvokeHook(hooking.HookCtx{
			Domain: e,
			Pos:    HookPosPut,
			Item:   tok,
			Detail: addr,
		})
	}

	e.writePos++

	return nil
}

func (e *Edge) takeHeader(cfg *dynamicConfig, tok Token) error {
	if err := cfg.header.push(tok); err != nil {
		cfg.header.clear()
		return newError(MalformedHeader, e.name, "%v", err)
	}

	if e.NumHooks() > 0 {
		e.InvokeHook(hooking.HookCtx{
			Domain: e,
			Pos:    HookPosHeader,
			Item:   tok,
		})
	}

	if !cfg.header.full() {
		return nil
	}

	shape, err := DecodeHeader(cfg.header.queue)
	if err != nil {
		cfg.header.clear()
		return newError(MalformedHeader, e.name, "%v", err)
	}

	cfg.mirror = append([]Token(nil), cfg.header.queue...)
	cfg.header.clear()
	cfg.streaming = true

	e.installHeaderShape(cfg, shape)

	return nil
}

// installHeaderShape lays the array out in header order with a trivial
// pattern. A single tiling step along the last dimension moves past the end
// of the array, so HasRoom turns false once the array is written.
func (e *Edge) installHeaderShape(cfg *dynamicConfig, shape Shape) {
	order := make([]string, len(shape.Dims))
	sizes := make(map[string]int, len(shape.Dims))
	pattern := make([]Axis, len(shape.Dims))

	for i, d := range shape.Dims {
		order[i] = d.Name
		sizes[d.Name] = d.Size
		pattern[i] = Axis{Name: d.Name, Extent: d.Size, Stride: 1}
	}

	last := shape.Dims[len(shape.Dims)-1]
	spec := &Spec{
		Base:          cfg.inputBase,
		Pattern:       pattern,
		Tiling:        []Axis{{Name: last.Name, Extent: 1, Stride: last.Size}},
		Repetitions:   []int{1},
		TokensPerData: shape.TokensPerData,
	}

	jumps := ComputeJumpTable(order, sizes)
	e.install(order, sizes, jumps, spec, shape.PatternSize()*shape.TokensPerData)
}

// header returns the last complete header of a dynamic edge.
func (e *Edge) header() []Token {
	if cfg, ok := e.config.(*dynamicConfig); ok {
		return cfg.mirror
	}

	return nil
}

// Reset moves the write position back to the start. A dynamic edge expects a
// new header afterwards. The buffer is untouched.
func (e *Edge) Reset() {
	e.writePos = 0

	if cfg, ok := e.config.(*dynamicConfig); ok {
		cfg.header.clear()
		cfg.streaming = false
	}
}

// WritePosition returns the number of data tokens written since the last
// reset.
func (e *Edge) WritePosition() int {
	return e.writePos
}

// Snapshot returns a copy of the buffer content.
func (e *Edge) Snapshot() []Token {
	return e.arena.Snapshot(e.handle)
}

// EdgeState is a serializable view of an edge for monitoring.
type EdgeState struct {
	Name          string
	Mode          string
	Configured    bool
	Epoch         int
	Order         []string
	Sizes         map[string]int
	Jumps         map[string]int
	TokensPerData int
	Length        int
	Capacity      int
	WritePosition int
	Receivers     []ReceiverState
}

// State captures the current edge state.
func (e *Edge) State() EdgeState {
	s := EdgeState{
		Name:          e.name,
		Mode:          e.Mode().String(),
		Configured:    e.configured,
		Epoch:         e.epoch,
		Order:         e.order,
		Sizes:         e.sizes,
		Jumps:         e.jumps,
		Length:        e.Len(),
		Capacity:      e.arena.Cap(e.handle),
		WritePosition: e.writePos,
	}

	if e.write.Spec != nil {
		s.TokensPerData = e.write.Spec.TokensPerData
	}

	for _, r := range e.receivers {
		s.Receivers = append(s.Receivers, r.State())
	}

	return s
}
