package array

import (
	"github.com/sarchlab/arrayflow/hooking"
)

// A Receiver is the read view of an edge held by one consuming port. It keeps
// its own addressing parameters and read position; the tokens stay in the
// edge's buffer.
type Receiver struct {
	hooking.HookableBase

	name string
	edge *Edge

	spec       *Spec
	read       Layout
	readEpoch  int
	readPos    int
	headerRead int
}

// Name returns the name of the consuming port.
func (r *Receiver) Name() string {
	return r.name
}

// Edge returns the edge the receiver reads from.
func (r *Receiver) Edge() *Edge {
	return r.edge
}

// SetInputArray installs the consumer's addressing. The consumer's dimensions
// must be known to the producer and both sides must agree on the tokens per
// data. A spec without a pattern reads the whole array in one firing, in the
// order the edge stores it. On a dynamic edge that has not seen a header yet, the checks happen
// when the header arrives.
func (r *Receiver) SetInputArray(spec *Spec) error {
	if spec == nil {
		return newError(InvalidSpec, r.name, "no input spec")
	}

	if len(spec.Pattern) > 0 {
		if err := spec.Validate(); err != nil {
			return newError(InvalidSpec, r.name, "%v", err)
		}
	}

	r.spec = spec.Clone()
	r.readEpoch = 0
	r.edge.pairInput(r, spec)

	if !r.edge.configured {
		return nil
	}

	return r.refresh()
}

// refresh rebuilds the read layout against the edge's current shape.
func (r *Receiver) refresh() error {
	if r.readEpoch == r.edge.epoch {
		return nil
	}

	spec := r.spec
	producer := r.edge.write.Spec

	if len(spec.Pattern) == 0 {
		spec = r.wholeArray(spec.Base, producer.TokensPerData)
	}

	if spec.TokensPerData != producer.TokensPerData {
		return newError(InvalidSpec, r.name,
			"reads %d tokens per data, producer %s writes %d",
			spec.TokensPerData, r.edge.name, producer.TokensPerData)
	}

	if missing := r.edge.jumps.Missing(spec); missing != "" {
		return newError(InvalidSpec, r.name,
			"dimension %q is not produced by %s", missing, r.edge.name)
	}

	r.read = NewLayout(spec, r.edge.jumps)
	r.readEpoch = r.edge.epoch

	return nil
}

// wholeArray is the spec of a receiver without a pattern: one firing reads
// the edge's whole array in storage order.
func (r *Receiver) wholeArray(base map[string]int, tokensPerData int) *Spec {
	pattern := make([]Axis, len(r.edge.order))
	for i, d := range r.edge.order {
		pattern[i] = Axis{Name: d, Extent: r.edge.sizes[d], Stride: 1}
	}

	return &Spec{
		Base:          base,
		Pattern:       pattern,
		TokensPerData: tokensPerData,
	}
}

// Ready reports why the receiver cannot be read yet, or nil once its read
// layout matches the edge's current shape.
func (r *Receiver) Ready() error {
	return r.ready()
}

func (r *Receiver) ready() error {
	if r.spec == nil {
		return newError(EmptyReceiver, r.name, "input array not set")
	}

	if !r.edge.configured {
		return newError(EmptyReceiver, r.name, "buffer not configured")
	}

	return r.refresh()
}

// ReadLayout returns the consumer's current layout.
func (r *Receiver) ReadLayout() Layout {
	return r.read
}

// Shape returns the shape of the data the receiver reads. On a dynamic edge
// it is the shape of the last header.
func (r *Receiver) Shape() (Shape, bool) {
	if !r.edge.configured {
		return Shape{}, false
	}

	s := Shape{TokensPerData: r.edge.write.Spec.TokensPerData}
	for _, d := range r.edge.order {
		s.Dims = append(s.Dims, DimSize{Name: d, Size: r.edge.sizes[d]})
	}

	return s, true
}

// HasToken tells whether the next n gets stay inside the buffer.
func (r *Receiver) HasToken(n int) bool {
	if r.ready() != nil {
		return false
	}

	return r.read.Fits(r.readPos, n, r.edge.Len())
}

// Get reads the token at the next read position. Header tokens of a dynamic
// edge are skipped and never returned.
func (r *Receiver) Get() (Token, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	r.drainHeader()

	addr := r.read.Address(r.readPos)
	if addr < 0 || addr >= r.edge.Len() {
		return nil, outOfRange(r.name, r.readPos, addr, r.edge.Len())
	}

	tok := r.edge.arena.Load(r.edge.handle, addr)

	if r.NumHooks() > 0 {
		r.InvokeHook(hooking.HookCtx{
			Domain: r,
			Pos:    HookPosGet,
			Item:   tok,
			Detail: addr,
		})
	}

	r.readPos++

	return tok, nil
}

func (r *Receiver) drainHeader() {
	header := r.edge.header()
	if r.headerRead >= len(header) {
		return
	}

	if r.NumHooks() > 0 {
		for _, t := range header[r.headerRead:] {
			r.InvokeHook(hooking.HookCtx{
				Domain: r,
				Pos:    HookPosHeader,
				Item:   t,
			})
		}
	}

	r.headerRead = len(header)
}

// HasRoom tells whether the producer can put n more tokens.
func (r *Receiver) HasRoom(n int) bool {
	return r.edge.HasRoom(n)
}

// Put writes through the edge. With several receivers on one edge, the
// token is written once and seen by all of them.
func (r *Receiver) Put(tok Token) error {
	return r.edge.Put(tok)
}

// Reset moves both the read and the write position back to the start.
func (r *Receiver) Reset() {
	r.readPos = 0
	r.headerRead = 0
	r.edge.Reset()
}

// Clear does nothing. Buffer content persists across iterations because
// several firings share it.
func (r *Receiver) Clear() {}

// ReadPosition returns the number of tokens read since the last reset.
func (r *Receiver) ReadPosition() int {
	return r.readPos
}

// ReceiverState is a serializable view of a receiver.
type ReceiverState struct {
	Name         string
	ReadPosition int
	Origin       int
	HeaderRead   int
}

// State captures the current receiver state.
func (r *Receiver) State() ReceiverState {
	return ReceiverState{
		Name:         r.name,
		ReadPosition: r.readPos,
		Origin:       r.read.Origin,
		HeaderRead:   r.headerRead,
	}
}
