package array

import "log"

// A BufferHandle refers to one buffer inside an Arena.
type BufferHandle int

// NoBuffer is the handle of an edge that has no storage yet.
const NoBuffer BufferHandle = -1

type buffer struct {
	name   string
	data   []Token
	length int
}

// An Arena owns the storage of all edge buffers of a composite. Edges and
// receivers only hold handles into it.
type Arena struct {
	buffers []buffer
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Allocate registers a new, empty buffer.
func (a *Arena) Allocate(name string) BufferHandle {
	a.buffers = append(a.buffers, buffer{name: name})

	return BufferHandle(len(a.buffers) - 1)
}

func (a *Arena) buf(h BufferHandle) *buffer {
	if h < 0 || int(h) >= len(a.buffers) {
		log.Panicf("invalid buffer handle %d", h)
	}

	return &a.buffers[h]
}

// Resize sets the logical length of a buffer. Storage only grows; existing
// tokens are preserved.
func (a *Arena) Resize(h BufferHandle, length int) {
	b := a.buf(h)

	if length > len(b.data) {
		grown := make([]Token, length)
		copy(grown, b.data)
		b.data = grown
	}

	b.length = length
}

// Len returns the logical length of a buffer.
func (a *Arena) Len(h BufferHandle) int {
	return a.buf(h).length
}

// Cap returns the allocated storage of a buffer.
func (a *Arena) Cap(h BufferHandle) int {
	return len(a.buf(h).data)
}

// Name returns the name the buffer was allocated with.
func (a *Arena) Name(h BufferHandle) string {
	return a.buf(h).name
}

// Load reads one token. The address must be inside the logical length.
func (a *Arena) Load(h BufferHandle, addr int) Token {
	b := a.buf(h)
	if addr < 0 || addr >= b.length {
		log.Panicf("buffer %s: load at %d outside [0, %d)",
			b.name, addr, b.length)
	}

	return b.data[addr]
}

// Store writes one token. The address must be inside the logical length.
func (a *Arena) Store(h BufferHandle, addr int, tok Token) {
	b := a.buf(h)
	if addr < 0 || addr >= b.length {
		log.Panicf("buffer %s: store at %d outside [0, %d)",
			b.name, addr, b.length)
	}

	b.data[addr] = tok
}

// Snapshot copies the logical content of a buffer.
func (a *Arena) Snapshot(h BufferHandle) []Token {
	b := a.buf(h)

	return append([]Token(nil), b.data[:b.length]...)
}

// NumBuffers returns how many buffers were allocated.
func (a *Arena) NumBuffers() int {
	return len(a.buffers)
}
