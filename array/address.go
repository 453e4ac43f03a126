package array

// A Role selects which side of an edge an address is computed for.
type Role int

// Roles of a port on an edge.
const (
	Read Role = iota
	Write
)

func (r Role) String() string {
	if r == Write {
		return "write"
	}

	return "read"
}

// JumpTable maps a dimension to the linear distance between two neighbouring
// elements along it.
type JumpTable map[string]int

// ComputeJumpTable builds the jump table of a producer. The first dimension
// of order varies fastest: jump[order[i]] is the product of the sizes of all
// dimensions before it.
func ComputeJumpTable(order []string, sizes map[string]int) JumpTable {
	jumps := make(JumpTable, len(order))
	stride := 1

	for _, d := range order {
		if d == EmptyDimension {
			continue
		}

		jumps[d] = stride

		if n := sizes[d]; n > 0 {
			stride *= n
		}
	}

	return jumps
}

// Missing returns the first dimension used by spec that the table does not
// know, or "" if all are covered.
func (j JumpTable) Missing(spec *Spec) string {
	for _, a := range spec.Pattern {
		if _, ok := j[a.Name]; !ok && a.Name != EmptyDimension {
			return a.Name
		}
	}

	for _, a := range spec.Tiling {
		if _, ok := j[a.Name]; !ok && a.Name != EmptyDimension {
			return a.Name
		}
	}

	return ""
}

// Origin returns the linear offset of the first token a port accesses. A
// dimension without a declared base contributes nothing.
func Origin(spec *Spec, jumps JumpTable) int {
	origin := 0

	for d, b := range spec.Base {
		if d == EmptyDimension {
			continue
		}

		origin += b * jumps[d] * spec.TokensPerData
	}

	return origin
}

// Address maps the position-th token accessed through spec to a buffer
// offset. The position is decomposed into a token inside an element, an
// element inside the pattern and a firing inside the tiling. Pattern and
// tiling indices are unranked in mixed radix with the first axis fastest; the
// last axis takes whatever is left. Without a tiling, elements past the
// pattern continue along the last pattern axis.
func Address(position int, spec *Spec, jumps JumpTable, origin int) int {
	tpd := spec.TokensPerData
	numToken := position % tpd
	element := position / tpd

	dimIndex, rep := element, 0
	if len(spec.Tiling) > 0 {
		patternSize := spec.PatternSize()
		dimIndex = element % patternSize
		rep = element / patternSize
	}

	jumpDim := 0
	last := len(spec.Pattern) - 1

	for i, a := range spec.Pattern {
		idx := dimIndex
		if i < last {
			idx = dimIndex % a.Extent
			dimIndex /= a.Extent
		}

		if a.Name != EmptyDimension {
			jumpDim += a.Stride * idx * jumps[a.Name] * tpd
		}
	}

	jumpRep := 0
	last = len(spec.Tiling) - 1

	for i, a := range spec.Tiling {
		idx := rep
		if i < last {
			idx = rep % spec.Repetitions[i]
			rep /= spec.Repetitions[i]
		}

		if a.Name != EmptyDimension {
			jumpRep += a.Stride * idx * jumps[a.Name] * tpd
		}
	}

	return origin + jumpDim + jumpRep + numToken
}

// A Layout is everything one side of an edge needs to compute addresses.
type Layout struct {
	Spec   *Spec
	Jumps  JumpTable
	Origin int
}

// NewLayout builds a layout and computes its origin.
func NewLayout(spec *Spec, jumps JumpTable) Layout {
	return Layout{
		Spec:   spec,
		Jumps:  jumps,
		Origin: Origin(spec, jumps),
	}
}

// Address returns the buffer offset of the position-th token.
func (l Layout) Address(position int) int {
	return Address(position, l.Spec, l.Jumps, l.Origin)
}

// Fits tells whether the n tokens starting at position all land inside a
// buffer of the given length.
func (l Layout) Fits(position, n, length int) bool {
	for k := 0; k < n; k++ {
		addr := l.Address(position + k)
		if addr < 0 || addr >= length {
			return false
		}
	}

	return true
}
