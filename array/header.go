package array

import (
	"fmt"
	"math"
)

// A DimSize is one (name, size) pair of a dynamic header.
type DimSize struct {
	Name string
	Size int
}

// Shape is the array shape carried by a dynamic header.
type Shape struct {
	TokensPerData int
	Dims          []DimSize
}

// PatternSize returns the number of elements of the shape.
func (s Shape) PatternSize() int {
	n := 1
	for _, d := range s.Dims {
		n *= d.Size
	}

	return n
}

// HeaderSize returns the number of header tokens for nDims dimensions.
func HeaderSize(nDims int) int {
	return 2*nDims + 2
}

// EncodeHeader returns the tokens a dynamic producer sends before its data:
// [nDims, tokensPerData, name0, size0, name1, size1, ...].
func EncodeHeader(s Shape) []Token {
	tokens := make([]Token, 0, HeaderSize(len(s.Dims)))
	tokens = append(tokens, len(s.Dims), s.TokensPerData)

	for _, d := range s.Dims {
		tokens = append(tokens, d.Name, d.Size)
	}

	return tokens
}

// DecodeHeader parses a complete header.
func DecodeHeader(tokens []Token) (Shape, error) {
	if len(tokens) < 2 {
		return Shape{}, fmt.Errorf("header has %d tokens, need at least 2",
			len(tokens))
	}

	nDims, ok := tokenToInt(tokens[0])
	if !ok || nDims < 1 {
		return Shape{}, fmt.Errorf("dimension count %v is not a positive "+
			"integer", tokens[0])
	}

	if len(tokens) != HeaderSize(nDims) {
		return Shape{}, fmt.Errorf("header of %d dimensions needs %d tokens, "+
			"got %d", nDims, HeaderSize(nDims), len(tokens))
	}

	tpd, ok := tokenToInt(tokens[1])
	if !ok || tpd < 1 {
		return Shape{}, fmt.Errorf("tokens per data %v is not a positive "+
			"integer", tokens[1])
	}

	shape := Shape{TokensPerData: tpd, Dims: make([]DimSize, nDims)}
	seen := make(map[string]bool)

	for i := 0; i < nDims; i++ {
		name, ok := tokens[2*i+2].(string)
		if !ok || name == "" {
			return Shape{}, fmt.Errorf("dimension %d name %v is not a "+
				"non-empty string", i, tokens[2*i+2])
		}

		if seen[name] {
			return Shape{}, fmt.Errorf("dimension %q appears twice", name)
		}

		seen[name] = true

		size, ok := tokenToInt(tokens[2*i+3])
		if !ok || size < 1 {
			return Shape{}, fmt.Errorf("size %v of dimension %q is not a "+
				"positive integer", tokens[2*i+3], name)
		}

		shape.Dims[i] = DimSize{Name: name, Size: size}
	}

	return shape, nil
}

func tokenToInt(t Token) (int, bool) {
	switch v := t.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	case float32:
		if float64(v) == math.Trunc(float64(v)) {
			return int(v), true
		}
	}

	return 0, false
}

// headerState collects the header tokens of a dynamic edge.
type headerState struct {
	queue []Token
	size  int
}

func (h *headerState) empty() bool {
	return len(h.queue) == 0
}

func (h *headerState) full() bool {
	return h.size > 0 && len(h.queue) == h.size
}

// push appends a token. The first token fixes the header size.
func (h *headerState) push(t Token) error {
	if h.empty() {
		nDims, ok := tokenToInt(t)
		if !ok || nDims < 1 {
			return fmt.Errorf("dimension count %v is not a positive integer",
				t)
		}

		h.size = HeaderSize(nDims)
	}

	h.queue = append(h.queue, t)

	return nil
}

func (h *headerState) clear() {
	h.queue = nil
	h.size = 0
}
