// Package array implements multidimensional addressing into flat buffers. An
// Edge owns the buffer of one producing port; Receivers are the read views of
// the consuming ports. Both compute positions with Address.
package array

import "fmt"

// Token is one elementary value stored in a buffer.
type Token = any

// EmptyDimension is the reserved dimension name of an axis that does not take
// part in addressing.
const EmptyDimension = "empty"

// An Axis is one named entry of a pattern or a tiling. In a pattern, Extent
// is the number of elements accessed by one firing and Stride the distance
// between them. In a tiling, Stride is the distance the pattern moves between
// two successive firings.
type Axis struct {
	Name   string
	Extent int
	Stride int
}

// Spec describes how one port walks through an array.
type Spec struct {
	// Base is the index at which the port's window starts, per dimension.
	// Dimensions without an entry start at 0.
	Base map[string]int

	// Pattern lists the per-firing footprint. The first axis varies fastest.
	Pattern []Axis

	// Tiling lists how the pattern moves across firings, in the same order
	// as Repetitions.
	Tiling []Axis

	// Repetitions holds the number of firings along each tiling axis.
	Repetitions []int

	// TokensPerData is the number of elementary tokens in one array element.
	TokensPerData int
}

// PatternSize returns the number of elements accessed by one firing.
func (s *Spec) PatternSize() int {
	size := 1
	for _, a := range s.Pattern {
		size *= a.Extent
	}

	return size
}

// FiringSize returns the number of tokens transferred by one firing.
func (s *Spec) FiringSize() int {
	return s.PatternSize() * s.TokensPerData
}

// TotalRepetitions returns the number of firings that cover the whole tiling.
func (s *Spec) TotalRepetitions() int {
	n := 1
	for _, r := range s.Repetitions {
		n *= r
	}

	return n
}

// DimensionOrder lists pattern dimensions in declared order followed by the
// dimensions that only appear in the tiling. Empty dimensions are skipped.
func (s *Spec) DimensionOrder() []string {
	order := make([]string, 0, len(s.Pattern)+len(s.Tiling))
	seen := make(map[string]bool)

	add := func(name string) {
		if name == EmptyDimension || seen[name] {
			return
		}

		seen[name] = true
		order = append(order, name)
	}

	for _, a := range s.Pattern {
		add(a.Name)
	}

	for _, a := range s.Tiling {
		add(a.Name)
	}

	return order
}

// Sizes returns the array size along each dimension, that is the pattern
// extent multiplied by the repetition count of the tiling axis with the same
// name.
func (s *Spec) Sizes() map[string]int {
	sizes := make(map[string]int)

	for _, d := range s.DimensionOrder() {
		sizes[d] = 1
	}

	for _, a := range s.Pattern {
		if a.Name != EmptyDimension {
			sizes[a.Name] = a.Extent
		}
	}

	for i, a := range s.Tiling {
		if a.Name != EmptyDimension && i < len(s.Repetitions) {
			sizes[a.Name] *= s.Repetitions[i]
		}
	}

	return sizes
}

// ArraySize returns the number of elements of the whole array.
func (s *Spec) ArraySize() int {
	size := 1
	for _, n := range s.Sizes() {
		size *= n
	}

	return size
}

// Validate checks that the spec can be used for addressing.
func (s *Spec) Validate() error {
	if s.TokensPerData < 1 {
		return fmt.Errorf("tokens per data must be positive, got %d",
			s.TokensPerData)
	}

	seen := make(map[string]bool)
	for _, a := range s.Pattern {
		if a.Extent < 1 {
			return fmt.Errorf("pattern extent of %q must be positive, got %d",
				a.Name, a.Extent)
		}

		if a.Name != EmptyDimension && seen[a.Name] {
			return fmt.Errorf("dimension %q appears twice in pattern", a.Name)
		}

		seen[a.Name] = true
	}

	if len(s.Repetitions) != len(s.Tiling) {
		return fmt.Errorf("%d repetitions given for %d tiling axes",
			len(s.Repetitions), len(s.Tiling))
	}

	for i, r := range s.Repetitions {
		if r < 1 {
			return fmt.Errorf("repetition of %q must be positive, got %d",
				s.Tiling[i].Name, r)
		}
	}

	return nil
}

// Clone returns a deep copy of the spec.
func (s *Spec) Clone() *Spec {
	c := &Spec{
		Pattern:       append([]Axis(nil), s.Pattern...),
		Tiling:        append([]Axis(nil), s.Tiling...),
		Repetitions:   append([]int(nil), s.Repetitions...),
		TokensPerData: s.TokensPerData,
	}

	if s.Base != nil {
		c.Base = make(map[string]int, len(s.Base))
		for k, v := range s.Base {
			c.Base[k] = v
		}
	}

	return c
}
