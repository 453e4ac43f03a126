package metadata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/arrayflow/array"
)

// ParsePattern parses a pattern such as "x=3.1,y=4.1". Each entry is
// name=extent or name=extent.stride; the stride defaults to 1.
func ParsePattern(s string) ([]array.Axis, error) {
	var axes []array.Axis

	err := forEachEntry(s, func(name, value string) error {
		extent, stride := value, "1"
		if i := strings.IndexByte(value, '.'); i >= 0 {
			extent, stride = value[:i], value[i+1:]
		}

		a := array.Axis{Name: name}

		var err error
		if a.Extent, err = strconv.Atoi(extent); err != nil {
			return fmt.Errorf("extent of %q: %w", name, err)
		}

		if a.Stride, err = strconv.Atoi(stride); err != nil {
			return fmt.Errorf("stride of %q: %w", name, err)
		}

		axes = append(axes, a)

		return nil
	})

	return axes, err
}

// ParseTiling parses a tiling such as "x=3,y=4". Each entry is name=stride.
func ParseTiling(s string) ([]array.Axis, error) {
	var axes []array.Axis

	err := forEachEntry(s, func(name, value string) error {
		stride, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("stride of %q: %w", name, err)
		}

		axes = append(axes, array.Axis{Name: name, Extent: 1, Stride: stride})

		return nil
	})

	return axes, err
}

// ParseBase parses a base such as "x=0,y=2".
func ParseBase(s string) (map[string]int, error) {
	base := make(map[string]int)

	err := forEachEntry(s, func(name, value string) error {
		b, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("base of %q: %w", name, err)
		}

		base[name] = b

		return nil
	})

	return base, err
}

// ParseSizes parses explicit array sizes such as "x=6,y=4" and returns them
// together with their order.
func ParseSizes(s string) ([]string, map[string]int, error) {
	var order []string

	sizes := make(map[string]int)

	err := forEachEntry(s, func(name, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("size of %q: %w", name, err)
		}

		if n < 1 {
			return fmt.Errorf("size of %q must be positive", name)
		}

		order = append(order, name)
		sizes[name] = n

		return nil
	})

	return order, sizes, err
}

// ParseRepetitions parses repetition counts such as "[2,3]" or "2,3".
func ParseRepetitions(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")

	var reps []int

	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}

		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("repetition %q: %w", f, err)
		}

		if n < 1 {
			return nil, fmt.Errorf("repetition %d must be positive", n)
		}

		reps = append(reps, n)
	}

	return reps, nil
}

// ParseDimensions parses a dimension order such as "x,y".
func ParseDimensions(s string) []string {
	var dims []string

	for _, f := range strings.Split(trimBraces(s), ",") {
		if f = strings.TrimSpace(f); f != "" {
			dims = append(dims, f)
		}
	}

	return dims
}

func forEachEntry(s string, f func(name, value string) error) error {
	seen := make(map[string]bool)

	for _, entry := range strings.Split(trimBraces(s), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, value, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		if !ok || name == "" || value == "" {
			return fmt.Errorf("malformed entry %q", entry)
		}

		if seen[name] && name != array.EmptyDimension {
			return fmt.Errorf("dimension %q appears twice", name)
		}

		seen[name] = true

		if err := f(name, value); err != nil {
			return err
		}
	}

	return nil
}

func trimBraces(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")

	return strings.TrimSuffix(s, "}")
}
