// Package metadata turns the declarations attached to ports and actors into
// the quantities the scheduler needs.
package metadata

import (
	"fmt"

	"github.com/sarchlab/arrayflow/array"
	"github.com/sarchlab/arrayflow/dataflow"
)

// Parameter names a port or actor quantity depends on.
const (
	ParamBase          = "base"
	ParamPattern       = "pattern"
	ParamTiling        = "tiling"
	ParamTokensPerData = "tokensPerData"
	ParamDimensions    = "dimensions"
	ParamSizes         = "sizes"
	ParamRepetitions   = "repetitions"
)

// Provider reads declarations every time it is asked, so changes to a
// declaration show up on the next query.
type Provider struct{}

// NewProvider creates a Provider.
func NewProvider() *Provider {
	return &Provider{}
}

func wrap(p *dataflow.Port, what string, err error) error {
	return fmt.Errorf("%s: %s: %w", p.Name(), what, err)
}

// Base returns the window start of the port.
func (Provider) Base(p *dataflow.Port) (map[string]int, error) {
	base, err := ParseBase(p.Declaration().Base)
	if err != nil {
		return nil, wrap(p, ParamBase, err)
	}

	return base, nil
}

// TokensPerData returns the number of tokens per array element, 1 when not
// declared.
func (Provider) TokensPerData(p *dataflow.Port) (int, error) {
	tpd := p.Declaration().TokensPerData

	switch {
	case tpd == 0:
		return 1, nil
	case tpd < 0:
		return 0, wrap(p, ParamTokensPerData,
			fmt.Errorf("must be positive, got %d", tpd))
	default:
		return tpd, nil
	}
}

// Pattern returns the per-firing footprint of the port.
func (Provider) Pattern(p *dataflow.Port) ([]array.Axis, error) {
	axes, err := ParsePattern(p.Declaration().Pattern)
	if err != nil {
		return nil, wrap(p, ParamPattern, err)
	}

	return axes, nil
}

// Tiling returns the tiling of the port, aligned with Repetitions. Missing
// entries on either side are padded: a repetition without a tiling axis
// re-reads the same window, a tiling axis without a repetition is repeated
// once.
func (pr Provider) Tiling(p *dataflow.Port) ([]array.Axis, error) {
	tiling, _, err := pr.tilingAndReps(p)

	return tiling, err
}

// Repetitions returns the repetition counts that drive the port's tiling.
func (pr Provider) Repetitions(p *dataflow.Port) ([]int, error) {
	_, reps, err := pr.tilingAndReps(p)

	return reps, err
}

func (pr Provider) tilingAndReps(p *dataflow.Port) ([]array.Axis, []int, error) {
	tiling, err := ParseTiling(p.Declaration().Tiling)
	if err != nil {
		return nil, nil, wrap(p, ParamTiling, err)
	}

	var reps []int
	if a := dataflow.OwnerActor(p); a != nil {
		if reps, err = ParseRepetitions(a.Repetitions()); err != nil {
			return nil, nil, fmt.Errorf("%s.%s: %w",
				a.Name(), ParamRepetitions, err)
		}
	}

	for len(tiling) < len(reps) {
		tiling = append(tiling, array.Axis{
			Name:   array.EmptyDimension,
			Extent: 1,
		})
	}

	for len(reps) < len(tiling) {
		reps = append(reps, 1)
	}

	return tiling, reps, nil
}

// Spec assembles everything the address calculator needs for the port.
func (pr Provider) Spec(p *dataflow.Port) (*array.Spec, error) {
	base, err := pr.Base(p)
	if err != nil {
		return nil, err
	}

	pattern, err := pr.Pattern(p)
	if err != nil {
		return nil, err
	}

	tiling, reps, err := pr.tilingAndReps(p)
	if err != nil {
		return nil, err
	}

	tpd, err := pr.TokensPerData(p)
	if err != nil {
		return nil, err
	}

	return &array.Spec{
		Base:          base,
		Pattern:       pattern,
		Tiling:        tiling,
		Repetitions:   reps,
		TokensPerData: tpd,
	}, nil
}

// PatternAddressCount returns the number of tokens one firing moves through
// the port.
func (pr Provider) PatternAddressCount(p *dataflow.Port) (int, error) {
	spec, err := pr.Spec(p)
	if err != nil {
		return 0, err
	}

	return spec.FiringSize(), nil
}

// DimensionOrder returns the dimension order of the array behind the port:
// the declared one if any, otherwise pattern dimensions then tiling-only
// dimensions.
func (pr Provider) DimensionOrder(p *dataflow.Port) ([]string, error) {
	decl := p.Declaration()

	if decl.Dimensions != "" {
		return ParseDimensions(decl.Dimensions), nil
	}

	if decl.Sizes != "" {
		order, _, err := ParseSizes(decl.Sizes)
		if err != nil {
			return nil, wrap(p, ParamSizes, err)
		}

		return order, nil
	}

	spec, err := pr.Spec(p)
	if err != nil {
		return nil, err
	}

	return spec.DimensionOrder(), nil
}

// ArraySizes returns the size of the array along each dimension.
func (pr Provider) ArraySizes(p *dataflow.Port) (map[string]int, error) {
	spec, err := pr.Spec(p)
	if err != nil {
		return nil, err
	}

	sizes := spec.Sizes()

	if decl := p.Declaration(); decl.Sizes != "" {
		_, declared, err := ParseSizes(decl.Sizes)
		if err != nil {
			return nil, wrap(p, ParamSizes, err)
		}

		for d, n := range declared {
			sizes[d] = n
		}
	}

	order, err := pr.DimensionOrder(p)
	if err != nil {
		return nil, err
	}

	for _, d := range order {
		if _, ok := sizes[d]; !ok {
			sizes[d] = 1
		}
	}

	return sizes, nil
}

// ArraySize returns the number of elements in the array behind the port.
func (pr Provider) ArraySize(p *dataflow.Port) (int, error) {
	order, err := pr.DimensionOrder(p)
	if err != nil {
		return 0, err
	}

	sizes, err := pr.ArraySizes(p)
	if err != nil {
		return 0, err
	}

	size := 1
	for _, d := range order {
		size *= sizes[d]
	}

	return size, nil
}

// IsDynamic tells whether the port produces a header before its data.
func (Provider) IsDynamic(p *dataflow.Port) bool {
	return p.Declaration().Dynamic
}

// Dependencies lists the parameter names the quantities of the port are
// computed from, such as "Ramp.Out.pattern" or "Ramp.repetitions".
func (Provider) Dependencies(p *dataflow.Port) []string {
	deps := []string{
		p.Name() + "." + ParamBase,
		p.Name() + "." + ParamPattern,
		p.Name() + "." + ParamTiling,
		p.Name() + "." + ParamTokensPerData,
		p.Name() + "." + ParamDimensions,
		p.Name() + "." + ParamSizes,
	}

	if a := dataflow.OwnerActor(p); a != nil {
		deps = append(deps, a.Name()+"."+ParamRepetitions)
	}

	return deps
}

// IterationCounts returns the repetition counts of the actor, [1] when none
// are declared.
func (Provider) IterationCounts(a dataflow.Actor) ([]int, error) {
	reps, err := ParseRepetitions(a.Repetitions())
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", a.Name(), ParamRepetitions, err)
	}

	if len(reps) == 0 {
		reps = []int{1}
	}

	return reps, nil
}

// IterationCount returns how many times the actor fires per iteration.
func (pr Provider) IterationCount(a dataflow.Actor) (int, error) {
	reps, err := pr.IterationCounts(a)
	if err != nil {
		return 0, err
	}

	n := 1
	for _, r := range reps {
		n *= r
	}

	return n, nil
}
