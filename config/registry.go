package config

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sarchlab/arrayflow/actors"
	"github.com/sarchlab/arrayflow/array"
	"github.com/sarchlab/arrayflow/dataflow"
)

// A Factory creates an actor of one kind from its parameters.
type Factory func(name string, params json.RawMessage) (dataflow.Actor, error)

// A Registry maps actor kinds to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry creates a registry that knows the library actors.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("ramp", newRamp)
	r.Register("shaped_ramp", newShapedRamp)
	r.Register("scale", newScale)
	r.Register("transpose", newTranspose)
	r.Register("collector", newCollector)

	return r
}

// Register adds a factory. Registering a kind twice panics.
func (r *Registry) Register(kind string, f Factory) {
	if _, found := r.factories[kind]; found {
		panic("actor kind " + kind + " already registered")
	}

	r.factories[kind] = f
}

// Kinds returns the registered kinds in alphabetical order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}

	sort.Strings(kinds)

	return kinds
}

type repeatable interface {
	SetRepetitions(reps string)
}

// Create builds the actor described by ac, then applies its repetitions and
// port overrides.
func (r *Registry) Create(ac ActorConfig) (dataflow.Actor, error) {
	f, found := r.factories[ac.Kind]
	if !found {
		return nil, fmt.Errorf("actor %s: unknown kind %q, known kinds are %v",
			ac.Name, ac.Kind, r.Kinds())
	}

	a, err := f(ac.Name, ac.Params)
	if err != nil {
		return nil, fmt.Errorf("actor %s: %w", ac.Name, err)
	}

	if ac.Repetitions != "" {
		rep, ok := a.(repeatable)
		if !ok {
			return nil, fmt.Errorf("actor %s: kind %s takes no repetitions",
				ac.Name, ac.Kind)
		}

		rep.SetRepetitions(ac.Repetitions)
	}

	for _, pc := range ac.Ports {
		p := findActorPort(a, pc.Name)
		if p == nil {
			return nil, fmt.Errorf("actor %s has no port %s", ac.Name, pc.Name)
		}

		p.SetDeclaration(pc.Declaration)
	}

	return a, nil
}

func findActorPort(a dataflow.Actor, name string) *dataflow.Port {
	full := a.Name() + "." + name

	for _, p := range a.Inputs() {
		if p.Name() == full {
			return p
		}
	}

	for _, p := range a.Outputs() {
		if p.Name() == full {
			return p
		}
	}

	return nil
}

type rampParams struct {
	Start float64 `json:"start"`
	Step  float64 `json:"step"`
}

func newRamp(name string, raw json.RawMessage) (dataflow.Actor, error) {
	p := rampParams{Step: 1}
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}

	return actors.MakeRampBuilder().
		WithStart(p.Start).
		WithStep(p.Step).
		Build(name), nil
}

type dimParams struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type shapeParams struct {
	TokensPerData int         `json:"tokens_per_data"`
	Dims          []dimParams `json:"dims"`
}

type shapedRampParams struct {
	Shapes []shapeParams `json:"shapes"`
	Base   string        `json:"base"`
	Start  float64       `json:"start"`
	Step   float64       `json:"step"`
}

func newShapedRamp(name string, raw json.RawMessage) (dataflow.Actor, error) {
	p := shapedRampParams{Step: 1}
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}

	if len(p.Shapes) == 0 {
		return nil, fmt.Errorf("no shapes")
	}

	shapes := make([]array.Shape, 0, len(p.Shapes))
	for i, sp := range p.Shapes {
		shape := array.Shape{TokensPerData: sp.TokensPerData}
		if shape.TokensPerData == 0 {
			shape.TokensPerData = 1
		}

		if shape.TokensPerData < 0 || len(sp.Dims) == 0 {
			return nil, fmt.Errorf("shape %d is invalid", i)
		}

		for _, d := range sp.Dims {
			if d.Name == "" || d.Size < 1 {
				return nil, fmt.Errorf("shape %d: invalid dimension %q of "+
					"size %d", i, d.Name, d.Size)
			}

			shape.Dims = append(shape.Dims,
				array.DimSize{Name: d.Name, Size: d.Size})
		}

		shapes = append(shapes, shape)
	}

	return actors.MakeShapedRampBuilder().
		WithShapes(shapes...).
		WithBase(p.Base).
		WithStart(p.Start).
		WithStep(p.Step).
		Build(name), nil
}

type scaleParams struct {
	Factor float64 `json:"factor"`
}

func newScale(name string, raw json.RawMessage) (dataflow.Actor, error) {
	p := scaleParams{Factor: 1}
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}

	return actors.NewScale(name, p.Factor,
		dataflow.Declaration{}, dataflow.Declaration{}), nil
}

type transposeParams struct {
	Fast     string `json:"fast"`
	Slow     string `json:"slow"`
	FastSize int    `json:"fast_size"`
	SlowSize int    `json:"slow_size"`
}

func newTranspose(name string, raw json.RawMessage) (dataflow.Actor, error) {
	p := transposeParams{Fast: "x", Slow: "y"}
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}

	if p.Fast == p.Slow {
		return nil, fmt.Errorf("fast and slow dimensions are both %q", p.Fast)
	}

	if p.FastSize < 1 || p.SlowSize < 1 {
		return nil, fmt.Errorf("sizes %dx%d must be positive",
			p.FastSize, p.SlowSize)
	}

	return actors.NewTranspose(name, p.Fast, p.Slow, p.FastSize, p.SlowSize),
		nil
}

func newCollector(name string, raw json.RawMessage) (dataflow.Actor, error) {
	if err := decodeParams(raw, &struct{}{}); err != nil {
		return nil, err
	}

	return actors.NewCollector(name, "", dataflow.Declaration{}), nil
}
