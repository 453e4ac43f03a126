// Package config loads pipelines from JSON or YAML graph descriptions.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/arrayflow/dataflow"
)

// A PortConfig replaces the declaration of one port of an actor.
type PortConfig struct {
	Name string `json:"name"`
	dataflow.Declaration
}

// An ActorConfig describes one actor of a graph.
type ActorConfig struct {
	Name        string          `json:"name"`
	Kind        string          `json:"kind"`
	Repetitions string          `json:"repetitions,omitempty"`
	Params      json.RawMessage `json:"params,omitempty"`
	Ports       []PortConfig    `json:"ports,omitempty"`
}

// A ConnectionConfig links two ports given by their full names, such as
// "Ramp.Out".
type ConnectionConfig struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// A Graph is the JSON description of a pipeline.
type Graph struct {
	Name        string             `json:"name"`
	Iterations  int                `json:"iterations,omitempty"`
	Actors      []ActorConfig      `json:"actors"`
	Connections []ConnectionConfig `json:"connections"`
}

// Load reads a graph from a file. Files ending in .yaml or .yml are read as
// YAML, everything else as JSON.
func Load(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decode := Decode

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decode = DecodeYAML
	}

	g, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return g, nil
}

// DecodeYAML reads a graph written in YAML from r. Keys are the same as in
// the JSON form.
func DecodeYAML(r io.Reader) (*Graph, error) {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	buf, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	return Decode(bytes.NewReader(buf))
}

// Decode reads a graph from r. Unknown fields are rejected.
func Decode(r io.Reader) (*Graph, error) {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()

	g := &Graph{}
	if err := decoder.Decode(g); err != nil {
		return nil, err
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return g, nil
}

// Encode writes the graph as indented JSON.
func (g *Graph) Encode(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(g)
}

// Validate checks the parts of a graph that do not depend on the actor kinds.
func (g *Graph) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("graph has no name")
	}

	if g.Iterations < 0 {
		return fmt.Errorf("graph %s: negative iteration count %d",
			g.Name, g.Iterations)
	}

	if len(g.Actors) == 0 {
		return fmt.Errorf("graph %s has no actors", g.Name)
	}

	seen := make(map[string]bool)
	for i, a := range g.Actors {
		if a.Name == "" {
			return fmt.Errorf("graph %s: actor %d has no name", g.Name, i)
		}

		if a.Kind == "" {
			return fmt.Errorf("graph %s: actor %s has no kind", g.Name, a.Name)
		}

		if seen[a.Name] {
			return fmt.Errorf("graph %s: actor %s appears twice",
				g.Name, a.Name)
		}

		seen[a.Name] = true
	}

	return nil
}

// Build creates the actors with the registry and connects them.
func (g *Graph) Build(r *Registry) (*dataflow.Composite, error) {
	c := dataflow.NewComposite(g.Name)

	for _, ac := range g.Actors {
		a, err := r.Create(ac)
		if err != nil {
			return nil, err
		}

		c.AddActor(a)
	}

	for _, conn := range g.Connections {
		if err := connect(c, conn); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func connect(c *dataflow.Composite, conn ConnectionConfig) error {
	from, err := c.FindPort(conn.From)
	if err != nil {
		return err
	}

	to, err := c.FindPort(conn.To)
	if err != nil {
		return err
	}

	if !from.IsSource() {
		return fmt.Errorf("cannot connect from %s: not a source", from.Name())
	}

	if to.IsSource() {
		return fmt.Errorf("cannot connect to %s: not a sink", to.Name())
	}

	if p := c.Producer(to); p != nil {
		return fmt.Errorf("%s is already fed by %s", to.Name(), p.Name())
	}

	c.Connect(from, to)

	return nil
}

// decodeParams fills v from raw parameters. Missing parameters keep the
// values v already has.
func decodeParams(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()

	return decoder.Decode(v)
}
