// Package id generates identifiers for firing records.
package id

import (
	"strconv"
	"sync/atomic"
)

// Generator produces unique identifiers.
type Generator interface {
	Generate() string
}

// NewGenerator returns a sequential generator whose first ID is "1".
func NewGenerator() Generator {
	return &sequentialGenerator{}
}

// NewPrefixedGenerator returns a sequential generator that prefixes every ID,
// for example "Run42-7".
func NewPrefixedGenerator(prefix string) Generator {
	return &sequentialGenerator{prefix: prefix + "-"}
}

type sequentialGenerator struct {
	prefix string
	nextID uint64
}

func (g *sequentialGenerator) Generate() string {
	n := atomic.AddUint64(&g.nextID, 1)

	return g.prefix + strconv.FormatUint(n, 10)
}
