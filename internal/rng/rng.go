// Package rng supplies standard-normal variates to the path simulator.
//
// The simulator depends only on Source. Concrete generators are chosen once per
// run from configuration (see FromName) and never switched mid-simulation.
package rng

import (
	"fmt"
	"io"
	"strings"
)

// Source produces the next standard-normal draw.
type Source interface {
	Normal() float64
}

// StreamFactory hands out independent sources for concurrent workers.
// skip is the number of draws consumed by the paths preceding the worker's
// block; sequence-based generators advance by it, seeded generators ignore it.
type StreamFactory interface {
	Stream(worker int, skip int64) Source
}

// Release closes a source that holds resources. It is safe to call on any Source.
func Release(src Source) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Generator names accepted by FromName
const (
	GeneratorPCG     = "pcg"
	GeneratorMT19937 = "mt19937"
	GeneratorXoshiro = "xoshiro"
	GeneratorHalton  = "halton"
)

// FromName builds a sequential source and a matching stream factory.
// dim is the number of draws per path and only matters for quasi-random sequences.
func FromName(name string, seed uint64, dim int) (Source, StreamFactory, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", GeneratorPCG:
		f := PseudoFactory{Seed: seed, Kind: GeneratorPCG}
		return f.Stream(0, 0), f, nil
	case GeneratorMT19937:
		f := PseudoFactory{Seed: seed, Kind: GeneratorMT19937}
		return f.Stream(0, 0), f, nil
	case GeneratorXoshiro:
		f := PseudoFactory{Seed: seed, Kind: GeneratorXoshiro}
		return f.Stream(0, 0), f, nil
	case GeneratorHalton:
		if dim < 1 {
			return nil, nil, fmt.Errorf("halton sequence needs a positive dimension, got %d", dim)
		}
		f := QuasiFactory{Dim: dim}
		return f.Stream(0, 0), f, nil
	}
	return nil, nil, fmt.Errorf("unknown generator %q", name)
}
