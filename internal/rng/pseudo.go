package rng

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mathext/prng"
)

// Pseudo draws normals from a seeded pseudo-random engine.
type Pseudo struct {
	rnd *rand.Rand
}

// NewPseudo seeds a generator of the given kind (pcg, mt19937 or xoshiro).
// Unknown kinds fall back to pcg.
func NewPseudo(seed uint64, kind string) *Pseudo {
	var src rand.Source
	switch kind {
	case GeneratorMT19937:
		mt := prng.NewMT19937()
		mt.Seed(seed)
		src = mt
	case GeneratorXoshiro:
		src = prng.NewXoshiro256starstar(seed)
	default:
		src = rand.NewSource(seed)
	}
	return &Pseudo{rnd: rand.New(src)}
}

// Normal returns the next standard-normal variate
func (p *Pseudo) Normal() float64 {
	return p.rnd.NormFloat64()
}

// PseudoFactory derives one independently seeded generator per worker.
type PseudoFactory struct {
	Seed uint64
	Kind string
}

// Stream returns the worker's generator. Worker 0 uses Seed unchanged so a
// single-worker run matches a sequential one.
func (f PseudoFactory) Stream(worker int, _ int64) Source {
	seed := f.Seed
	if worker > 0 {
		seed = splitmix64(f.Seed + uint64(worker)*0x9E3779B97F4A7C15)
	}
	return NewPseudo(seed, f.Kind)
}

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}
