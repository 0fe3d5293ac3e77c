package rng

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Quasi walks a Halton low-discrepancy sequence of dimension Dim and maps each
// coordinate to a normal variate through the inverse normal CDF. Draw k is
// coordinate k mod Dim of point k/Dim + 1, so with Dim equal to the step count
// each path consumes exactly one Halton point. The origin point is skipped
// because it maps to -Inf.
type Quasi struct {
	bases []int
	next  int64
}

// NewQuasi returns a Halton source of the given dimension starting at draw skip.
func NewQuasi(dim int, skip int64) *Quasi {
	if dim < 1 {
		dim = 1
	}
	return &Quasi{bases: firstPrimes(dim), next: skip}
}

// Normal returns the next quasi-random normal variate
func (q *Quasi) Normal() float64 {
	dim := int64(len(q.bases))
	point := q.next/dim + 1
	coord := q.next % dim
	q.next++
	u := radicalInverse(point, q.bases[coord])
	return distuv.UnitNormal.Quantile(u)
}

// QuasiFactory hands each worker the slice of the sequence its paths would
// have consumed in a sequential run.
type QuasiFactory struct {
	Dim int
}

// Stream returns a Halton source advanced by skip draws
func (f QuasiFactory) Stream(_ int, skip int64) Source {
	return NewQuasi(f.Dim, skip)
}

// radicalInverse mirrors the base-b digits of n about the radix point.
// For n >= 1 the result lies strictly inside (0, 1).
func radicalInverse(n int64, base int) float64 {
	b := int64(base)
	inv := 1.0 / float64(base)
	f := inv
	var r float64
	for n > 0 {
		r += float64(n%b) * f
		n /= b
		f *= inv
	}
	return r
}

// firstPrimes returns the first n primes by trial division against earlier primes
func firstPrimes(n int) []int {
	primes := make([]int, 0, n)
	for c := 2; len(primes) < n; c++ {
		isPrime := true
		limit := int(math.Sqrt(float64(c)))
		for _, p := range primes {
			if p > limit {
				break
			}
			if c%p == 0 {
				isPrime = false
				break
			}
		}
		if isPrime {
			primes = append(primes, c)
		}
	}
	return primes
}
