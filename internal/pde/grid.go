package pde

import (
	"math"

	"github.com/jwaldner/fdmc/internal/errs"
)

// Grid is a uniform mesh of J+1 space points over [0, Smax] and N+1 time
// points over [0, T].
type Grid struct {
	J    int
	N    int
	Smax float64
	T    float64
	Dx   float64
	Dt   float64
}

// NewGrid validates the mesh parameters and derives the spacings
func NewGrid(smax, maturity float64, j, n int) (Grid, error) {
	switch {
	case !(smax > 0) || math.IsInf(smax, 0):
		return Grid{}, errs.Config("Smax", "must be positive and finite, got %g", smax)
	case !(maturity > 0) || math.IsInf(maturity, 0):
		return Grid{}, errs.Config("T", "must be positive and finite, got %g", maturity)
	case j < 1:
		return Grid{}, errs.Config("J", "must be >= 1, got %d", j)
	case n < 1:
		return Grid{}, errs.Config("N", "must be >= 1, got %d", n)
	}
	return Grid{
		J:    j,
		N:    n,
		Smax: smax,
		T:    maturity,
		Dx:   smax / float64(j),
		Dt:   maturity / float64(n),
	}, nil
}

// X returns the space coordinate of index j
func (g Grid) X(j int) float64 {
	return float64(j) * g.Dx
}

// Tau returns the time-to-maturity of layer n
func (g Grid) Tau(n int) float64 {
	return float64(n) * g.Dt
}

// Mesh returns the J+1 space points
func (g Grid) Mesh() []float64 {
	xs := make([]float64, g.J+1)
	for j := range xs {
		xs[j] = g.X(j)
	}
	return xs
}

// TimeMesh returns the N+1 time-to-maturity points
func (g Grid) TimeMesh() []float64 {
	ts := make([]float64, g.N+1)
	for n := range ts {
		ts[n] = g.Tau(n)
	}
	return ts
}

// Cells is the size of the value surface
func (g Grid) Cells() int64 {
	return int64(g.J+1) * int64(g.N+1)
}
