package pde

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jwaldner/fdmc/internal/errs"
)

// Surface is the solved (J+1)×(N+1) value grid. Row j is the space index,
// column n the time layer; column 0 is maturity and column N the valuation date.
type Surface struct {
	grid   Grid
	values *mat.Dense
	report StabilityReport
}

// SurfaceGreeks are sensitivities read off the valuation layer
type SurfaceGreeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"` // per year of calendar time
}

// Grid returns the mesh the surface was solved on
func (s *Surface) Grid() Grid { return s.grid }

// Stable reports whether every layer stayed within the explicit stability bound
func (s *Surface) Stable() bool { return s.report.Stable }

// Ratio is the largest dt·σ/dx² met while solving
func (s *Surface) Ratio() float64 { return s.report.Ratio }

// ConvectionBounded is false when the sampled convection term outruns diffusion
func (s *Surface) ConvectionBounded() bool { return s.report.ConvectionBounded }

// At returns V at space index j and layer n
func (s *Surface) At(j, n int) float64 {
	return s.values.At(j, n)
}

// Layer returns a copy of time layer n
func (s *Surface) Layer(n int) []float64 {
	return mat.Col(nil, n, s.values)
}

// Valuation returns a copy of the valuation-date layer
func (s *Surface) Valuation() []float64 {
	return s.Layer(s.grid.N)
}

// Matrix returns a copy of the whole surface
func (s *Surface) Matrix() *mat.Dense {
	return mat.DenseCopyOf(s.values)
}

// ValueAt interpolates the valuation layer linearly at x
func (s *Surface) ValueAt(x float64) (float64, error) {
	j, w, err := s.locate(x)
	if err != nil {
		return 0, err
	}
	n := s.grid.N
	if w == 0 {
		return s.values.At(j, n), nil
	}
	return (1-w)*s.values.At(j, n) + w*s.values.At(j+1, n), nil
}

// Greeks returns delta and gamma from central differences on the valuation
// layer, interpolated between the neighbouring interior nodes, and theta from
// the two layers closest to the valuation date.
func (s *Surface) Greeks(x float64) (SurfaceGreeks, error) {
	g := s.grid
	if g.J < 2 {
		return SurfaceGreeks{}, errs.Config("J", "greeks need at least one interior node")
	}
	j, w, err := s.locate(x)
	if err != nil {
		return SurfaceGreeks{}, err
	}

	n := g.N
	col := s.Valuation()
	prev := s.Layer(n - 1)

	at := func(k int) (delta, gamma, theta float64) {
		if k < 1 {
			k = 1
		}
		if k > g.J-1 {
			k = g.J - 1
		}
		delta = (col[k+1] - col[k-1]) / (2 * g.Dx)
		gamma = (col[k+1] - 2*col[k] + col[k-1]) / (g.Dx * g.Dx)
		// calendar time runs against τ
		theta = -(col[k] - prev[k]) / g.Dt
		return
	}

	d0, g0, t0 := at(j)
	if w == 0 {
		return SurfaceGreeks{Delta: d0, Gamma: g0, Theta: t0}, nil
	}
	d1, g1, t1 := at(j + 1)
	return SurfaceGreeks{
		Delta: (1-w)*d0 + w*d1,
		Gamma: (1-w)*g0 + w*g1,
		Theta: (1-w)*t0 + w*t1,
	}, nil
}

// locate returns the left node index and the weight of the right neighbour
func (s *Surface) locate(x float64) (int, float64, error) {
	g := s.grid
	if math.IsNaN(x) || x < 0 || x > g.Smax {
		return 0, 0, &errs.DomainError{Reason: "spot outside the grid [0, Smax]"}
	}
	pos := x / g.Dx
	j := int(math.Floor(pos))
	if j >= g.J {
		return g.J, 0, nil
	}
	w := pos - float64(j)
	if w < 1e-12 {
		w = 0
	}
	return j, w, nil
}
