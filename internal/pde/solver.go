package pde

import (
	"fmt"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/jwaldner/fdmc/internal/errs"
	"github.com/jwaldner/fdmc/internal/logger"
)

// StabilityLimit is the largest dt·σ/dx² the explicit scheme tolerates
const StabilityLimit = 0.5

// StabilityReport describes how close the grid is to the explicit bound.
// Stable and the policies act on the diffusion ratio only. ConvectionBounded is
// informational: when (μ·dt/dx)² > 2·dt·σ/dx² the central convection term is not
// damped by diffusion and the surface may oscillate or slowly grow.
type StabilityReport struct {
	Ratio             float64 // max dt·σ(x,τ)/dx² seen so far
	Stable            bool
	ConvectionBounded bool
}

// Solver integrates one configured problem
type Solver struct {
	cfg    Config
	grid   Grid
	report StabilityReport
}

// NewSolver validates the configuration and runs the stability check.
// Under StabilityReject an unstable grid is refused with an InstabilityError.
func NewSolver(cfg Config) (*Solver, error) {
	g, err := cfg.validate()
	if err != nil {
		return nil, err
	}

	report, err := checkStability(g, cfg.Coefficients)
	if err != nil {
		return nil, err
	}
	ratio := report.Ratio
	if !report.ConvectionBounded {
		logger.Warn.Printf("⚠️  PDE grid J=%d N=%d: convection outruns diffusion, expect oscillation", g.J, g.N)
	}

	if !report.Stable {
		if cfg.Stability == StabilityReject {
			return nil, &errs.InstabilityError{
				Engine: "pde",
				Index:  -1,
				Step:   -1,
				Value:  ratio,
				Reason: fmt.Sprintf("explicit stability bound violated: dt·σ/dx² = %.4f > %.1f (need N >= %d)", ratio, StabilityLimit, minSteps(g, ratio)),
			}
		}
		logger.Warn.Printf("⚠️  PDE grid J=%d N=%d is unstable (ratio %.4f), solving anyway", g.J, g.N, ratio)
	}

	return &Solver{cfg: cfg, grid: g, report: report}, nil
}

// Grid returns the validated mesh
func (s *Solver) Grid() Grid { return s.grid }

// Stability returns the pre-solve stability report. Solve also checks every
// layer and reports on the returned Surface.
func (s *Solver) Stability() StabilityReport { return s.report }

// Solve steps the surface from τ = 0 to τ = T. The result is deterministic for
// a given configuration regardless of the worker count.
//
// The diffusion ratio is re-measured at every node of every layer, so a
// coefficient that peaks between the pre-solve samples is still caught:
// StabilityReject stops with an InstabilityError at the offending layer,
// StabilityWarn finishes and marks the surface unstable.
func (s *Solver) Solve() (*Surface, error) {
	start := time.Now()
	g := s.grid
	c := s.cfg.Coefficients
	report := s.report

	v := mat.NewDense(g.J+1, g.N+1, nil)
	prev := make([]float64, g.J+1)
	next := make([]float64, g.J+1)

	for j := range prev {
		prev[j] = s.cfg.Initial(g.X(j))
	}
	if j, bad := firstNonFinite(prev); bad {
		return nil, &errs.InstabilityError{Engine: "pde", Index: j, Step: 0, Value: prev[j], Reason: "initial condition is not finite"}
	}
	v.SetCol(0, prev)

	invDx2 := 1 / (g.Dx * g.Dx)
	inv2Dx := 1 / (2 * g.Dx)
	scale := g.Dt * invDx2

	step := func(lo, hi int, tau float64) layerPeak {
		peak := layerPeak{j: -1, negative: -1}
		for j := lo; j < hi; j++ {
			x := g.X(j)
			d := c.Diffusion(x, tau)
			if d < 0 && peak.negative < 0 {
				peak.negative, peak.value = j, d
			}
			if r := d * scale; r > peak.ratio {
				peak.ratio, peak.j = r, j
			}
			vxx := (prev[j+1] - 2*prev[j] + prev[j-1]) * invDx2
			vx := (prev[j+1] - prev[j-1]) * inv2Dx
			next[j] = prev[j] + g.Dt*(d*vxx+
				c.Convection(x, tau)*vx+
				c.Reaction(x, tau)*prev[j]+
				c.Source(x, tau))
		}
		return peak
	}

	workers := s.cfg.Workers
	if workers > g.J-1 {
		workers = g.J - 1
	}
	chunk := g.J - 1
	if workers > 1 {
		chunk = (g.J - 1 + workers - 1) / workers
	}
	peaks := make([]layerPeak, 0, workers+1)

	warned := false
	for n := 0; n < g.N; n++ {
		tau := g.Tau(n)
		peaks = peaks[:0]
		if workers > 1 {
			for lo := 1; lo < g.J; lo += chunk {
				peaks = append(peaks, layerPeak{})
			}
			var wg sync.WaitGroup
			for k, lo := 0, 1; lo < g.J; k, lo = k+1, lo+chunk {
				hi := lo + chunk
				if hi > g.J {
					hi = g.J
				}
				wg.Add(1)
				go func(k, lo, hi int) {
					defer wg.Done()
					peaks[k] = step(lo, hi, tau)
				}(k, lo, hi)
			}
			wg.Wait()
		} else {
			peaks = append(peaks, step(1, g.J, tau))
		}

		peak := mergePeaks(peaks)
		if peak.negative >= 0 {
			return nil, errs.Config("Diffusion", "negative diffusion %g at x=%g τ=%g", peak.value, g.X(peak.negative), tau)
		}
		if peak.ratio > report.Ratio {
			report.Ratio = peak.ratio
		}
		if peak.ratio > StabilityLimit {
			if s.cfg.Stability == StabilityReject {
				logger.Warn.Printf("💥 PDE stability bound violated at j=%d layer=%d (ratio %.4f)", peak.j, n+1, peak.ratio)
				return nil, &errs.InstabilityError{
					Engine: "pde",
					Index:  peak.j,
					Step:   n + 1,
					Value:  peak.ratio,
					Reason: fmt.Sprintf("explicit stability bound violated: dt·σ/dx² = %.4f > %.1f at τ=%g", peak.ratio, StabilityLimit, tau),
				}
			}
			report.Stable = false
			if !warned {
				logger.Warn.Printf("⚠️  PDE stability bound violated at layer %d (ratio %.4f), solving anyway", n+1, peak.ratio)
				warned = true
			}
		}

		tauNext := g.Tau(n + 1)
		next[0] = s.cfg.Boundary.Left(tauNext)
		next[g.J] = s.cfg.Boundary.Right(tauNext)

		if j, bad := firstNonFinite(next); bad {
			logger.Warn.Printf("💥 PDE value at j=%d layer=%d is %v", j, n+1, next[j])
			return nil, &errs.InstabilityError{Engine: "pde", Index: j, Step: n + 1, Value: next[j], Reason: "non-finite grid value"}
		}

		v.SetCol(n+1, next)
		prev, next = next, prev
	}

	logger.Debug.Printf("🧮 PDE solved J=%d N=%d workers=%d ratio=%.4f in %v", g.J, g.N, s.cfg.Workers, report.Ratio, time.Since(start))
	return &Surface{grid: g, values: v, report: report}, nil
}

// layerPeak is the largest diffusion ratio met while updating part of a layer
type layerPeak struct {
	ratio    float64
	j        int
	negative int // first node with σ < 0, or -1
	value    float64
}

// mergePeaks keeps the lowest index on ties so the outcome does not depend on
// the worker count
func mergePeaks(peaks []layerPeak) layerPeak {
	out := layerPeak{j: -1, negative: -1}
	for _, p := range peaks {
		if p.ratio > out.ratio {
			out.ratio, out.j = p.ratio, p.j
		}
		if out.negative < 0 && p.negative >= 0 {
			out.negative, out.value = p.negative, p.value
		}
	}
	return out
}

// MinTimeSteps returns the smallest N that keeps the configured grid within the
// stability bound for the given J. The Config's own N is ignored.
func MinTimeSteps(cfg Config) (int, error) {
	single := cfg
	single.N = 1
	single.Budget = math.MaxInt64
	g, err := single.validate()
	if err != nil {
		return 0, err
	}
	report, err := checkStability(g, cfg.Coefficients)
	if err != nil {
		return 0, err
	}
	return minSteps(g, report.Ratio), nil
}

// minSteps scales the ratio measured at g.N up to the bound
func minSteps(g Grid, ratio float64) int {
	if ratio <= 0 {
		return 1
	}
	perStep := ratio * float64(g.N) // ratio with N = 1
	n := int(math.Ceil(perStep / StabilityLimit))
	for n > 1 && perStep/float64(n-1) <= StabilityLimit {
		n--
	}
	for perStep/float64(n) > StabilityLimit {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// checkStability samples dt·σ/dx² and the convection bound
// (μ·dt/dx)² <= 2·dt·σ/dx² over every interior node at τ ∈ {0, T/2, T}
func checkStability(g Grid, c Coefficients) (StabilityReport, error) {
	scale := g.Dt / (g.Dx * g.Dx)
	report := StabilityReport{ConvectionBounded: true}
	for _, tau := range []float64{0, g.T / 2, g.T} {
		for j := 1; j < g.J; j++ {
			x := g.X(j)
			d := c.Diffusion(x, tau)
			if d < 0 {
				return StabilityReport{}, errs.Config("Diffusion", "negative diffusion %g at x=%g τ=%g", d, x, tau)
			}
			r := d * scale
			if r > report.Ratio {
				report.Ratio = r
			}
			if m := c.Convection(x, tau) * g.Dt / g.Dx; m*m > 2*r {
				report.ConvectionBounded = false
			}
		}
	}
	report.Stable = report.Ratio <= StabilityLimit
	return report, nil
}

func firstNonFinite(xs []float64) (int, bool) {
	for j, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return j, true
		}
	}
	return -1, false
}
