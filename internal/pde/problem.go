// Package pde solves linear parabolic problems
//
//	∂V/∂τ = σ(x,τ)·∂²V/∂x² + μ(x,τ)·∂V/∂x + b(x,τ)·V + f(x,τ)
//
// on [0, Smax] × [0, T] with an explicit finite-difference scheme.
//
// Time runs in time-to-maturity τ = T − t: layer 0 of the value surface is the
// contract's maturity and holds the initial (terminal payoff) condition, layer N
// is the valuation date. Coefficients and boundary functions receive τ, and
// discounting is carried by the reaction term and the boundary functions.
package pde

import (
	"github.com/jwaldner/fdmc/internal/errs"
)

// Coefficients are the pluggable terms of the PDE, all functions of (x, τ)
type Coefficients struct {
	Diffusion  func(x, t float64) float64 // σ
	Convection func(x, t float64) float64 // μ
	Reaction   func(x, t float64) float64 // b
	Source     func(x, t float64) float64 // f
}

// Boundary holds the Dirichlet data at x = 0 and x = Smax
type Boundary struct {
	Left  func(t float64) float64
	Right func(t float64) float64
}

// Problem is a complete coefficient set with boundary and initial data
type Problem struct {
	Coefficients Coefficients
	Boundary     Boundary
	Initial      func(x float64) float64
}

// StabilityPolicy selects what happens when the explicit stability bound is violated
type StabilityPolicy int

const (
	// StabilityReject refuses to solve
	StabilityReject StabilityPolicy = iota
	// StabilityWarn solves anyway and marks the surface unstable
	StabilityWarn
)

// ParseStabilityPolicy maps "reject"/"warn" to a policy; anything else rejects
func ParseStabilityPolicy(s string) StabilityPolicy {
	if s == "warn" {
		return StabilityWarn
	}
	return StabilityReject
}

func (p StabilityPolicy) String() string {
	if p == StabilityWarn {
		return "warn"
	}
	return "reject"
}

// DefaultCellBudget caps (J+1)·(N+1)
const DefaultCellBudget int64 = 50_000_000

// Config is everything the solver needs for one problem
type Config struct {
	Problem
	Smax float64
	T    float64
	J    int
	N    int

	// Workers > 1 updates the interior of each layer concurrently
	Workers   int
	Stability StabilityPolicy
	// Budget caps (J+1)·(N+1); zero means DefaultCellBudget
	Budget int64
}

func (c Config) validate() (Grid, error) {
	switch {
	case c.Coefficients.Diffusion == nil:
		return Grid{}, errs.Config("Diffusion", "coefficient is not set")
	case c.Coefficients.Convection == nil:
		return Grid{}, errs.Config("Convection", "coefficient is not set")
	case c.Coefficients.Reaction == nil:
		return Grid{}, errs.Config("Reaction", "coefficient is not set")
	case c.Coefficients.Source == nil:
		return Grid{}, errs.Config("Source", "coefficient is not set")
	case c.Boundary.Left == nil:
		return Grid{}, errs.Config("Boundary.Left", "function is not set")
	case c.Boundary.Right == nil:
		return Grid{}, errs.Config("Boundary.Right", "function is not set")
	case c.Initial == nil:
		return Grid{}, errs.Config("Initial", "condition is not set")
	case c.Workers < 0:
		return Grid{}, errs.Config("Workers", "must be >= 0, got %d", c.Workers)
	case c.Budget < 0:
		return Grid{}, errs.Config("Budget", "must be >= 0, got %d", c.Budget)
	}

	g, err := NewGrid(c.Smax, c.T, c.J, c.N)
	if err != nil {
		return Grid{}, err
	}

	budget := c.Budget
	if budget == 0 {
		budget = DefaultCellBudget
	}
	if g.Cells() > budget {
		return Grid{}, errs.Config("J,N", "grid of %d cells exceeds the budget of %d", g.Cells(), budget)
	}
	return g, nil
}
