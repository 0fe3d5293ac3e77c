// Package montecarlo prices European contracts by simulating the underlying
// with an Euler-Maruyama (or Milstein) discretisation of dX = a(X,t)dt + b(X,t)dW.
package montecarlo

import (
	"math"

	"github.com/jwaldner/fdmc/internal/models"
)

// Process couples a contract with the drift and diffusion of its underlying.
// The contract is shared, not copied, and must not change during a run.
type Process struct {
	Contract  *models.Contract
	Drift     func(x, t float64) float64
	Diffusion func(x, t float64) float64

	// DiffusionDerivative is ∂b/∂x, only needed by the Milstein scheme
	DiffusionDerivative func(x, t float64) float64
}

// GBM is risk-neutral geometric Brownian motion: a = (r-q)x, b = σx
func GBM(c *models.Contract) Process {
	return Process{
		Contract:            c,
		Drift:               func(x, _ float64) float64 { return (c.Rate - c.Dividend) * x },
		Diffusion:           func(x, _ float64) float64 { return c.Volatility * x },
		DiffusionDerivative: func(_, _ float64) float64 { return c.Volatility },
	}
}

// CEV is the constant-elasticity-of-variance process: b = σx^β.
// β = 1 reduces to GBM.
func CEV(c *models.Contract, beta float64) Process {
	return Process{
		Contract: c,
		Drift:    func(x, _ float64) float64 { return (c.Rate - c.Dividend) * x },
		Diffusion: func(x, _ float64) float64 {
			return c.Volatility * math.Pow(x, beta)
		},
		DiffusionDerivative: func(x, _ float64) float64 {
			return c.Volatility * beta * math.Pow(x, beta-1)
		},
	}
}
