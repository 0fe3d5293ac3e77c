package pde

import (
	"fmt"
	"math"

	"github.com/jwaldner/fdmc/internal/errs"
	"github.com/jwaldner/fdmc/internal/models"
)

// DefaultStdDevs is how many standard deviations of log-spot the domain must cover
const DefaultStdDevs = 3.0

// BlackScholes builds the pricing problem for a European contract on [0, smax]:
// σ = ½σ²x², μ = (r-q)x, b = -r, f = 0, with Dirichlet data matching the
// deep out-of-the-money and in-the-money limits.
func BlackScholes(c *models.Contract, smax float64) Problem {
	halfVar := 0.5 * c.Volatility * c.Volatility
	carry := c.Rate - c.Dividend

	p := Problem{
		Coefficients: Coefficients{
			Diffusion:  func(x, _ float64) float64 { return halfVar * x * x },
			Convection: func(x, _ float64) float64 { return carry * x },
			Reaction:   func(_, _ float64) float64 { return -c.Rate },
			Source:     func(_, _ float64) float64 { return 0 },
		},
		Initial: c.Payoff,
	}

	if c.Type == models.Put {
		p.Boundary = Boundary{
			Left:  func(t float64) float64 { return c.Strike * math.Exp(-c.Rate*t) },
			Right: func(_ float64) float64 { return 0 },
		}
	} else {
		p.Boundary = Boundary{
			Left: func(_ float64) float64 { return 0 },
			Right: func(t float64) float64 {
				return smax*math.Exp(-c.Dividend*t) - c.Strike*math.Exp(-c.Rate*t)
			},
		}
	}
	return p
}

// CheckDomain rejects a spot outside (0, smax) and an smax that truncates the
// distribution: smax must reach max(K, spot)·exp(stdDevs·σ·√T).
// stdDevs <= 0 selects DefaultStdDevs.
func CheckDomain(c *models.Contract, spot, smax, stdDevs float64) error {
	if stdDevs <= 0 {
		stdDevs = DefaultStdDevs
	}
	if !(spot > 0) || spot >= smax {
		return &errs.DomainError{Reason: fmt.Sprintf("spot %g is outside (0, %g)", spot, smax)}
	}
	need := math.Max(c.Strike, spot) * math.Exp(stdDevs*c.Volatility*math.Sqrt(c.Maturity))
	if smax < need {
		return &errs.DomainError{Reason: fmt.Sprintf("Smax %g truncates the domain, need at least %.4f", smax, need)}
	}
	return nil
}

// SuggestSmax returns the smallest domain CheckDomain accepts, rounded up to a
// whole multiple of the strike.
func SuggestSmax(c *models.Contract, spot, stdDevs float64) float64 {
	if stdDevs <= 0 {
		stdDevs = DefaultStdDevs
	}
	need := math.Max(c.Strike, spot) * math.Exp(stdDevs*c.Volatility*math.Sqrt(c.Maturity))
	mult := math.Ceil(need / c.Strike)
	if mult < 2 {
		mult = 2
	}
	smax := mult * c.Strike
	if smax <= spot {
		smax += c.Strike
	}
	return smax
}
