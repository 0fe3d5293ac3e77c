// Package analytic holds closed-form European prices used as a correctness
// oracle for the numerical engines.
package analytic

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/jwaldner/fdmc/internal/models"
)

// Greeks are sensitivities of the closed-form price
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// Result is a closed-form price with its greeks
type Result struct {
	Price  float64 `json:"price"`
	Greeks Greeks  `json:"greeks"`
}

func d1d2(c *models.Contract, s float64) (float64, float64) {
	sqrtT := math.Sqrt(c.Maturity)
	d1 := (math.Log(s/c.Strike) + (c.Rate-c.Dividend+0.5*c.Volatility*c.Volatility)*c.Maturity) /
		(c.Volatility * sqrtT)
	return d1, d1 - c.Volatility*sqrtT
}

// Price is the Black-Scholes-Merton value at spot s. At zero volatility it
// returns the discounted deterministic payoff of the forward.
func Price(c *models.Contract, s float64) float64 {
	if c.Volatility == 0 {
		return ZeroVolPrice(c, s)
	}
	d1, d2 := d1d2(c, s)
	n := distuv.UnitNormal
	df := math.Exp(-c.Rate * c.Maturity)
	qf := math.Exp(-c.Dividend * c.Maturity)
	if c.Type == models.Put {
		return c.Strike*df*n.CDF(-d2) - s*qf*n.CDF(-d1)
	}
	return s*qf*n.CDF(d1) - c.Strike*df*n.CDF(d2)
}

// ZeroVolPrice is e^(-rT)·payoff(S·e^((r-q)T))
func ZeroVolPrice(c *models.Contract, s float64) float64 {
	forward := s * math.Exp((c.Rate-c.Dividend)*c.Maturity)
	return c.Discount() * c.Payoff(forward)
}

// Evaluate returns the price and greeks at spot s. Theta is per year.
func Evaluate(c *models.Contract, s float64) Result {
	if c.Volatility == 0 {
		return Result{Price: ZeroVolPrice(c, s)}
	}
	d1, d2 := d1d2(c, s)
	n := distuv.UnitNormal
	sqrtT := math.Sqrt(c.Maturity)
	df := math.Exp(-c.Rate * c.Maturity)
	qf := math.Exp(-c.Dividend * c.Maturity)
	pdf := n.Prob(d1)

	g := Greeks{
		Gamma: qf * pdf / (s * c.Volatility * sqrtT),
		Vega:  s * qf * sqrtT * pdf,
	}
	decay := -s * qf * pdf * c.Volatility / (2 * sqrtT)
	if c.Type == models.Put {
		g.Delta = qf * (n.CDF(d1) - 1)
		g.Theta = decay + c.Rate*c.Strike*df*n.CDF(-d2) - c.Dividend*s*qf*n.CDF(-d1)
		g.Rho = -c.Strike * c.Maturity * df * n.CDF(-d2)
	} else {
		g.Delta = qf * n.CDF(d1)
		g.Theta = decay - c.Rate*c.Strike*df*n.CDF(d2) + c.Dividend*s*qf*n.CDF(d1)
		g.Rho = c.Strike * c.Maturity * df * n.CDF(d2)
	}
	return Result{Price: Price(c, s), Greeks: g}
}

// ParityGap returns C - P - (S·e^(-qT) - K·e^(-rT)), which is zero when
// call and put prices satisfy put-call parity.
func ParityGap(c *models.Contract, s, call, put float64) float64 {
	return call - put - (s*math.Exp(-c.Dividend*c.Maturity) - c.Strike*c.Discount())
}

// CallFromPut converts a put price to a call price through parity
func CallFromPut(c *models.Contract, s, put float64) float64 {
	return put + s*math.Exp(-c.Dividend*c.Maturity) - c.Strike*c.Discount()
}

// PutFromCall converts a call price to a put price through parity
func PutFromCall(c *models.Contract, s, call float64) float64 {
	return call - s*math.Exp(-c.Dividend*c.Maturity) + c.Strike*c.Discount()
}
