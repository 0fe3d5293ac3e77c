package analytic

import (
	"math"

	"github.com/jwaldner/fdmc/internal/models"
)

// Perpetual prices a perpetual American option with cost of carry b = r - q.
// Maturity is ignored.
func Perpetual(c *models.Contract, s float64) float64 {
	sig2 := c.Volatility * c.Volatility
	b := c.Rate - c.Dividend
	root := math.Sqrt(math.Pow(b/sig2-0.5, 2) + 2*c.Rate/sig2)

	if c.Type == models.Put {
		y2 := 0.5 - b/sig2 - root
		boundary := c.Strike * y2 / (y2 - 1)
		if s <= boundary {
			return c.Strike - s
		}
		return c.Strike / (1 - y2) * math.Pow((y2-1)/y2*s/c.Strike, y2)
	}

	y1 := 0.5 - b/sig2 + root
	if y1 <= 1 {
		// never optimal to exercise; the call is worth the underlying
		return s
	}
	boundary := c.Strike * y1 / (y1 - 1)
	if s >= boundary {
		return s - c.Strike
	}
	return c.Strike / (y1 - 1) * math.Pow((y1-1)/y1*s/c.Strike, y1)
}
