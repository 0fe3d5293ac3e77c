package analytic

import (
	"math"
	"testing"

	"github.com/jwaldner/fdmc/internal/models"
)

func TestPriceReferenceBatches(t *testing.T) {
	tests := []struct {
		name      string
		c         models.Contract
		s         float64
		call, put float64
	}{
		{"batch 1", models.Contract{Strike: 65, Maturity: 0.25, Rate: 0.08, Volatility: 0.30}, 60, 2.13337, 5.84628},
		{"batch 2", models.Contract{Strike: 100, Maturity: 1, Rate: 0, Volatility: 0.2}, 100, 7.96557, 7.96557},
		{"batch 3", models.Contract{Strike: 10, Maturity: 1, Rate: 0.12, Volatility: 0.5}, 5, 0.204058, 4.07326},
		{"batch 4", models.Contract{Strike: 100, Maturity: 30, Rate: 0.08, Volatility: 0.30}, 100, 92.17570, 1.24750},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := Price(tt.c.WithType(models.Call), tt.s)
			put := Price(tt.c.WithType(models.Put), tt.s)
			if math.Abs(call-tt.call) > 1e-4 {
				t.Errorf("call = %.6f, want %.6f", call, tt.call)
			}
			if math.Abs(put-tt.put) > 1e-4 {
				t.Errorf("put = %.6f, want %.6f", put, tt.put)
			}
			if gap := ParityGap(&tt.c, tt.s, call, put); math.Abs(gap) > 1e-9 {
				t.Errorf("parity gap = %g", gap)
			}
		})
	}
}

func TestGreeksReference(t *testing.T) {
	c := models.Contract{Strike: 100, Maturity: 0.5, Rate: 0.1, Dividend: 0.1, Volatility: 0.36}
	call := Evaluate(c.WithType(models.Call), 105)
	put := Evaluate(c.WithType(models.Put), 105)

	if math.Abs(call.Greeks.Delta-0.5946) > 1e-3 {
		t.Errorf("call delta = %.4f, want 0.5946", call.Greeks.Delta)
	}
	if math.Abs(put.Greeks.Delta+0.3566) > 1e-3 {
		t.Errorf("put delta = %.4f, want -0.3566", put.Greeks.Delta)
	}
	if math.Abs(call.Greeks.Gamma-put.Greeks.Gamma) > 1e-12 {
		t.Errorf("call and put gamma differ: %g vs %g", call.Greeks.Gamma, put.Greeks.Gamma)
	}
	if math.Abs(call.Greeks.Gamma-0.0135) > 1e-3 {
		t.Errorf("gamma = %.4f, want 0.0135", call.Greeks.Gamma)
	}
}

func TestGreeksMatchFiniteDifferences(t *testing.T) {
	base := models.Contract{Strike: 65, Maturity: 0.25, Rate: 0.08, Volatility: 0.3}
	const s, h = 62.0, 1e-3

	for _, typ := range []models.OptionType{models.Call, models.Put} {
		c := base.WithType(typ)
		g := Evaluate(c, s).Greeks

		delta := (Price(c, s+h) - Price(c, s-h)) / (2 * h)
		gamma := (Price(c, s+h) - 2*Price(c, s) + Price(c, s-h)) / (h * h)
		if math.Abs(delta-g.Delta) > 1e-6 {
			t.Errorf("%s delta = %.8f, finite difference %.8f", typ, g.Delta, delta)
		}
		if math.Abs(gamma-g.Gamma) > 1e-4 {
			t.Errorf("%s gamma = %.8f, finite difference %.8f", typ, g.Gamma, gamma)
		}

		bumped := *c
		bumped.Volatility += h
		lowered := *c
		lowered.Volatility -= h
		vega := (Price(&bumped, s) - Price(&lowered, s)) / (2 * h)
		if math.Abs(vega-g.Vega) > 1e-5 {
			t.Errorf("%s vega = %.8f, finite difference %.8f", typ, g.Vega, vega)
		}

		// a smaller bump keeps the O(h²) truncation of the maturity difference below the tolerance
		const ht = 1e-4
		longer := *c
		longer.Maturity += ht
		shorter := *c
		shorter.Maturity -= ht
		theta := -(Price(&longer, s) - Price(&shorter, s)) / (2 * ht)
		if math.Abs(theta-g.Theta) > 1e-5 {
			t.Errorf("%s theta = %.8f, finite difference %.8f", typ, g.Theta, theta)
		}
	}
}

func TestZeroVolatility(t *testing.T) {
	c := models.Contract{Strike: 65, Maturity: 0.25, Rate: 0.08, Volatility: 0, Type: models.Call}
	want := 80 - 65*math.Exp(-0.08*0.25)
	if got := Price(&c, 80); math.Abs(got-want) > 1e-12 {
		t.Errorf("zero-vol call = %.10f, want %.10f", got, want)
	}
	put := c.WithType(models.Put)
	if got := Price(put, 80); got != 0 {
		t.Errorf("zero-vol out-of-the-money put = %g, want 0", got)
	}
}

func TestParityConversions(t *testing.T) {
	c := models.Contract{Strike: 65, Maturity: 0.25, Rate: 0.08, Volatility: 0.3}
	call := Price(c.WithType(models.Call), 60)
	put := Price(c.WithType(models.Put), 60)
	if got := CallFromPut(&c, 60, put); math.Abs(got-call) > 1e-10 {
		t.Errorf("CallFromPut = %.10f, want %.10f", got, call)
	}
	if got := PutFromCall(&c, 60, call); math.Abs(got-put) > 1e-10 {
		t.Errorf("PutFromCall = %.10f, want %.10f", got, put)
	}
}

func TestPerpetualAmerican(t *testing.T) {
	c := models.Contract{Strike: 100, Rate: 0.1, Dividend: 0.08, Volatility: 0.1}
	if got := Perpetual(c.WithType(models.Call), 110); math.Abs(got-18.5035) > 1e-3 {
		t.Errorf("perpetual call = %.4f, want 18.5035", got)
	}
	if got := Perpetual(c.WithType(models.Put), 110); math.Abs(got-3.03106) > 1e-3 {
		t.Errorf("perpetual put = %.5f, want 3.03106", got)
	}
	if got := Perpetual(c.WithType(models.Put), 10); got != 90 {
		t.Errorf("deep in-the-money perpetual put should be exercised: got %g", got)
	}
}
