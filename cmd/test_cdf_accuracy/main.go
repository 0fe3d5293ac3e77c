package main

import (
	"fmt"
	"math"
	"os"

	"github.com/jwaldner/fdmc/internal/analytic"
	"github.com/jwaldner/fdmc/internal/models"
)

// Checks the closed form against published reference values
func main() {
	fmt.Println("🎯 Testing closed-form accuracy against reference values")
	fmt.Println("=======================================================")

	cases := []struct {
		name     string
		contract models.Contract
		spot     float64
		want     float64
	}{
		// Hull, Options Futures and Other Derivatives, example 15.6
		{"hull call", models.Contract{Strike: 40, Maturity: 0.5, Rate: 0.10, Volatility: 0.20, Type: models.Call}, 42, 4.7594},
		{"hull put", models.Contract{Strike: 40, Maturity: 0.5, Rate: 0.10, Volatility: 0.20, Type: models.Put}, 42, 0.8086},
		// ATM one year textbook value
		{"atm call", models.Contract{Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.20, Type: models.Call}, 100, 10.4506},
		// Haug, The Complete Guide to Option Pricing Formulas
		{"haug put", models.Contract{Strike: 65, Maturity: 0.25, Rate: 0.08, Volatility: 0.30, Type: models.Put}, 60, 5.8463},
		{"haug index put", models.Contract{Strike: 95, Maturity: 0.5, Rate: 0.10, Volatility: 0.20, Dividend: 0.05, Type: models.Put}, 100, 2.4648},
	}

	failed := false
	for _, tc := range cases {
		got := analytic.Price(&tc.contract, tc.spot)
		diff := math.Abs(got - tc.want)
		status := "✅"
		if diff > 5e-4 {
			status = "❌"
			failed = true
		}
		fmt.Printf("%s %-16s S=%-5.0f K=%-5.0f expected %.4f  got %.6f  diff %.2e\n",
			status, tc.name, tc.spot, tc.contract.Strike, tc.want, got, diff)
	}

	fmt.Println()
	fmt.Println("📐 Put-call parity")
	c := models.Contract{Strike: 65, Maturity: 0.25, Rate: 0.08, Volatility: 0.30, Type: models.Call}
	for _, spot := range []float64{50, 65, 80} {
		call := analytic.Price(&c, spot)
		put := analytic.Price(c.WithType(models.Put), spot)
		gap := analytic.ParityGap(&c, spot, call, put)
		fmt.Printf("   S=%.0f  call %.6f  put %.6f  gap %.1e\n", spot, call, put, gap)
		if math.Abs(gap) > 1e-10 {
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}
