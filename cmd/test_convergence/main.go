package main

import (
	"context"
	"fmt"
	"math"

	"github.com/jwaldner/fdmc/fdmc_lib"
	"github.com/jwaldner/fdmc/internal/config"
	"github.com/jwaldner/fdmc/internal/models"
)

// Prints PDE error against grid refinement and Monte Carlo standard error
// against path count for the reference contracts.
func main() {
	cfg := config.Load()
	engine := fdmc.NewEngineForced("parallel", cfg)
	defer engine.Close()
	ctx := context.Background()

	fmt.Println("📐 PDE grid refinement (put K=65 T=0.25 r=0.08 σ=0.30, Smax=130, S=60)")
	fmt.Println("=======================================================================")
	put := models.Contract{Strike: 65, Maturity: 0.25, Rate: 0.08, Volatility: 0.30, Type: models.Put}
	prevErr := 0.0
	for _, j := range []int{25, 50, 100, 200, 400} {
		res, err := engine.PricePDE(ctx, fdmc.PDERequest{Contract: put, Spot: 60, Smax: 130, J: j})
		if err != nil {
			fmt.Printf("J=%-4d ❌ %v\n", j, err)
			continue
		}
		order := ""
		if prevErr > 0 && res.AbsError > 0 {
			order = fmt.Sprintf("  order %.2f", math.Log2(prevErr/res.AbsError))
		}
		fmt.Printf("J=%-4d N=%-7d price %.6f  error %.2e  ratio %.3f  %v%s\n",
			j, res.N, res.Price, res.AbsError, res.Ratio, res.Elapsed, order)
		prevErr = res.AbsError
	}

	fmt.Println()
	fmt.Println("🎲 Monte Carlo convergence (put K=155 T=1.28 r=0.04 σ=0.27, S=150)")
	fmt.Println("===================================================================")
	mcPut := models.Contract{Strike: 155, Maturity: 1.28, Rate: 0.04, Volatility: 0.27, Type: models.Put}
	prevSE := 0.0
	for _, paths := range []int{1000, 4000, 16000, 64000, 256000} {
		res, err := engine.PriceMonteCarlo(ctx, fdmc.MCRequest{Contract: mcPut, Spot: 150, Paths: paths}, nil)
		if err != nil {
			fmt.Printf("paths=%-7d ❌ %v\n", paths, err)
			continue
		}
		ratio := ""
		if prevSE > 0 {
			// quadrupling the paths should halve the standard error
			ratio = fmt.Sprintf("  se ratio %.2f", prevSE/res.StdErr)
		}
		fmt.Printf("paths=%-7d price %.6f  se %.6f  error %.6f  origin hits %d  %v%s\n",
			paths, res.Price, res.StdErr, res.AbsError, res.OriginHits, res.Elapsed, ratio)
		prevSE = res.StdErr
	}
}
