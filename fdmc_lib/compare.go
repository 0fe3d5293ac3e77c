package fdmc

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/jwaldner/fdmc/internal/analytic"
	"github.com/jwaldner/fdmc/internal/errs"
	"github.com/jwaldner/fdmc/internal/logger"
	"github.com/jwaldner/fdmc/internal/models"
	"github.com/jwaldner/fdmc/internal/pde"
)

// CompareRequest prices one contract at several spot levels with every engine.
// The PDE is solved once on a grid covering all spots.
type CompareRequest struct {
	Contract models.Contract `json:"contract"`
	Spots    []float64       `json:"spots"`

	Smax      float64 `json:"smax,omitempty"`
	J         int     `json:"j,omitempty"`
	N         int     `json:"n,omitempty"`
	Stability string  `json:"stability,omitempty"`

	Steps     int    `json:"steps,omitempty"`
	Paths     int    `json:"paths,omitempty"`
	Seed      uint64 `json:"seed,omitempty"`
	Generator string `json:"generator,omitempty"`
	Scheme    string `json:"scheme,omitempty"`
}

// CompareResult holds one row per spot plus phase timings in milliseconds
type CompareResult struct {
	Rows    []models.CompareRow `json:"rows"`
	Timing  map[string]float64  `json:"timing_ms"`
	J       int                 `json:"j"`
	N       int                 `json:"n"`
	Smax    float64             `json:"smax"`
	Stable  bool                `json:"stable"`
	Workers int                 `json:"workers"`
}

// Compare runs the closed form, the PDE and the simulator side by side
func (e *Engine) Compare(ctx context.Context, req CompareRequest) (*CompareResult, error) {
	if len(req.Spots) == 0 {
		return nil, errs.Config("spots", "at least one spot level is required")
	}
	hi := 0.0
	for _, s := range req.Spots {
		if !(s > 0) || math.IsInf(s, 0) {
			return nil, errs.Config("spots", "must be positive, got %g", s)
		}
		hi = math.Max(hi, s)
	}

	res := &CompareResult{Timing: make(map[string]float64)}

	// PHASE 1: ONE PDE SOLVE COVERING EVERY SPOT
	pdeStart := time.Now()
	pdeReq := PDERequest{
		Contract:  req.Contract,
		Spot:      hi,
		Smax:      req.Smax,
		J:         req.J,
		N:         req.N,
		Stability: req.Stability,
	}
	solved, err := e.PricePDE(ctx, pdeReq)
	if err != nil {
		return nil, err
	}
	surface := solved.Surface()
	res.J, res.N, res.Smax, res.Stable, res.Workers = solved.J, solved.N, solved.Smax, solved.Stable, solved.Workers
	res.Timing["pde"] = ms(time.Since(pdeStart))
	logger.Debug.Printf("🔧 PDE PHASE: %.3fms | J=%d N=%d Smax=%g", res.Timing["pde"], res.J, res.N, res.Smax)

	// PHASE 2: CLOSED FORM AND SIMULATION PER SPOT
	var analyticDur, mcDur time.Duration
	for _, spot := range req.Spots {
		row := models.CompareRow{Spot: spot}

		start := time.Now()
		row.Analytic = analytic.Price(&req.Contract, spot)
		analyticDur += time.Since(start)

		row.PDE, err = surface.ValueAt(spot)
		if err != nil {
			return nil, fmt.Errorf("pde value at %g: %w", spot, err)
		}
		row.PDEError = math.Abs(row.PDE - row.Analytic)

		start = time.Now()
		mc, err := e.PriceMonteCarlo(ctx, MCRequest{
			Contract:  req.Contract,
			Spot:      spot,
			Steps:     req.Steps,
			Paths:     req.Paths,
			Seed:      req.Seed,
			Generator: req.Generator,
			Scheme:    req.Scheme,
		}, nil)
		if err != nil {
			return nil, err
		}
		mcDur += time.Since(start)
		row.MonteCarlo = mc.Price
		row.MCStdErr = mc.StdErr
		row.MCError = math.Abs(mc.Price - row.Analytic)

		res.Rows = append(res.Rows, row)
	}
	res.Timing["analytic"] = ms(analyticDur)
	res.Timing["montecarlo"] = ms(mcDur)
	res.Timing["total"] = res.Timing["pde"] + res.Timing["analytic"] + res.Timing["montecarlo"]

	logger.Info.Printf("🔍 COMPARE: %d spots | PDE %.3fms | MC %.3fms | closed form %.3fms",
		len(req.Spots), res.Timing["pde"], res.Timing["montecarlo"], res.Timing["analytic"])
	return res, nil
}

// Scan prices the contract on the PDE valuation layer at evenly spaced spots
// between lo and hi, alongside the closed form.
func (e *Engine) Scan(ctx context.Context, req PDERequest, lo, hi float64, points int) ([]models.CompareRow, error) {
	if points < 2 || !(lo > 0) || !(hi > lo) {
		return nil, errs.Config("scan", "need 0 < lo < hi and at least 2 points, got [%g, %g] x %d", lo, hi, points)
	}
	req.Spot = hi
	solved, err := e.PricePDE(ctx, req)
	if err != nil {
		return nil, err
	}
	return scanSurface(solved.Surface(), &req.Contract, lo, hi, points)
}

func scanSurface(surface *pde.Surface, c *models.Contract, lo, hi float64, points int) ([]models.CompareRow, error) {
	rows := make([]models.CompareRow, 0, points)
	for _, spot := range floats.Span(make([]float64, points), lo, hi) {
		v, err := surface.ValueAt(spot)
		if err != nil {
			return nil, err
		}
		exact := analytic.Price(c, spot)
		rows = append(rows, models.CompareRow{
			Spot:     spot,
			Analytic: exact,
			PDE:      v,
			PDEError: math.Abs(v - exact),
		})
	}
	return rows, nil
}

func ms(d time.Duration) float64 {
	return d.Seconds() * 1000
}
