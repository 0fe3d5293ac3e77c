// Package fdmc is the pricing facade over the finite-difference, Monte Carlo
// and closed-form engines. It resolves configuration defaults, picks the
// execution mode and records every run in metrics and the audit trail.
package fdmc

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/jwaldner/fdmc/internal/analytic"
	"github.com/jwaldner/fdmc/internal/audit"
	"github.com/jwaldner/fdmc/internal/config"
	"github.com/jwaldner/fdmc/internal/errs"
	"github.com/jwaldner/fdmc/internal/logger"
	"github.com/jwaldner/fdmc/internal/metrics"
	"github.com/jwaldner/fdmc/internal/models"
	"github.com/jwaldner/fdmc/internal/montecarlo"
	"github.com/jwaldner/fdmc/internal/pde"
	"github.com/jwaldner/fdmc/internal/rng"
)

// ExecutionMode defines how calculations are performed
type ExecutionMode string

const (
	ExecutionModeAuto       ExecutionMode = "auto"
	ExecutionModeParallel   ExecutionMode = "parallel"
	ExecutionModeSequential ExecutionMode = "sequential"
)

// Below these sizes auto mode stays sequential
const (
	autoMinPaths      = 20000
	autoMinSpaceSteps = 2000
)

// Engine prices contracts with every available method
type Engine struct {
	cfg           *config.Config
	executionMode ExecutionMode
	workers       int

	metrics *metrics.Metrics
	audit   *audit.Recorder
	perf    *PerformanceWrapper
}

// Option customises an Engine
type Option func(*Engine)

// WithMetrics records runs into m
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithAudit writes one audit file per run through r
func WithAudit(r *audit.Recorder) Option {
	return func(e *Engine) { e.audit = r }
}

// NewEngine creates an engine using the configured execution mode
func NewEngine(cfg *config.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.Load()
	}
	return NewEngineForced(cfg.Engine.ExecutionMode, cfg, opts...)
}

// NewEngineForced creates an engine with an explicit execution mode.
// Unknown modes fall back to auto.
func NewEngineForced(mode string, cfg *config.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.Load()
	}
	e := &Engine{cfg: cfg, perf: NewPerformanceWrapper()}

	switch ExecutionMode(mode) {
	case ExecutionModeParallel, ExecutionModeSequential:
		e.executionMode = ExecutionMode(mode)
	default:
		e.executionMode = ExecutionModeAuto
	}

	e.workers = cfg.Engine.Workers
	if e.workers <= 0 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	if e.executionMode == ExecutionModeSequential {
		e.workers = 1
	}

	for _, opt := range opts {
		opt(e)
	}
	logger.Info.Printf("🔧 EXECUTION MODE: %s (%d workers)", e.executionMode, e.workers)
	return e
}

// Close prints the performance report when benchmarks are enabled
func (e *Engine) Close() {
	if e.cfg.Engine.EnableBenchmarks {
		e.perf.Close()
	}
}

// Mode returns the configured execution mode
func (e *Engine) Mode() ExecutionMode { return e.executionMode }

// Workers returns the worker count used by parallel runs
func (e *Engine) Workers() int { return e.workers }

// Performance returns the timing recorder
func (e *Engine) Performance() *PerformanceWrapper { return e.perf }

// Config returns the defaults the engine resolves requests against
func (e *Engine) Config() *config.Config { return e.cfg }

// workersFor resolves the worker count of one run of the given size
func (e *Engine) workersFor(size, autoThreshold int) int {
	switch e.executionMode {
	case ExecutionModeSequential:
		return 1
	case ExecutionModeParallel:
		return e.workers
	}
	if size >= autoThreshold && e.workers > 1 {
		return e.workers
	}
	return 1
}

// modeLabel describes the resolved execution of one run
func modeLabel(workers int) string {
	if workers > 1 {
		return string(ExecutionModeParallel)
	}
	return string(ExecutionModeSequential)
}

// AnalyticResult is a closed-form valuation
type AnalyticResult struct {
	analytic.Result
	Spot    float64       `json:"spot"`
	Elapsed time.Duration `json:"elapsed"`
}

// PriceAnalytic evaluates the closed form with greeks
func (e *Engine) PriceAnalytic(c models.Contract, spot float64) (*AnalyticResult, error) {
	start := time.Now()
	if err := c.Validate(); err != nil {
		return nil, errs.Config("contract", "%v", err)
	}
	if !(spot > 0) {
		return nil, errs.Config("spot", "must be positive, got %g", spot)
	}
	res := &AnalyticResult{Result: analytic.Evaluate(&c, spot), Spot: spot}
	res.Elapsed = time.Since(start)
	e.perf.Record("analytic", res.Elapsed)
	e.metrics.RecordRun("analytic", res.Elapsed, nil)
	return res, nil
}

// PDERequest describes one finite-difference valuation. Zero fields take the
// configured defaults.
type PDERequest struct {
	Contract  models.Contract `json:"contract"`
	Spot      float64         `json:"spot"`
	Smax      float64         `json:"smax,omitempty"`
	J         int             `json:"j,omitempty"`
	N         int             `json:"n,omitempty"`
	Stability string          `json:"stability,omitempty"`
}

// PDEResult is a finite-difference valuation with its grid diagnostics
type PDEResult struct {
	Price    float64           `json:"price"`
	Greeks   pde.SurfaceGreeks `json:"greeks"`
	Analytic float64           `json:"analytic"`
	AbsError float64           `json:"abs_error"`
	Spot     float64           `json:"spot"`
	Smax     float64           `json:"smax"`
	J        int               `json:"j"`
	N        int               `json:"n"`
	Ratio    float64           `json:"stability_ratio"`
	Stable   bool              `json:"stable"`
	Workers  int               `json:"workers"`
	Elapsed  time.Duration     `json:"elapsed"`
	RunID    string            `json:"run_id,omitempty"`

	surface *pde.Surface
}

// Surface returns the solved value grid
func (r *PDEResult) Surface() *pde.Surface { return r.surface }

// resolvePDE fills request defaults and builds the solver configuration
func (e *Engine) resolvePDE(req PDERequest) (pde.Config, PDERequest, error) {
	c := &req.Contract
	if err := c.Validate(); err != nil {
		return pde.Config{}, req, errs.Config("contract", "%v", err)
	}
	if req.J == 0 {
		req.J = e.cfg.PDE.SpaceSteps
	}
	if req.N == 0 {
		req.N = e.cfg.PDE.TimeSteps
	}
	if req.Stability == "" {
		req.Stability = e.cfg.PDE.Stability
	}
	if req.Smax == 0 {
		if e.cfg.PDE.SmaxMultiple > 0 {
			req.Smax = e.cfg.PDE.SmaxMultiple * c.Strike
		} else {
			req.Smax = pde.SuggestSmax(c, req.Spot, e.cfg.PDE.DomainStdDevs)
		}
	}
	if err := pde.CheckDomain(c, req.Spot, req.Smax, e.cfg.PDE.DomainStdDevs); err != nil {
		return pde.Config{}, req, err
	}

	cfg := pde.Config{
		Problem:   pde.BlackScholes(c, req.Smax),
		Smax:      req.Smax,
		T:         c.Maturity,
		J:         req.J,
		N:         req.N,
		Stability: pde.ParseStabilityPolicy(req.Stability),
		Budget:    e.cfg.PDE.CellBudget,
	}
	if cfg.N == 0 {
		n, err := pde.MinTimeSteps(cfg)
		if err != nil {
			return pde.Config{}, req, err
		}
		cfg.N = n
		req.N = n
	}
	cfg.Workers = e.workersFor(cfg.J, autoMinSpaceSteps)
	return cfg, req, nil
}

// PricePDE solves the Black-Scholes PDE and reads the price at the spot
func (e *Engine) PricePDE(ctx context.Context, req PDERequest) (*PDEResult, error) {
	start := time.Now()
	runID := e.beginAudit("pde", req.Contract.Type, req)

	res, err := e.pricePDE(ctx, req)
	elapsed := time.Since(start)
	if res != nil {
		res.Elapsed = elapsed
		res.RunID = runID
	}

	e.perf.Record("pde", elapsed)
	e.metrics.RecordRun("pde", elapsed, err)
	e.finishAudit(runID, res, err)
	if err != nil {
		logger.Warn.Printf("⚠️  PDE run failed: %v", err)
		return nil, fmt.Errorf("pde pricing: %w", err)
	}
	logger.Info.Printf("🧮 PDE %s K=%g S=%g → %.6f (closed form %.6f) J=%d N=%d in %v",
		req.Contract.Type, req.Contract.Strike, req.Spot, res.Price, res.Analytic, res.J, res.N, elapsed)
	return res, nil
}

func (e *Engine) pricePDE(ctx context.Context, req PDERequest) (*PDEResult, error) {
	cfg, req, err := e.resolvePDE(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	solver, err := pde.NewSolver(cfg)
	if err != nil {
		return nil, err
	}
	surface, err := solver.Solve()
	if err != nil {
		return nil, err
	}
	e.metrics.RecordGrid(surface.Grid().Cells())

	price, err := surface.ValueAt(req.Spot)
	if err != nil {
		return nil, err
	}
	greeks, err := surface.Greeks(req.Spot)
	if err != nil {
		return nil, err
	}
	exact := analytic.Price(&req.Contract, req.Spot)

	return &PDEResult{
		Price:    price,
		Greeks:   greeks,
		Analytic: exact,
		AbsError: math.Abs(price - exact),
		Spot:     req.Spot,
		Smax:     req.Smax,
		J:        cfg.J,
		N:        cfg.N,
		Ratio:    surface.Ratio(),
		Stable:   surface.Stable(),
		Workers:  cfg.Workers,
		surface:  surface,
	}, nil
}

// MCRequest describes one Monte Carlo valuation. Zero fields take the
// configured defaults.
type MCRequest struct {
	Contract      models.Contract `json:"contract"`
	Spot          float64         `json:"spot"`
	Steps         int             `json:"steps,omitempty"`
	Paths         int             `json:"paths,omitempty"`
	Seed          uint64          `json:"seed,omitempty"`
	Generator     string          `json:"generator,omitempty"`
	Scheme        string          `json:"scheme,omitempty"`
	Beta          float64         `json:"beta,omitempty"` // CEV elasticity, 0 = GBM
	ProgressEvery int             `json:"progress_every,omitempty"`
}

// MCResult is a Monte Carlo valuation with its statistics
type MCResult struct {
	montecarlo.Result
	Analytic  float64 `json:"analytic"`
	AbsError  float64 `json:"abs_error"`
	Spot      float64 `json:"spot"`
	Generator string  `json:"generator"`
	Scheme    string  `json:"scheme"`
	RunID     string  `json:"run_id,omitempty"`
}

// resolveMC fills request defaults and builds the simulator configuration
func (e *Engine) resolveMC(req MCRequest) (montecarlo.Config, MCRequest, error) {
	c := &req.Contract
	if err := c.Validate(); err != nil {
		return montecarlo.Config{}, req, errs.Config("contract", "%v", err)
	}
	mc := e.cfg.MonteCarlo
	if req.Steps == 0 {
		req.Steps = mc.Steps
	}
	if req.Paths == 0 {
		req.Paths = mc.Paths
	}
	if req.Seed == 0 {
		req.Seed = mc.Seed
	}
	if req.Generator == "" {
		req.Generator = mc.Generator
	}
	if req.Scheme == "" {
		req.Scheme = mc.Scheme
	}
	if req.ProgressEvery == 0 {
		req.ProgressEvery = mc.ProgressEvery
	}

	scheme, err := montecarlo.ParseScheme(req.Scheme)
	if err != nil {
		return montecarlo.Config{}, req, err
	}
	src, streams, err := rng.FromName(req.Generator, req.Seed, req.Steps)
	if err != nil {
		return montecarlo.Config{}, req, errs.Config("generator", "%v", err)
	}

	proc := montecarlo.GBM(c)
	if req.Beta != 0 && req.Beta != 1 {
		proc = montecarlo.CEV(c, req.Beta)
	}

	cfg := montecarlo.Config{
		Process:       proc,
		S0:            req.Spot,
		Steps:         req.Steps,
		Paths:         req.Paths,
		Scheme:        scheme,
		Workers:       e.workersFor(req.Paths, autoMinPaths),
		ProgressEvery: req.ProgressEvery,
		Budget:        mc.StepBudget,
	}
	if cfg.Workers > 1 {
		cfg.Streams = streams
	} else {
		cfg.Source = src
	}
	return cfg, req, nil
}

// PriceMonteCarlo simulates the contract. progress, when non-nil, receives
// running snapshots; it is called from worker goroutines one at a time.
func (e *Engine) PriceMonteCarlo(ctx context.Context, req MCRequest, progress func(montecarlo.Progress)) (*MCResult, error) {
	start := time.Now()
	runID := e.beginAudit("montecarlo", req.Contract.Type, req)

	res, err := e.priceMonteCarlo(ctx, req, runID, progress)
	elapsed := time.Since(start)
	if res != nil {
		res.RunID = runID
	}

	e.perf.Record("montecarlo", elapsed)
	e.metrics.RecordRun("montecarlo", elapsed, err)
	e.finishAudit(runID, res, err)
	if err != nil {
		logger.Warn.Printf("⚠️  Monte Carlo run failed: %v", err)
		return nil, fmt.Errorf("monte carlo pricing: %w", err)
	}
	e.metrics.RecordSimulation(res.Paths, res.OriginHits)
	if res.OriginHits > 0 {
		logger.Info.Printf("🎯 %d of %d paths absorbed at the origin", res.OriginHits, res.Paths)
	}
	logger.Info.Printf("🎲 MC %s K=%g S=%g → %.6f ± %.6f (closed form %.6f) paths=%d workers=%d in %v",
		req.Contract.Type, req.Contract.Strike, req.Spot, res.Price, res.StdErr, res.Analytic, res.Paths, res.Workers, elapsed)
	return res, nil
}

func (e *Engine) priceMonteCarlo(ctx context.Context, req MCRequest, runID string, progress func(montecarlo.Progress)) (*MCResult, error) {
	cfg, req, err := e.resolveMC(req)
	if err != nil {
		return nil, err
	}
	if cfg.Source != nil {
		defer rng.Release(cfg.Source)
	}
	if progress != nil || runID != "" {
		cfg.Progress = func(p montecarlo.Progress) {
			if runID != "" {
				if err := e.audit.Append(runID, p); err != nil {
					logger.Debug.Printf("📝 AUDIT: progress entry dropped at %d/%d: %v", p.Done, p.Total, err)
				}
			}
			if progress != nil {
				progress(p)
			}
		}
	}

	sim, err := montecarlo.NewSimulator(cfg)
	if err != nil {
		return nil, err
	}
	out, err := sim.Run(ctx)
	if err != nil {
		return nil, err
	}
	exact := analytic.Price(&req.Contract, req.Spot)
	return &MCResult{
		Result:    out,
		Analytic:  exact,
		AbsError:  math.Abs(out.Price - exact),
		Spot:      req.Spot,
		Generator: req.Generator,
		Scheme:    cfg.Scheme.String(),
	}, nil
}

func (e *Engine) beginAudit(engine string, t models.OptionType, params interface{}) string {
	if e.audit == nil {
		return ""
	}
	id := audit.NewRunID()
	if err := e.audit.Begin(id, engine, string(t), params); err != nil {
		logger.Warn.Printf("⚠️ AUDIT: %v", err)
		return ""
	}
	return id
}

func (e *Engine) finishAudit(runID string, result interface{}, err error) {
	if runID == "" {
		return
	}
	if aerr := e.audit.Finish(runID, result, err); aerr != nil {
		logger.Warn.Printf("⚠️ AUDIT: %v", aerr)
	}
}
