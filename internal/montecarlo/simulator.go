package montecarlo

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jwaldner/fdmc/internal/errs"
	"github.com/jwaldner/fdmc/internal/logger"
	"github.com/jwaldner/fdmc/internal/rng"
)

// Scheme is the time discretisation of the SDE
type Scheme int

const (
	Euler Scheme = iota
	Milstein
)

func (s Scheme) String() string {
	if s == Milstein {
		return "milstein"
	}
	return "euler"
}

// ParseScheme accepts "euler" (or empty) and "milstein"
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "euler", "euler-maruyama":
		return Euler, nil
	case "milstein":
		return Milstein, nil
	}
	return Euler, errs.Config("Scheme", "unknown scheme %q", s)
}

// DefaultStepBudget caps Paths·Steps
const DefaultStepBudget int64 = 2_000_000_000

// cancelCheck is how many paths a worker simulates between context checks
const cancelCheck = 1024

// Config is everything a simulation run needs
type Config struct {
	Process Process
	S0      float64
	Steps   int // M
	Paths   int // NSim
	Scheme  Scheme

	// Source drives a sequential run. Streams is required when Workers > 1 and
	// is used for a sequential run when Source is nil.
	Source  rng.Source
	Streams rng.StreamFactory
	Workers int

	// Progress, when set, receives a running snapshot every ProgressEvery paths
	Progress      func(Progress)
	ProgressEvery int

	// Budget caps Paths·Steps; zero means DefaultStepBudget
	Budget int64
}

// Progress is a running snapshot of a simulation
type Progress struct {
	Done       int64
	Total      int64
	OriginHits int64
	Estimate   Estimate
}

// Result is the outcome of a completed run
type Result struct {
	Price      float64       `json:"price"`
	StdDev     float64       `json:"std_dev"`
	StdErr     float64       `json:"std_err"`
	Mean       float64       `json:"mean_payoff"`
	Paths      int           `json:"paths"`
	Steps      int           `json:"steps"`
	OriginHits int64         `json:"origin_hits"`
	Discount   float64       `json:"discount"`
	Workers    int           `json:"workers"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Simulator runs one configured simulation
type Simulator struct {
	cfg     Config
	workers int
}

// NewSimulator validates the configuration
func NewSimulator(cfg Config) (*Simulator, error) {
	p := cfg.Process
	switch {
	case p.Contract == nil:
		return nil, errs.Config("Process.Contract", "is not set")
	case p.Drift == nil:
		return nil, errs.Config("Process.Drift", "is not set")
	case p.Diffusion == nil:
		return nil, errs.Config("Process.Diffusion", "is not set")
	case cfg.Scheme == Milstein && p.DiffusionDerivative == nil:
		return nil, errs.Config("Process.DiffusionDerivative", "is required by the Milstein scheme")
	case !(cfg.S0 > 0) || math.IsInf(cfg.S0, 0):
		return nil, errs.Config("S0", "must be positive and finite, got %g", cfg.S0)
	case cfg.Steps < 1:
		return nil, errs.Config("Steps", "must be >= 1, got %d", cfg.Steps)
	case cfg.Paths < 1:
		return nil, errs.Config("Paths", "must be >= 1, got %d", cfg.Paths)
	case cfg.Workers < 0:
		return nil, errs.Config("Workers", "must be >= 0, got %d", cfg.Workers)
	case cfg.ProgressEvery < 0:
		return nil, errs.Config("ProgressEvery", "must be >= 0, got %d", cfg.ProgressEvery)
	case cfg.Budget < 0:
		return nil, errs.Config("Budget", "must be >= 0, got %d", cfg.Budget)
	}
	if err := p.Contract.Validate(); err != nil {
		return nil, errs.Config("Process.Contract", "%v", err)
	}

	budget := cfg.Budget
	if budget == 0 {
		budget = DefaultStepBudget
	}
	if total := int64(cfg.Paths) * int64(cfg.Steps); total > budget {
		return nil, errs.Config("Paths,Steps", "%d path steps exceed the budget of %d", total, budget)
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > cfg.Paths {
		workers = cfg.Paths
	}
	if workers > 1 && cfg.Streams == nil {
		return nil, errs.Config("Streams", "a stream factory is required for %d workers", workers)
	}
	if workers == 1 && cfg.Source == nil && cfg.Streams == nil {
		return nil, errs.Config("Source", "no random source configured")
	}

	return &Simulator{cfg: cfg, workers: workers}, nil
}

// Workers is the effective worker count
func (s *Simulator) Workers() int { return s.workers }

// tally is what one worker produces
type tally struct {
	acc        Accumulator
	originHits int64
}

// progressSink merges worker batches into a running snapshot
type progressSink struct {
	mu      sync.Mutex
	running tally
	total   int64
	notify  func(Progress)
	disc    float64
}

func (p *progressSink) flush(batch tally) {
	if p == nil || batch.acc.Count == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running.acc.Merge(batch.acc)
	p.running.originHits += batch.originHits
	p.notify(Progress{
		Done:       p.running.acc.Count,
		Total:      p.total,
		OriginHits: p.running.originHits,
		Estimate:   p.running.acc.Estimate(p.disc),
	})
}

// Run simulates every path and returns the discounted statistics. Runs with
// the same configuration and worker count are bit-identical.
func (s *Simulator) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	cfg := s.cfg
	disc := cfg.Process.Contract.Discount()

	var sink *progressSink
	if cfg.Progress != nil && cfg.ProgressEvery > 0 {
		sink = &progressSink{total: int64(cfg.Paths), notify: cfg.Progress, disc: disc}
	}

	tallies := make([]tally, s.workers)

	if s.workers == 1 {
		src := cfg.Source
		if src == nil {
			src = cfg.Streams.Stream(0, 0)
			defer rng.Release(src)
		}
		t, err := s.simulate(ctx, src, 0, cfg.Paths, sink)
		if err != nil {
			return Result{}, err
		}
		tallies[0] = t
	} else {
		g, gctx := errgroup.WithContext(ctx)
		block := (cfg.Paths + s.workers - 1) / s.workers
		for w := 0; w < s.workers; w++ {
			w := w
			first := w * block
			last := first + block
			if last > cfg.Paths {
				last = cfg.Paths
			}
			if first >= last {
				continue
			}
			g.Go(func() error {
				src := cfg.Streams.Stream(w, int64(first)*int64(cfg.Steps))
				defer rng.Release(src)
				t, err := s.simulate(gctx, src, first, last, sink)
				if err != nil {
					return err
				}
				tallies[w] = t
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Result{}, err
		}
	}

	var total tally
	for _, t := range tallies {
		total.acc.Merge(t.acc)
		total.originHits += t.originHits
	}
	est := total.acc.Estimate(disc)

	res := Result{
		Price:      est.Price,
		StdDev:     est.StdDev,
		StdErr:     est.StdErr,
		Mean:       est.Mean,
		Paths:      cfg.Paths,
		Steps:      cfg.Steps,
		OriginHits: total.originHits,
		Discount:   disc,
		Workers:    s.workers,
		Elapsed:    time.Since(start),
	}
	logger.Debug.Printf("🎲 MC %s paths=%d steps=%d workers=%d price=%.6f se=%.6f origin=%d in %v",
		cfg.Scheme, res.Paths, res.Steps, res.Workers, res.Price, res.StdErr, res.OriginHits, res.Elapsed)
	return res, nil
}

// simulate runs paths [first, last) on src. Every path consumes exactly Steps
// draws, frozen or not, so stream offsets stay aligned with a sequential run.
func (s *Simulator) simulate(ctx context.Context, src rng.Source, first, last int, sink *progressSink) (tally, error) {
	cfg := s.cfg
	p := cfg.Process
	dt := p.Contract.Maturity / float64(cfg.Steps)
	sqrtDt := math.Sqrt(dt)
	milstein := cfg.Scheme == Milstein

	var out, batch tally
	for path := first; path < last; path++ {
		if (path-first)%cancelCheck == 0 {
			if err := ctx.Err(); err != nil {
				return tally{}, fmt.Errorf("simulation cancelled at path %d: %w", path, err)
			}
		}

		x := cfg.S0
		absorbed := false
		for n := 0; n < cfg.Steps; n++ {
			z := src.Normal()
			if absorbed {
				continue
			}
			t := float64(n) * dt
			b := p.Diffusion(x, t)
			dW := sqrtDt * z
			next := x + p.Drift(x, t)*dt + b*dW
			if milstein {
				next += 0.5 * b * p.DiffusionDerivative(x, t) * (dW*dW - dt)
			}

			if math.IsNaN(next) || math.IsInf(next, 0) {
				logger.Warn.Printf("💥 MC path %d step %d produced %v", path, n+1, next)
				return tally{}, &errs.InstabilityError{
					Engine: "montecarlo",
					Index:  path,
					Step:   n + 1,
					Value:  next,
					Reason: "non-finite path level",
				}
			}
			// absorbed at the origin for the rest of the path
			if next <= 0 {
				next = 0
				absorbed = true
			}
			x = next
		}

		payoff := p.Contract.Payoff(x)
		out.acc.Add(payoff)
		if absorbed {
			out.originHits++
		}

		if sink != nil {
			batch.acc.Add(payoff)
			if absorbed {
				batch.originHits++
			}
			if batch.acc.Count == int64(cfg.ProgressEvery) {
				sink.flush(batch)
				batch = tally{}
			}
		}
	}
	sink.flush(batch)
	return out, nil
}
