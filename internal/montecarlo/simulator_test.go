package montecarlo

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/jwaldner/fdmc/internal/analytic"
	"github.com/jwaldner/fdmc/internal/errs"
	"github.com/jwaldner/fdmc/internal/models"
	"github.com/jwaldner/fdmc/internal/rng"
)

var reference = models.Contract{Strike: 155, Maturity: 1.28, Rate: 0.04, Volatility: 0.27}

const spot = 150.0

func run(t *testing.T, cfg Config) Result {
	t.Helper()
	sim, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	res, err := sim.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func seeded(c *models.Contract, paths, steps int, seed uint64) Config {
	return Config{
		Process: GBM(c),
		S0:      spot,
		Steps:   steps,
		Paths:   paths,
		Source:  rng.NewPseudo(seed, rng.GeneratorPCG),
	}
}

func TestPriceConvergesToClosedForm(t *testing.T) {
	for _, typ := range []models.OptionType{models.Call, models.Put} {
		c := reference.WithType(typ)
		res := run(t, seeded(c, 100000, 100, 42))
		want := analytic.Price(c, spot)
		if diff := math.Abs(res.Price - want); diff > 4*res.StdErr+0.05 {
			t.Errorf("%s: mc %.4f ± %.4f, closed form %.4f", typ, res.Price, res.StdErr, want)
		}
		if res.OriginHits != 0 {
			t.Errorf("%s: GBM paths should not reach the origin, got %d", typ, res.OriginHits)
		}
	}
}

func TestMilsteinConvergesToClosedForm(t *testing.T) {
	c := reference.WithType(models.Call)
	cfg := seeded(c, 50000, 50, 7)
	cfg.Scheme = Milstein
	res := run(t, cfg)
	want := analytic.Price(c, spot)
	if diff := math.Abs(res.Price - want); diff > 4*res.StdErr+0.05 {
		t.Errorf("milstein: mc %.4f ± %.4f, closed form %.4f", res.Price, res.StdErr, want)
	}
}

func TestStdErrShrinksWithPaths(t *testing.T) {
	c := reference.WithType(models.Call)
	small := run(t, seeded(c, 20000, 20, 11))
	large := run(t, seeded(c, 80000, 20, 11))

	ratio := large.StdErr / small.StdErr
	if math.Abs(ratio-0.5) > 0.05 {
		t.Errorf("std err ratio for 4x paths = %.4f, want about 0.5", ratio)
	}
}

func TestZeroVolatility(t *testing.T) {
	c := reference
	c.Volatility = 0
	for _, typ := range []models.OptionType{models.Call, models.Put} {
		ct := c.WithType(typ)
		res := run(t, seeded(ct, 1000, 100, 3))
		want := analytic.ZeroVolPrice(ct, spot)
		if math.Abs(res.Price-want) > 0.01 {
			t.Errorf("%s: zero-vol mc %.6f, want %.6f", typ, res.Price, want)
		}
		if res.StdErr > 1e-3 {
			t.Errorf("%s: zero-vol std err = %g, want ~0", typ, res.StdErr)
		}
	}
}

func TestPutCallParity(t *testing.T) {
	call := run(t, seeded(reference.WithType(models.Call), 50000, 50, 99))
	put := run(t, seeded(reference.WithType(models.Put), 50000, 50, 99))

	gap := analytic.ParityGap(&reference, spot, call.Price, put.Price)
	if math.Abs(gap) > 4*(call.StdErr+put.StdErr) {
		t.Errorf("parity gap = %.4f, tolerance %.4f", gap, 4*(call.StdErr+put.StdErr))
	}
}

func TestFixedSourceIsReproducible(t *testing.T) {
	draws := []float64{0.3, -1.2, 0.8, 2.1, -0.4, -0.9, 1.5}
	c := reference.WithType(models.Put)
	cfg := Config{Process: GBM(c), S0: spot, Steps: 12, Paths: 500}

	cfg.Source = rng.NewFixed(draws...)
	first := run(t, cfg)
	cfg.Source = rng.NewFixed(draws...)
	second := run(t, cfg)

	if first.Price != second.Price || first.StdDev != second.StdDev || first.StdErr != second.StdErr {
		t.Errorf("runs differ: %+v vs %+v", first, second)
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	draws := []float64{0.3, -1.2, 0.8, 2.1, -0.4, -0.9, 1.5, 0.05, -0.33, 1.1, -2.0}
	c := reference.WithType(models.Call)
	base := Config{Process: GBM(c), S0: spot, Steps: 16, Paths: 4003}

	seq := base
	seq.Source = rng.NewFixed(draws...)
	want := run(t, seq)

	par := base
	par.Streams = rng.FixedFactory{Draws: draws}
	par.Workers = 4
	got := run(t, par)

	if got.Workers != 4 {
		t.Errorf("workers = %d, want 4", got.Workers)
	}
	if math.Abs(got.Price-want.Price) > 1e-9*math.Max(1, want.Price) {
		t.Errorf("parallel price %.12f, sequential %.12f", got.Price, want.Price)
	}
	if math.Abs(got.StdDev-want.StdDev) > 1e-6 {
		t.Errorf("parallel std dev %.12f, sequential %.12f", got.StdDev, want.StdDev)
	}

	again := run(t, par)
	if again.Price != got.Price || again.StdDev != got.StdDev {
		t.Errorf("repeated parallel runs differ: %.15f vs %.15f", again.Price, got.Price)
	}
}

func TestParallelPseudoStreamsAreDeterministic(t *testing.T) {
	c := reference.WithType(models.Call)
	cfg := Config{
		Process: GBM(c),
		S0:      spot,
		Steps:   20,
		Paths:   40000,
		Streams: rng.PseudoFactory{Seed: 5, Kind: rng.GeneratorXoshiro},
		Workers: 3,
	}
	a := run(t, cfg)
	b := run(t, cfg)
	if a.Price != b.Price || a.StdErr != b.StdErr {
		t.Errorf("parallel runs differ: %+v vs %+v", a, b)
	}
	if diff := math.Abs(a.Price - analytic.Price(c, spot)); diff > 4*a.StdErr+0.1 {
		t.Errorf("parallel price %.4f ± %.4f far from closed form", a.Price, a.StdErr)
	}
}

func TestQuasiSourceConverges(t *testing.T) {
	c := reference.WithType(models.Call)
	const steps = 8
	src, _, err := rng.FromName(rng.GeneratorHalton, 0, steps)
	if err != nil {
		t.Fatalf("FromName: %v", err)
	}
	res := run(t, Config{Process: GBM(c), S0: spot, Steps: steps, Paths: 20000, Source: src})
	if diff := math.Abs(res.Price - analytic.Price(c, spot)); diff > 0.5 {
		t.Errorf("halton price %.4f, closed form %.4f", res.Price, analytic.Price(c, spot))
	}
}

func TestOriginAbsorption(t *testing.T) {
	c := &models.Contract{Strike: 1, Maturity: 1, Rate: 0.05, Volatility: 0.2, Type: models.Put}
	proc := Process{
		Contract:  c,
		Drift:     func(_, _ float64) float64 { return 0 },
		Diffusion: func(_, _ float64) float64 { return 100 },
	}
	src := rng.NewFixed(-1)
	res := run(t, Config{Process: proc, S0: 1, Steps: 4, Paths: 250, Source: src})

	if res.OriginHits != 250 {
		t.Errorf("origin hits = %d, want 250", res.OriginHits)
	}
	if want := math.Exp(-0.05); math.Abs(res.Price-want) > 1e-12 {
		t.Errorf("price = %.12f, want %.12f", res.Price, want)
	}
	if res.StdDev != 0 {
		t.Errorf("std dev = %g, want 0", res.StdDev)
	}
	// frozen paths still consume their draws
	if got := src.Drawn(); got != 250*4 {
		t.Errorf("draws consumed = %d, want %d", got, 250*4)
	}
}

func TestCEVReachesOrigin(t *testing.T) {
	c := &models.Contract{Strike: 5, Maturity: 2, Rate: 0.01, Volatility: 1.5, Type: models.Put}
	res := run(t, Config{
		Process: CEV(c, 0.5),
		S0:      5,
		Steps:   50,
		Paths:   5000,
		Source:  rng.NewPseudo(1, rng.GeneratorMT19937),
	})
	if res.OriginHits == 0 {
		t.Error("high-volatility square-root CEV should absorb some paths")
	}
	if res.OriginHits > int64(res.Paths) {
		t.Errorf("origin hits %d exceed path count %d", res.OriginHits, res.Paths)
	}
}

func TestNonFiniteLevelIsReported(t *testing.T) {
	c := reference.WithType(models.Call)
	proc := GBM(c)
	proc.Diffusion = func(_, _ float64) float64 { return math.NaN() }

	sim, err := NewSimulator(Config{Process: proc, S0: spot, Steps: 10, Paths: 10, Source: rng.NewFixed(0.5)})
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	_, err = sim.Run(context.Background())
	var ie *errs.InstabilityError
	if !errors.As(err, &ie) {
		t.Fatalf("got %v, want InstabilityError", err)
	}
	if ie.Index != 0 || ie.Step != 1 {
		t.Errorf("reported path %d step %d, want path 0 step 1", ie.Index, ie.Step)
	}
}

func TestConfigErrors(t *testing.T) {
	c := reference.WithType(models.Call)
	valid := Config{Process: GBM(c), S0: spot, Steps: 10, Paths: 100, Source: rng.NewFixed(0.1)}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no contract", func(cfg *Config) { cfg.Process.Contract = nil }},
		{"no drift", func(cfg *Config) { cfg.Process.Drift = nil }},
		{"no diffusion", func(cfg *Config) { cfg.Process.Diffusion = nil }},
		{"milstein without derivative", func(cfg *Config) {
			cfg.Scheme = Milstein
			cfg.Process.DiffusionDerivative = nil
		}},
		{"zero spot", func(cfg *Config) { cfg.S0 = 0 }},
		{"zero steps", func(cfg *Config) { cfg.Steps = 0 }},
		{"zero paths", func(cfg *Config) { cfg.Paths = 0 }},
		{"negative workers", func(cfg *Config) { cfg.Workers = -1 }},
		{"no source", func(cfg *Config) { cfg.Source = nil }},
		{"workers without streams", func(cfg *Config) { cfg.Workers = 4 }},
		{"over budget", func(cfg *Config) { cfg.Budget = 500 }},
		{"invalid contract", func(cfg *Config) {
			bad := *c
			bad.Strike = -1
			cfg.Process = GBM(&bad)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := NewSimulator(cfg)
			if !errors.Is(err, errs.ErrConfig) {
				t.Fatalf("got %v, want ErrConfig", err)
			}
		})
	}
}

func TestProgressSnapshots(t *testing.T) {
	c := reference.WithType(models.Call)
	var snaps []Progress
	cfg := seeded(c, 1000, 10, 8)
	cfg.ProgressEvery = 100
	cfg.Progress = func(p Progress) { snaps = append(snaps, p) }

	res := run(t, cfg)
	if len(snaps) != 10 {
		t.Fatalf("got %d progress snapshots, want 10", len(snaps))
	}
	for i, p := range snaps {
		if p.Done != int64(100*(i+1)) || p.Total != 1000 {
			t.Errorf("snapshot %d: done %d of %d", i, p.Done, p.Total)
		}
	}
	if last := snaps[len(snaps)-1]; math.Abs(last.Estimate.Price-res.Price) > 1e-9 {
		t.Errorf("final snapshot price %.9f, result %.9f", last.Estimate.Price, res.Price)
	}
}

func TestParallelProgressIsMonotonic(t *testing.T) {
	c := reference.WithType(models.Call)
	var done []int64
	cfg := Config{
		Process:       GBM(c),
		S0:            spot,
		Steps:         10,
		Paths:         2000,
		Streams:       rng.PseudoFactory{Seed: 1},
		Workers:       4,
		ProgressEvery: 150,
		Progress:      func(p Progress) { done = append(done, p.Done) },
	}
	run(t, cfg)

	if len(done) == 0 {
		t.Fatal("no progress reported")
	}
	for i := 1; i < len(done); i++ {
		if done[i] <= done[i-1] {
			t.Fatalf("progress went backwards: %v", done)
		}
	}
	if done[len(done)-1] != 2000 {
		t.Errorf("final progress %d, want 2000", done[len(done)-1])
	}
}

func TestCancelledContext(t *testing.T) {
	c := reference.WithType(models.Call)
	sim, err := NewSimulator(seeded(c, 10000, 10, 1))
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sim.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestParseScheme(t *testing.T) {
	for in, want := range map[string]Scheme{"": Euler, "Euler": Euler, "milstein": Milstein} {
		got, err := ParseScheme(in)
		if err != nil || got != want {
			t.Errorf("ParseScheme(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseScheme("runge-kutta"); !errors.Is(err, errs.ErrConfig) {
		t.Errorf("unknown scheme: got %v, want ErrConfig", err)
	}
}
