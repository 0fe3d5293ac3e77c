package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/jwaldner/fdmc/fdmc_lib"
	"github.com/jwaldner/fdmc/internal/errs"
	"github.com/jwaldner/fdmc/internal/montecarlo"
)

var timeNow = time.Now

func newAnalyticCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analytic",
		Short: "Closed-form price and greeks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.buildContract()
			if err != nil {
				return err
			}
			res, err := a.engine.PriceAnalytic(c, a.contract.spot)
			if err != nil {
				return err
			}
			f := a.format
			return printFields(cmd.OutOrStdout(), [][2]string{
				{"price", f.Price(res.Price).Display},
				{"delta", f.Greek(res.Greeks.Delta).Display},
				{"gamma", f.Greek(res.Greeks.Gamma).Display},
				{"vega", f.Greek(res.Greeks.Vega).Display},
				{"theta", f.Greek(res.Greeks.Theta).Display},
				{"rho", f.Greek(res.Greeks.Rho).Display},
			})
		},
	}
}

func newPDECmd(a *app) *cobra.Command {
	var req fdmc.PDERequest
	cmd := &cobra.Command{
		Use:   "pde",
		Short: "Explicit finite-difference price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.buildContract()
			if err != nil {
				return err
			}
			req.Contract = c
			req.Spot = a.contract.spot

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			res, err := a.engine.PricePDE(ctx, req)
			if err != nil {
				return err
			}
			f := a.format
			return printFields(cmd.OutOrStdout(), [][2]string{
				{"price", f.Price(res.Price).Display},
				{"closed form", f.Price(res.Analytic).Display},
				{"abs error", f.Error(res.AbsError).Display},
				{"delta", f.Greek(res.Greeks.Delta).Display},
				{"gamma", f.Greek(res.Greeks.Gamma).Display},
				{"theta", f.Greek(res.Greeks.Theta).Display},
				{"grid", fmt.Sprintf("J=%d N=%d Smax=%g", res.J, res.N, res.Smax)},
				{"stability ratio", fmt.Sprintf("%.4f (stable: %t)", res.Ratio, res.Stable)},
				{"elapsed", f.Duration(res.Elapsed).Display},
			})
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&req.J, "j", 0, "space steps (0 = configured)")
	fl.IntVar(&req.N, "n", 0, "time steps (0 = smallest stable)")
	fl.Float64Var(&req.Smax, "smax", 0, "upper grid bound (0 = derived from the contract)")
	fl.StringVar(&req.Stability, "stability", "", "stability policy: reject or warn")
	return cmd
}

func newMCCmd(a *app) *cobra.Command {
	var (
		req      fdmc.MCRequest
		progress bool
	)
	cmd := &cobra.Command{
		Use:   "mc",
		Short: "Monte Carlo price with standard error",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.buildContract()
			if err != nil {
				return err
			}
			req.Contract = c
			req.Spot = a.contract.spot

			var report func(montecarlo.Progress)
			if progress {
				errOut := cmd.ErrOrStderr()
				report = func(p montecarlo.Progress) {
					fmt.Fprintf(errOut, "%d/%d paths  price %.6f  se %.6f  origin hits %d\n",
						p.Done, p.Total, p.Estimate.Price, p.Estimate.StdErr, p.OriginHits)
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			res, err := a.engine.PriceMonteCarlo(ctx, req, report)
			if err != nil {
				return err
			}
			f := a.format
			return printFields(cmd.OutOrStdout(), [][2]string{
				{"price", f.Price(res.Price).Display},
				{"std dev", f.Error(res.StdDev).Display},
				{"std err", f.Error(res.StdErr).Display},
				{"closed form", f.Price(res.Analytic).Display},
				{"abs error", f.Error(res.AbsError).Display},
				{"paths", fmt.Sprintf("%d x %d steps (%s, %s)", res.Paths, res.Steps, res.Scheme, res.Generator)},
				{"origin hits", fmt.Sprintf("%d", res.OriginHits)},
				{"workers", fmt.Sprintf("%d", res.Workers)},
				{"elapsed", f.Duration(res.Elapsed).Display},
			})
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&req.Steps, "steps", 0, "time steps per path (0 = configured)")
	fl.IntVar(&req.Paths, "paths", 0, "number of paths (0 = configured)")
	fl.Uint64Var(&req.Seed, "seed", 0, "generator seed (0 = configured)")
	fl.StringVar(&req.Generator, "generator", "", "pcg, mt19937, xoshiro or halton")
	fl.StringVar(&req.Scheme, "scheme", "", "euler or milstein")
	fl.Float64Var(&req.Beta, "beta", 0, "CEV elasticity (0 or 1 = lognormal)")
	fl.IntVar(&req.ProgressEvery, "progress-every", 0, "paths between progress reports")
	fl.BoolVar(&progress, "progress", false, "print running estimates to stderr")
	return cmd
}

func newScanCmd(a *app) *cobra.Command {
	var (
		req     fdmc.PDERequest
		lo, hi  float64
		points  int
		withMC  bool
		mcPaths int
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Tabulate PDE prices against the closed form across spot levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.buildContract()
			if err != nil {
				return err
			}
			req.Contract = c
			if points < 2 {
				return errs.Config("points", "need at least 2 spot levels, got %d", points)
			}
			if lo == 0 {
				lo = c.Strike * 0.5
			}
			if hi == 0 {
				hi = c.Strike * 1.5
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			f := a.format
			if !withMC {
				rows, err := a.engine.Scan(ctx, req, lo, hi, points)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "spot\tclosed form\tpde\t|error|\t")
				for _, r := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
						f.Price(r.Spot).Display, f.Price(r.Analytic).Display, f.Price(r.PDE).Display, f.Error(r.PDEError).Display)
				}
				return tw.Flush()
			}

			spots := floats.Span(make([]float64, points), lo, hi)
			res, err := a.engine.Compare(ctx, fdmc.CompareRequest{
				Contract:  c,
				Spots:     spots,
				Smax:      req.Smax,
				J:         req.J,
				N:         req.N,
				Stability: req.Stability,
				Paths:     mcPaths,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(tw, "spot\tclosed form\tpde\t|error|\tmonte carlo\tstd err\t|error|\t")
			for _, r := range res.Rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
					f.Price(r.Spot).Display, f.Price(r.Analytic).Display,
					f.Price(r.PDE).Display, f.Error(r.PDEError).Display,
					f.Price(r.MonteCarlo).Display, f.Error(r.MCStdErr).Display, f.Error(r.MCError).Display)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\npde %.3fms  monte carlo %.3fms  closed form %.3fms\n",
				res.Timing["pde"], res.Timing["montecarlo"], res.Timing["analytic"])
			return nil
		},
	}
	fl := cmd.Flags()
	fl.Float64Var(&lo, "from", 0, "lowest spot (0 = K/2)")
	fl.Float64Var(&hi, "to", 0, "highest spot (0 = 1.5K)")
	fl.IntVar(&points, "points", 11, "number of spot levels")
	fl.IntVar(&req.J, "j", 0, "space steps (0 = configured)")
	fl.IntVar(&req.N, "n", 0, "time steps (0 = smallest stable)")
	fl.Float64Var(&req.Smax, "smax", 0, "upper grid bound (0 = derived from the contract)")
	fl.StringVar(&req.Stability, "stability", "", "stability policy: reject or warn")
	fl.BoolVar(&withMC, "mc", false, "add Monte Carlo columns")
	fl.IntVar(&mcPaths, "paths", 0, "Monte Carlo paths per spot (0 = configured)")
	return cmd
}
