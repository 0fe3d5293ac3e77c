package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/jwaldner/fdmc/fdmc_lib"
	"github.com/jwaldner/fdmc/internal/errs"
)

func newPlotCmd(a *app) *cobra.Command {
	var (
		req    fdmc.PDERequest
		lo, hi float64
		points int
		out    string
	)
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Draw the PDE valuation layer against the closed form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.buildContract()
			if err != nil {
				return err
			}
			req.Contract = c
			if lo == 0 {
				lo = c.Strike * 0.5
			}
			if hi == 0 {
				hi = c.Strike * 1.5
			}
			if out == "" {
				return errs.Config("out", "an output file is required")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			rows, err := a.engine.Scan(ctx, req, lo, hi, points)
			if err != nil {
				return err
			}

			numeric := make(plotter.XYs, len(rows))
			exact := make(plotter.XYs, len(rows))
			for i, r := range rows {
				numeric[i].X, numeric[i].Y = r.Spot, r.PDE
				exact[i].X, exact[i].Y = r.Spot, r.Analytic
			}

			p := plot.New()
			p.Title.Text = fmt.Sprintf("European %s K=%g T=%.4g σ=%g", c.Type, c.Strike, c.Maturity, c.Volatility)
			p.X.Label.Text = "spot"
			p.Y.Label.Text = "value"
			if err := plotutil.AddLinePoints(p, "finite difference", numeric, "closed form", exact); err != nil {
				return err
			}
			if err := p.Save(6*vg.Inch, 4*vg.Inch, out); err != nil {
				return fmt.Errorf("save plot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d points)\n", out, len(rows))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.Float64Var(&lo, "from", 0, "lowest spot (0 = K/2)")
	fl.Float64Var(&hi, "to", 0, "highest spot (0 = 1.5K)")
	fl.IntVar(&points, "points", 101, "number of spot levels")
	fl.IntVar(&req.J, "j", 0, "space steps (0 = configured)")
	fl.IntVar(&req.N, "n", 0, "time steps (0 = smallest stable)")
	fl.Float64Var(&req.Smax, "smax", 0, "upper grid bound (0 = derived from the contract)")
	fl.StringVarP(&out, "out", "o", "valuation.png", "image file; the extension selects png, svg or pdf")
	return cmd
}
