package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jwaldner/fdmc/fdmc_lib"
	"github.com/jwaldner/fdmc/internal/config"
	"github.com/jwaldner/fdmc/internal/errs"
	"github.com/jwaldner/fdmc/internal/logger"
	"github.com/jwaldner/fdmc/internal/models"
	"github.com/jwaldner/fdmc/internal/utils"
)

// app holds what every subcommand shares
type app struct {
	configPath string
	logLevel   string
	mode       string

	cfg    *config.Config
	engine *fdmc.Engine
	format models.Formatter

	contract contractFlags
}

type contractFlags struct {
	optionType string
	strike     float64
	maturity   string
	rate       float64
	volatility float64
	dividend   float64
	spot       float64
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "fdmc",
		Short:         "Price European options by finite differences, Monte Carlo and closed form",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.engine != nil {
				a.engine.Close()
			}
			logger.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", config.DefaultPath, "YAML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "", "override the configured log level")
	pf.StringVar(&a.mode, "mode", "", "execution mode: auto, parallel or sequential")

	c := &a.contract
	pf.StringVarP(&c.optionType, "type", "t", "put", "option type: call or put")
	pf.Float64VarP(&c.strike, "strike", "k", 65, "strike price")
	pf.StringVarP(&c.maturity, "maturity", "T", "0.25", "years to expiry, YYYY-MM-DD or \"next\"")
	pf.Float64VarP(&c.rate, "rate", "r", 0.08, "risk-free rate")
	pf.Float64VarP(&c.volatility, "vol", "v", 0.30, "volatility")
	pf.Float64VarP(&c.dividend, "dividend", "q", 0, "continuous dividend yield")
	pf.Float64VarP(&c.spot, "spot", "s", 60, "spot price")

	root.AddCommand(
		newAnalyticCmd(a),
		newPDECmd(a),
		newMCCmd(a),
		newScanCmd(a),
		newPlotCmd(a),
	)
	return root
}

// setup loads configuration and starts the engine; CLI logs go to stderr
func (a *app) setup() error {
	cfg, err := config.LoadFrom(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logger.InitWithConfig(cfg.Logging.LogLevel, ""); err != nil {
		return err
	}

	mode := cfg.Engine.ExecutionMode
	if a.mode != "" {
		mode = a.mode
	}
	a.cfg = cfg
	a.engine = fdmc.NewEngineForced(mode, cfg)
	a.format = models.Formatter{Decimals: cfg.Output.Decimals}
	return nil
}

// buildContract converts the shared flags into a validated contract
func (a *app) buildContract() (models.Contract, error) {
	f := a.contract
	t, err := models.ParseOptionType(f.optionType)
	if err != nil {
		return models.Contract{}, errs.Config("type", "%v", err)
	}
	maturity, err := utils.ParseMaturity(f.maturity, timeNow())
	if err != nil {
		return models.Contract{}, errs.Config("maturity", "%v", err)
	}
	c := models.Contract{
		Strike:     f.strike,
		Maturity:   maturity,
		Rate:       f.rate,
		Volatility: f.volatility,
		Dividend:   f.dividend,
		Type:       t,
	}
	if err := c.Validate(); err != nil {
		return models.Contract{}, errs.Config("contract", "%v", err)
	}
	return c, nil
}

// printFields writes label/value pairs as an aligned two-column table
func printFields(w io.Writer, rows [][2]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
	}
	return tw.Flush()
}

// exitCode distinguishes bad input (2) from numerical failure (3)
func exitCode(err error) int {
	switch {
	case errors.Is(err, errs.ErrConfig), errors.Is(err, errs.ErrDomain):
		return 2
	case errors.Is(err, errs.ErrNumericalInstability):
		return 3
	}
	return 1
}
