package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"structural_valuation/pkg/core/config"
	"structural_valuation/pkg/core/logger"
	"structural_valuation/pkg/core/scenario"
	"structural_valuation/pkg/core/valuation"
)

var (
	jsonOutput bool
	workers    int
)

var rootCmd = &cobra.Command{
	Use:   "claims",
	Short: "Structural valuation of levered firm claims",
	Long: `claims values equity, debt and the whole firm when cash flow follows a
geometric Brownian motion, equity chooses when to default, and bankruptcy
is either liquidated or renegotiated.

Scenarios are YAML, Hjson or JSON files:

  name: base
  params:
    asset_level: 100
    drift: 0.02
    volatility: 0.25
    discount_rate: 0.08
    tax_rate: 0.15
    coupon: 6
    bankruptcy_cost: 0.3
    renegotiation_share: 0.5
  sweep: {min: 0, max: 150, steps: 31}`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(config.Get().Env)
	},
}

func Execute() error {
	defer logger.Sync()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "Parallel valuations in a sweep (default: SWEEP_WORKERS or GOMAXPROCS)")
}

// newValuator builds a Valuator from configuration and flags.
func newValuator() valuation.Valuator {
	cfg := config.Get()
	v := valuation.Valuator{
		Budget: valuation.SolverBudget{
			MaxIterations: cfg.SolverMaxIterations,
			Tolerance:     cfg.SolverTolerance,
		},
		Workers: cfg.SweepWorkers,
		Logger:  logger.Named("valuation"),
	}
	if workers > 0 {
		v.Workers = workers
	}
	return v
}

// loadScenario reads and validates the scenario named on the command line.
func loadScenario(path string) (*scenario.Scenario, valuation.Params, error) {
	s, err := scenario.Load(path)
	if err != nil {
		return nil, valuation.Params{}, err
	}
	p, err := s.Validated()
	if err != nil {
		return nil, valuation.Params{}, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return s, p, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
