package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"structural_valuation/pkg/core/config"
	"structural_valuation/pkg/core/report"
	"structural_valuation/pkg/core/store"
	"structural_valuation/pkg/core/valuation"
)

var (
	sweepSteps int
	sweepMin   float64
	sweepMax   float64
	saveRun    bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep <scenario>",
	Short: "Search coupons for the firm-value maximising capital structure",
	Long: `Values the scenario on a coupon grid, refines the best grid cell and
prints the trade-off curve. Bounds come from the scenario's sweep section
unless overridden by flags.`,
	Args: cobra.ExactArgs(1),
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 0, "Grid points")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "Lowest coupon")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0, "Highest coupon")
	sweepCmd.Flags().BoolVar(&saveRun, "save", false, "Persist the run (Postgres if DATABASE_URL is set, else CACHE_DIR)")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	s, p, err := loadScenario(args[0])
	if err != nil {
		printError("failed to load scenario", err)
		return err
	}

	bounds, steps := s.Bounds()
	if cmd.Flags().Changed("min") {
		bounds.Min = sweepMin
	}
	if cmd.Flags().Changed("max") {
		bounds.Max = sweepMax
	}
	if sweepSteps > 0 {
		steps = sweepSteps
	}

	opt, err := newValuator().OptimizeCoupon(cmd.Context(), p, bounds, steps)
	if err != nil {
		printError("coupon search failed", err)
		return err
	}

	curve := make([]valuation.CurvePoint, len(opt.Curve))
	for i, pt := range opt.Curve {
		curve[i] = pt.Record()
	}

	var runID string
	if saveRun {
		if runID, err = persist(cmd, s.Name, p, bounds, steps, opt, curve); err != nil {
			printError("failed to save run", err)
			return err
		}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, map[string]any{
			"run_id":  runID,
			"optimum": opt,
			"curve":   curve,
		})
	}

	fmt.Fprintf(out, "Scenario: %s\n", s.Name)
	fmt.Fprintf(out, "Optimal coupon: %s (firm value %s, refined: %v)\n\n",
		report.Round(opt.Coupon, 4), report.Round(opt.Claims.FirmValue, 4), opt.Refined)
	fmt.Fprint(out, report.CurveTable(curve))
	if runID != "" {
		fmt.Fprintf(out, "\nSaved run %s\n", runID)
	}
	return nil
}

func persist(cmd *cobra.Command, name string, p valuation.Params, bounds valuation.CouponBounds, steps int,
	opt *valuation.CouponOptimum, curve []valuation.CurvePoint) (string, error) {
	cfg := config.Get()
	ctx := cmd.Context()

	if cfg.DatabaseURL != "" {
		if err := store.InitDB(ctx, cfg.DatabaseURL); err != nil {
			printError("database unavailable, using file cache", err)
		} else {
			defer store.Close()
		}
	}

	fp, err := store.SweepFingerprint(p, bounds, steps)
	if err != nil {
		return "", err
	}

	run := &store.ValuationRun{
		Scenario:    name,
		Fingerprint: fp,
		Params:      p.WithCoupon(opt.Coupon),
		Claims:      opt.Claims,
		Optimum:     opt,
		Curve:       curve,
	}
	if err := store.NewRunCache(store.GetPool(), cfg.CacheDir).Save(ctx, run); err != nil {
		return "", err
	}
	return run.ID.String(), nil
}
