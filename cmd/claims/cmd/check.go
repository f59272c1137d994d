package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"structural_valuation/pkg/core/validate"
	"structural_valuation/pkg/core/valuation"
)

var jumpThreshold float64

var checkCmd = &cobra.Command{
	Use:   "check <scenario>",
	Short: "Re-verify the valuation identities across the scenario's coupon grid",
	Long: `Values the scenario at its own coupon and at every coupon of its sweep
grid, then checks that firm value equals debt plus equity, that claims
respect limited liability, that the default boundary lies in [0, X₀] and
that the trade-off curve has no jumps. Exits non-zero on any violation.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().Float64Var(&jumpThreshold, "jump", 25, "Largest firm-value change between grid points, in percent")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, p, err := loadScenario(args[0])
	if err != nil {
		printError("failed to load scenario", err)
		return err
	}

	bounds, steps := s.Bounds()
	grid, err := valuation.CouponGrid(bounds, steps)
	if err != nil {
		printError("invalid sweep", err)
		return err
	}

	out := cmd.OutOrStdout()
	var failures, checked int
	var curve []valuation.CurvePoint

	coupons := append([]float64{p.Coupon}, grid...)
	for pt := range newValuator().SweepCoupons(cmd.Context(), p, coupons) {
		checked++
		if checked > 1 {
			curve = append(curve, pt.Record())
		}
		if pt.Err != nil {
			failures++
			fmt.Fprintf(out, "[-] C=%g: %v\n", pt.Coupon, pt.Err)
			continue
		}
		r := validate.CheckClaims(p.WithCoupon(pt.Coupon), pt.Claims, validate.DefaultTolerance)
		for _, v := range r.Violations {
			failures++
			fmt.Fprintf(out, "[-] C=%g %s: %s\n", pt.Coupon, v.Check, v.Reason)
		}
	}

	for _, o := range validate.CheckCurve(curve, jumpThreshold) {
		failures++
		fmt.Fprintf(out, "[-] C=%g curve: %s\n", o.Coupon, o.Reason)
	}

	if failures > 0 {
		return fmt.Errorf("%d check(s) failed for scenario %s", failures, s.Name)
	}
	fmt.Fprintf(out, "[+] %s: %d valuations consistent\n", s.Name, checked)
	return nil
}
