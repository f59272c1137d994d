package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"structural_valuation/pkg/core/report"
	"structural_valuation/pkg/core/valuation"
)

var (
	htmlOutput bool
	outFile    string
	withSweep  bool
)

var reportCmd = &cobra.Command{
	Use:   "report <scenario>",
	Short: "Render a Markdown or HTML valuation report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&htmlOutput, "html", false, "Render HTML instead of Markdown")
	reportCmd.Flags().StringVarP(&outFile, "output", "o", "", "Write to file instead of stdout")
	reportCmd.Flags().BoolVar(&withSweep, "sweep", true, "Include the coupon search")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	s, p, err := loadScenario(args[0])
	if err != nil {
		printError("failed to load scenario", err)
		return err
	}

	v := newValuator()
	claims, err := v.ValueClaims(cmd.Context(), p)
	if err != nil {
		printError("valuation failed", err)
		return err
	}

	doc := report.Document{
		Title:    s.Name,
		Subtitle: s.Description,
		Params:   p,
		Claims:   claims,
	}

	if withSweep {
		bounds, steps := s.Bounds()
		opt, err := v.OptimizeCoupon(cmd.Context(), p, bounds, steps)
		if err != nil {
			printError("coupon search failed", err)
			return err
		}
		doc.Optimum = opt
		doc.Curve = make([]valuation.CurvePoint, len(opt.Curve))
		for i, pt := range opt.Curve {
			doc.Curve[i] = pt.Record()
		}
	}

	body := report.Markdown(doc)
	if htmlOutput {
		if body, err = report.ToHTML(body); err != nil {
			printError("failed to render HTML", err)
			return err
		}
	}

	if outFile != "" {
		if err := os.WriteFile(outFile, []byte(body), 0644); err != nil {
			printError("failed to write report", err)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", outFile)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), body)
	return nil
}
