package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"structural_valuation/pkg/core/report"
)

var valueCmd = &cobra.Command{
	Use:   "value <scenario>",
	Short: "Value the claims of one scenario",
	Args:  cobra.ExactArgs(1),
	RunE:  runValue,
}

func init() {
	rootCmd.AddCommand(valueCmd)
}

func runValue(cmd *cobra.Command, args []string) error {
	s, p, err := loadScenario(args[0])
	if err != nil {
		printError("failed to load scenario", err)
		return err
	}

	claims, err := newValuator().ValueClaims(cmd.Context(), p)
	if err != nil {
		printError("valuation failed", err)
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, claims)
	}

	fmt.Fprintf(out, "Scenario: %s\n\n", s.Name)
	fmt.Fprint(out, report.ClaimsTable(claims))
	return nil
}
