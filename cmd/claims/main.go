package main

import (
	"os"

	"structural_valuation/cmd/claims/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
