package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "lumicast",
		Short:   "Lumicast — generation governance core for AI educational content",
		Version: version,
	}

	root.AddCommand(
		newGenerateCmd(),
		newHealthCmd(),
		newCacheCmd(),
		newBudgetCmd(),
		newCostsCmd(),
		newHistoryCmd(),
		newMCPCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
