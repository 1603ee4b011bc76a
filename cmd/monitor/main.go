package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "monitor",
		Short:         "Group-feed lead monitor",
		Long:          "Monitors discussion-group feeds, resolves author contacts from a mapping file, and maintains a ranked ledger of prospective customers.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newFetchCmd())
	root.AddCommand(newResolveCmd())
	root.AddCommand(newTokenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
