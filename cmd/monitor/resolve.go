package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AymanAAASWa/facebook-monitor/internal/config"
	"github.com/AymanAAASWa/facebook-monitor/internal/lookup"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <author-id>",
		Short: "Resolve one author id against the mapping file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args[0])
		},
	}
}

func runResolve(cmd *cobra.Command, authorID string) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.MappingFile == "" {
		return fmt.Errorf("MONITOR_MAPPING_FILE is required for resolve")
	}

	f, err := os.Open(cfg.MappingFile)
	if err != nil {
		return fmt.Errorf("open mapping file: %w", err)
	}
	defer f.Close()

	resolver := lookup.NewResolver(cfg.LookupChunkSize, logger)
	contact := resolver.Resolve(authorID, f)
	if !contact.Found {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: unresolved\n", authorID)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", authorID, contact.Value)
	return nil
}
