package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AymanAAASWa/facebook-monitor/internal/config"
	"github.com/AymanAAASWa/facebook-monitor/internal/graph"
)

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Validate the configured access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			client := graph.NewClient(cfg.GraphBaseURL, cfg.AccessToken)
			profile, err := client.ValidateToken(cmd.Context())
			if err != nil {
				return fmt.Errorf("token rejected: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token valid for %s (%s)\n", profile.Name, profile.ID)
			return nil
		},
	}
}
