package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AymanAAASWa/facebook-monitor/internal/config"
	"github.com/AymanAAASWa/facebook-monitor/internal/httpserver"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the monitor API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	svc, st, client, err := buildService(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	defer svc.Shutdown()

	server := httpserver.NewServer(cfg.Port, svc, client, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.Port, "groups", len(svc.Groups()))

	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}
	return nil
}
