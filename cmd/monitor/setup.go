package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/AymanAAASWa/facebook-monitor/internal/config"
	"github.com/AymanAAASWa/facebook-monitor/internal/export"
	"github.com/AymanAAASWa/facebook-monitor/internal/graph"
	"github.com/AymanAAASWa/facebook-monitor/internal/monitor"
	"github.com/AymanAAASWa/facebook-monitor/internal/store"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// buildService assembles the monitor service from configuration. The
// caller owns closing the returned store.
func buildService(cfg *config.Config, logger *slog.Logger) (*monitor.Service, *store.Store, *graph.Client, error) {
	groups, err := loadStringList(cfg.GroupFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load group file: %w", err)
	}
	keywords, err := loadStringList(cfg.KeywordFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load keyword file: %w", err)
	}
	exclude, err := loadStringList(cfg.ExcludeFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load exclude file: %w", err)
	}

	st, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open session store: %w", err)
	}

	client := graph.NewClient(cfg.GraphBaseURL, cfg.AccessToken)

	svc := monitor.NewService(monitor.Deps{
		Gateway:   client,
		Posts:     st,
		Cursors:   st,
		Contacts:  st,
		Customers: st,
		Notifier:  &monitor.LogNotifier{Logger: logger},
		Logger:    logger,
	}, monitor.Options{
		Groups:          groups,
		Keywords:        keywords,
		ExcludeKeywords: exclude,
		MappingFile:     cfg.MappingFile,
		RefreshPeriod:   cfg.RefreshPeriod,
		AlertThreshold:  cfg.AlertThreshold,
		ChunkSize:       cfg.LookupChunkSize,
		FetchFirstPage:  cfg.FetchFirstPage,
	})

	return svc, st, client, nil
}

// loadStringList reads a JSON array of strings from a file. An empty path
// yields an empty list.
func loadStringList(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return export.ImportStrings(data)
}
