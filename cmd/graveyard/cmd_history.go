package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/adylagad/gh-api-graveyard/internal/history"
)

func runHistory(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", "", "config file (default: discover .graveyard.yml)")
	service := fs.String("service", "", "service name (default: from config)")
	id := fs.String("id", "", "print one scan in full instead of listing")
	limit := fs.Int("limit", 20, "scans to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := history.Open(ctx, cfg.History.Driver, cfg.History.DSN, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *id != "" {
		scan, err := store.GetScan(ctx, *id)
		if err != nil {
			return err
		}
		return enc.Encode(scan)
	}

	name := *service
	if name == "" {
		name = cfg.Service
	}
	if name == "" {
		return fmt.Errorf("no service name; pass -service or set one in the config")
	}
	scans, err := store.ListScans(ctx, name, *limit)
	if err != nil {
		return err
	}
	return enc.Encode(scans)
}
