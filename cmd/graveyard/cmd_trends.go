package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adylagad/gh-api-graveyard/internal/analytics"
	"github.com/adylagad/gh-api-graveyard/internal/history"
)

func runTrends(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("trends", flag.ExitOnError)
	configPath := fs.String("config", "", "config file (default: discover .graveyard.yml)")
	service := fs.String("service", "", "service name (default: from config)")
	days := fs.Int("days", 90, "history window in days")
	compare := fs.String("compare", "", "two scan IDs separated by a comma to diff instead")
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

	trends := analytics.NewTrendAnalyzer(logger)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *compare != "" {
		oldID, newID, ok := strings.Cut(*compare, ",")
		if !ok || oldID == "" || newID == "" {
			return fmt.Errorf("-compare wants two scan IDs separated by a comma")
		}
		oldScan, err := store.GetScan(ctx, oldID)
		if err != nil {
			return err
		}
		newScan, err := store.GetScan(ctx, newID)
		if err != nil {
			return err
		}
		cmp, err := trends.CompareScans(oldScan, newScan)
		if err != nil {
			return err
		}
		return enc.Encode(cmp)
	}

	name := *service
	if name == "" {
		name = cfg.Service
	}
	if name == "" {
		return fmt.Errorf("no service name; pass -service or set one in the config")
	}

	since := time.Now().UTC().AddDate(0, 0, -*days)
	scans, err := store.ScansSince(ctx, name, since)
	if err != nil {
		return err
	}
	if len(scans) == 0 {
		return fmt.Errorf("no scans for %q in the last %d days; run analyze -save first", name, *days)
	}

	latest := scans[len(scans)-1]
	cost := analytics.NewCostCalculator(0, 0).
		Estimate(latest.UnusedEndpoints, int64(latest.Processed))

	return enc.Encode(map[string]any{
		"trend":     trends.Trends(name, scans),
		"anomalies": trends.DetectAnomalies(scans),
		"cost":      cost,
	})
}
