package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/adylagad/gh-api-graveyard/internal/analyzer"
	"github.com/adylagad/gh-api-graveyard/internal/config"
	"github.com/adylagad/gh-api-graveyard/internal/fleet"
)

const defaultServicesFile = "graveyard-services.yml"

func runScan(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	services := fs.String("services", defaultServicesFile, "fleet services file")
	workers := fs.Int("workers", fleet.DefaultWorkers, "concurrent service scans")
	window := fs.String("window", "", `only count log entries within this window, e.g. "90d"`)
	asJSON := fs.Bool("json", false, "emit the full results as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fleetCfg, err := fleet.LoadConfig(*services)
	if err != nil {
		return err
	}

	var opts analyzer.Options
	opts.Window, err = config.ParseWindow(*window)
	if err != nil {
		return err
	}

	scanner := fleet.NewScanner(logger, opts, *workers)
	results := scanner.ScanAll(fleetCfg)
	summary := fleet.Aggregate(results, time.Now().UTC())

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"summary": summary,
			"results": results,
		})
	}

	fmt.Fprintf(os.Stdout, "Scanned %d services (%d failed)\n", summary.TotalServices, summary.FailedScans)
	fmt.Fprintf(os.Stdout, "Endpoints: %d total, %d unused (%.2f%%)\n",
		summary.TotalEndpoints, summary.TotalUnused, summary.UnusedPercentage)
	for _, r := range results {
		if r.Status == fleet.StatusError {
			fmt.Fprintf(os.Stdout, "  %-24s ERROR: %s\n", r.Service, r.Error)
			continue
		}
		fmt.Fprintf(os.Stdout, "  %-24s %d endpoints, %d unused\n",
			r.Service, r.EndpointsTotal, r.EndpointsUnused)
	}

	if len(summary.DuplicateEndpoints) > 0 {
		keys := make([]string, 0, len(summary.DuplicateEndpoints))
		for k := range summary.DuplicateEndpoints {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(os.Stdout, "Endpoints declared by multiple services:")
		for _, k := range keys {
			fmt.Fprintf(os.Stdout, "  %s: %v\n", k, summary.DuplicateEndpoints[k])
		}
	}
	return nil
}
