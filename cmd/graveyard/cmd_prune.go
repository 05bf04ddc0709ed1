package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/adylagad/gh-api-graveyard/internal/analyzer"
)

func runPrune(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	threshold := fs.Int("threshold", 0, "minimum confidence to prune (default: from config)")
	output := fs.String("output", "", "write the pruned spec here (default: overwrite the input)")
	dryRun := fs.Bool("dry-run", false, "list what would be pruned without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(common.configPath)
	if err != nil {
		return err
	}
	specPath, logsPath, service, opts, err := resolveInputs(&common, cfg)
	if err != nil {
		return err
	}

	min := *threshold
	if min == 0 {
		min = cfg.Threshold
	}
	if min < 1 || min > 100 {
		return fmt.Errorf("threshold must be between 1 and 100, got %d", min)
	}

	rep, doc, err := analyze(specPath, logsPath, service, opts, logger)
	if err != nil {
		return err
	}

	candidates := analyzer.FilterByConfidence(rep.Results, min)
	if len(candidates) == 0 {
		fmt.Fprintf(os.Stdout, "Nothing to prune at confidence >= %d\n", min)
		return nil
	}

	var endpoints []analyzer.Endpoint
	for _, r := range candidates {
		endpoints = append(endpoints, r.Endpoint)
	}

	if *dryRun {
		fmt.Fprintf(os.Stdout, "Would prune %d endpoints (confidence >= %d):\n", len(endpoints), min)
		for _, r := range candidates {
			fmt.Fprintf(os.Stdout, "  [%d] %s\n", r.Confidence, r.Endpoint)
		}
		return nil
	}

	removed := doc.Prune(endpoints)
	dest := *output
	if dest == "" {
		dest = specPath
	}
	if err := doc.Save(dest); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Pruned %d operations, wrote %s\n", removed, dest)
	return nil
}
