package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"github.com/adylagad/gh-api-graveyard/internal/history"
	"github.com/adylagad/gh-api-graveyard/internal/report"
)

func runAnalyze(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	format := fs.String("format", report.FormatMarkdown, "output format: markdown, json, or csv")
	output := fs.String("output", "", "write output to a file instead of stdout")
	save := fs.Bool("save", false, "persist this scan to history")
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

	rep, _, err := analyze(specPath, logsPath, service, opts, logger)
	if err != nil {
		return err
	}

	if *save {
		ctx := context.Background()
		store, err := history.Open(ctx, cfg.History.Driver, cfg.History.DSN, logger)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		scan := history.FromResults(rep.Service, rep.Results, rep.Diagnostics, time.Now().UTC())
		if err := store.SaveScan(ctx, scan); err != nil {
			return err
		}
	}

	data, err := rep.Render(*format)
	if err != nil {
		return err
	}
	return writeOutput(*output, data)
}
