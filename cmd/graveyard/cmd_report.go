package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/adylagad/gh-api-graveyard/internal/report"
)

const defaultReportFile = "API_GRAVEYARD_REPORT.md"

func runReport(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	format := fs.String("format", report.FormatMarkdown, "output format: markdown, json, or csv")
	output := fs.String("output", defaultReportFile, "report file to write")
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

	data, err := rep.Render(*format)
	if err != nil {
		return err
	}
	if err := writeOutput(*output, data); err != nil {
		return err
	}

	summary := rep.Summarize()
	fmt.Fprintf(os.Stdout, "Report written to %s (%d endpoints, %d unused, %d safe to prune)\n",
		*output, summary.TotalEndpoints, summary.Unused, summary.HighConfidence)
	return nil
}
