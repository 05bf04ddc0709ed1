package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/adylagad/gh-api-graveyard/internal/analyzer"
	"github.com/adylagad/gh-api-graveyard/internal/config"
	"github.com/adylagad/gh-api-graveyard/internal/discovery"
	"github.com/adylagad/gh-api-graveyard/internal/logs"
	"github.com/adylagad/gh-api-graveyard/internal/openapi"
	"github.com/adylagad/gh-api-graveyard/internal/report"
)

// commonFlags are the input-resolution flags shared by the analysis
// commands.
type commonFlags struct {
	configPath string
	spec       string
	logsPath   string
	service    string
	window     string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "config file (default: discover .graveyard.yml)")
	fs.StringVar(&c.spec, "spec", "", "OpenAPI spec file (default: from config or discovery)")
	fs.StringVar(&c.logsPath, "logs", "", "access log file, .jsonl or .jsonl.gz (default: from config or discovery)")
	fs.StringVar(&c.service, "service", "", "service name for reports and history")
	fs.StringVar(&c.window, "window", "", `only count log entries within this window, e.g. "90d" or "720h"`)
}

// loadConfig reads the config file, falling back to discovery in the
// working directory, then layers environment overrides on top.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Discover(".")
	}
	if err != nil {
		return nil, err
	}
	config.LoadFromEnv(cfg)
	return cfg, nil
}

// resolveInputs merges flags, config, and discovery into concrete paths
// and analyzer options.
func resolveInputs(flags *commonFlags, cfg *config.Config) (specPath, logsPath, service string, opts analyzer.Options, err error) {
	specPath, logsPath = discovery.Resolve(flags.spec, flags.logsPath, cfg, ".")
	if specPath == "" {
		return "", "", "", opts, fmt.Errorf("no OpenAPI spec found; pass -spec or add one to the config")
	}
	if logsPath == "" {
		return "", "", "", opts, fmt.Errorf("no access logs found; pass -logs or add them to the config")
	}

	service = flags.service
	if service == "" {
		service = cfg.Service
	}

	window := flags.window
	if window == "" {
		window = cfg.Window
	}
	opts.Window, err = config.ParseWindow(window)
	if err != nil {
		return "", "", "", opts, err
	}
	return specPath, logsPath, service, opts, nil
}

// analyze runs one full analysis: parse the spec, stream the logs, score
// the endpoints.
func analyze(specPath, logsPath, service string, opts analyzer.Options, logger *zap.Logger) (*report.Report, *openapi.Document, error) {
	doc, err := openapi.Load(specPath)
	if err != nil {
		return nil, nil, err
	}
	if service == "" {
		service = doc.Title()
	}

	reader, err := logs.Open(logsPath, logger)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = reader.Close() }()

	results, diag, err := analyzer.Analyze(doc.Endpoints(), reader, opts)
	if err != nil {
		return nil, nil, err
	}
	if reader.Skipped() > 0 {
		logger.Warn("skipped unparseable log lines", zap.Int("lines", reader.Skipped()))
	}
	return report.New(service, results, diag, time.Now().UTC()), doc, nil
}

// writeOutput writes rendered bytes to a file, or stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
