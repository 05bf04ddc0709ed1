package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/adylagad/gh-api-graveyard/internal/history"
	"github.com/adylagad/gh-api-graveyard/internal/logger"
	"github.com/adylagad/gh-api-graveyard/internal/report"
	"github.com/adylagad/gh-api-graveyard/internal/web"
)

func runServe(args []string, _ *zap.Logger) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	port := fs.Int("port", 0, "listen port (default: from config)")
	watch := fs.Bool("watch", false, "re-run the analysis when the spec or logs change")
	noHistory := fs.Bool("no-history", false, "serve without a history store")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// The server wants full request logging, not the quiet CLI logger.
	log, err := logger.NewServer()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig(common.configPath)
	if err != nil {
		return err
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *watch {
		cfg.Server.Watch = true
	}
	specPath, logsPath, service, opts, err := resolveInputs(&common, cfg)
	if err != nil {
		return err
	}
	if service != "" {
		cfg.Service = service
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store *history.Store
	if !*noHistory {
		store, err = history.Open(ctx, cfg.History.Driver, cfg.History.DSN, log)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
	}

	refresh := func(ctx context.Context) (*report.Report, error) {
		rep, _, err := analyze(specPath, logsPath, service, opts, log)
		if err != nil {
			return nil, err
		}
		if store != nil {
			scan := history.FromResults(rep.Service, rep.Results, rep.Diagnostics, time.Now().UTC())
			if err := store.SaveScan(ctx, scan); err != nil {
				log.Warn("persisting scan failed", zap.Error(err))
			}
		}
		return rep, nil
	}

	server := web.NewServer(cfg, log, refresh, store)

	if cfg.Server.Watch {
		go func() {
			if err := server.Watch(ctx, []string{specPath, logsPath}); err != nil && ctx.Err() == nil {
				log.Error("watcher stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
