package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/coachportal/internal/client/cli"
	"github.com/dmitrijs2005/coachportal/internal/client/config"
	"github.com/dmitrijs2005/coachportal/internal/client/metrics"
	"github.com/dmitrijs2005/coachportal/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, MaxSizeMB: 10, MaxBackups: 3})

	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, reg, log); err != nil {
				log.Error(ctx, "metrics server failed", "error", err)
			}
		}()
	}

	app, err := cli.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}
	app.Run(ctx)
}
