// Copyright (c) 2026, Ganeti Project. All rights reserved.
//
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/ganeti/prometheus-ganeti-exporter/internal/collector"
	"github.com/ganeti/prometheus-ganeti-exporter/internal/config"
	"github.com/ganeti/prometheus-ganeti-exporter/internal/exporter"
	"github.com/ganeti/prometheus-ganeti-exporter/internal/ganeti"
	"github.com/ganeti/prometheus-ganeti-exporter/internal/htools"
)

const startupProbeTimeout = 30 * time.Second

func main() {
	var (
		configPath string
		verbose    bool
	)
	flag.StringVar(&configPath, "config", "/etc/ganeti/prometheus-exporter.ini", "Path to the configuration file")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.Parse()

	logger := newLogger(verbose)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error(err, "Failed to load configuration", "path", configPath)
		os.Exit(1)
	}

	client := ganeti.NewClient(cfg.APIEndpoint, cfg.User, cfg.Password,
		ganeti.WithLogger(logger),
		ganeti.WithInsecureTLS(!cfg.VerifyTLS),
	)

	// Probe the endpoint before serving anything: a misconfigured cluster
	// address or bad credentials should fail startup, not linger as an
	// exporter that silently exports nothing.
	probeCtx, cancel := context.WithTimeout(context.Background(), startupProbeTimeout)
	info, err := client.Info(probeCtx)
	cancel()
	if err != nil {
		logger.Error(err, "Failed to reach the Ganeti API", "endpoint", cfg.APIEndpoint)
		os.Exit(1)
	}
	logger.Info("Connected to Ganeti cluster", "cluster", info.Name, "version", info.Version)

	opts := []exporter.Option{exporter.WithLogger(logger)}
	if cfg.HtoolsEnabled() {
		runner := htools.NewRunner(htools.Config{
			HspaceEnabled:      cfg.HspaceEnabled,
			HspacePath:         cfg.HspacePath,
			HspaceDiskTemplate: cfg.HspaceDiskTemplate,
			HspaceAllocData:    cfg.HspaceAllocData,
			HbalEnabled:        cfg.HbalEnabled,
			HbalPath:           cfg.HbalPath,
			HbalExtraParams:    cfg.HbalExtraParams,
		}, cfg.Namespace, logger)
		opts = append(opts, exporter.WithAuxCollector(runner))
	}
	exp := exporter.New(client, collector.New(cfg.Namespace), cfg.RefreshInterval, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", exp.Handler())
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := exp.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		logger.Info("Serving metrics", "addr", server.Addr, "interval", cfg.RefreshInterval)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error(err, "Exporter terminated")
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

func newLogger(verbose bool) logr.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zapLog, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return zapr.NewLogger(zapLog)
}
