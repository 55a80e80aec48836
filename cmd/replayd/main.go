// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Command replayd runs the input capture and playback daemon with its HTTP
// command surface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/replayd/internal/api"
	"github.com/ManuGH/replayd/internal/capture"
	"github.com/ManuGH/replayd/internal/config"
	"github.com/ManuGH/replayd/internal/control"
	"github.com/ManuGH/replayd/internal/history"
	"github.com/ManuGH/replayd/internal/inject"
	xglog "github.com/ManuGH/replayd/internal/log"
	"github.com/ManuGH/replayd/internal/recorder"
	"github.com/ManuGH/replayd/internal/store"
	"github.com/ManuGH/replayd/internal/telemetry"
	"github.com/ManuGH/replayd/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if err := run(*configPath); err != nil {
		logger := xglog.Base()
		logger.Error().Err(err).Msg("replayd exited with error")
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: "replayd"})
	logger := xglog.WithComponent("main")
	logger.Info().
		Str("version", version.Version).
		Str("listen", cfg.API.Listen).
		Msg("starting replayd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "replayd",
		ServiceVersion: version.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown")
		}
	}()

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir, err = store.DefaultDir()
		if err != nil {
			return err
		}
	} else {
		dataDir = filepath.Join(dataDir, "macros")
	}
	macros, err := store.New(dataDir)
	if err != nil {
		return err
	}
	logger.Info().Str("dir", macros.Dir()).Msg("macro store ready")

	hist, err := history.Open(filepath.Join(filepath.Dir(macros.Dir()), "history.db"))
	if err != nil {
		return fmt.Errorf("open playback history: %w", err)
	}
	defer func() {
		if err := hist.Close(); err != nil {
			logger.Warn().Err(err).Msg("close playback history")
		}
	}()

	backend := inject.NewPlatform(inject.Options{
		PacketCap:  cfg.Playback.PacketCap,
		MaxRate:    cfg.Playback.MaxInjectionRate,
		UseQPCTime: cfg.Playback.UseQPCTime,
	})
	rec := recorder.New(capture.NewPlatform())

	ctrl := control.New(control.Options{
		Backend:          backend,
		Recorder:         rec,
		FailureThreshold: cfg.Playback.FailureThreshold,
		History:          hist,
	})

	server := api.NewServer(api.Options{
		Controller:   ctrl,
		Store:        macros,
		History:      hist,
		SpeedDefault: cfg.Playback.SpeedDefault,
		RateLimit:    cfg.API.RateLimit,
	})
	httpServer := &http.Server{
		Addr:              cfg.API.Listen,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("listen", cfg.API.Listen).Msg("api listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	if configPath != "" {
		g.Go(func() error {
			err := config.Watch(gctx, configPath, func(next config.FileConfig) {
				// Only the log level is hot-reloadable today; listen address
				// and playback wiring require a restart.
				logger.Info().Str("logLevel", next.LogLevel).Msg("applied reloaded configuration")
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	err = g.Wait()

	// Whatever was in flight when the daemon goes down must not leave keys
	// held or a session running.
	ctrl.EmergencyStop()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("replayd stopped")
	return nil
}
