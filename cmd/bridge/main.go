package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/agpsuite/telemetry-bridge/internal/bridge"
	"github.com/agpsuite/telemetry-bridge/internal/config"
	"github.com/agpsuite/telemetry-bridge/internal/journal"
	"github.com/agpsuite/telemetry-bridge/internal/poller"
	"github.com/agpsuite/telemetry-bridge/internal/sink/property"
	"github.com/agpsuite/telemetry-bridge/internal/sink/store"
	"github.com/agpsuite/telemetry-bridge/internal/tracing"
	"github.com/agpsuite/telemetry-bridge/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config file (optional)")
	logLevel := pflag.String("log-level", "", "override logging.level")
	producer := pflag.String("producer", "", "override producer address (host:port)")
	pflag.Parse()

	cfg, err := loadConfig(*configPath, *logLevel, *producer)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting bridge",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"producer", bridge.ConfigFrom(cfg).Connection.URL(),
	)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("bridge failed", "error", err)
		os.Exit(1)
	}

	logger.Info("bridge stopped")
}

// loadConfig loads the file, applies flag overrides and validates.
func loadConfig(path, logLevel, producer string) (*config.BridgeConfig, error) {
	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if producer != "" {
		if err := cfg.Producer.SetAddress(producer); err != nil {
			return nil, fmt.Errorf("--producer: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// run wires every component and blocks until a signal or a fatal error.
func run(parent context.Context, cfg *config.BridgeConfig, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}

	b, err := bridge.New(bridge.ConfigFrom(cfg), logger)
	if err != nil {
		return fmt.Errorf("create bridge: %w", err)
	}

	// Host-plugin property surface
	bag := property.NewMemoryBag()
	props, err := property.NewSink(bag, cfg.Properties.Prefix, logger)
	if err != nil {
		return fmt.Errorf("create property sink: %w", err)
	}
	if _, err := b.Subscribe("properties", props); err != nil {
		return err
	}

	// UI store
	ui := &store.MemoryStore{}
	if _, err := b.Subscribe("store", store.NewAdapter(ui, logger)); err != nil {
		return err
	}

	deps := handlerDeps{bridge: b, bag: bag, store: ui, logger: logger}

	// Connection journal
	var writer *journal.Writer
	if cfg.Journal.Enabled {
		db := cfg.Journal.Database
		logger.Info("connecting to journal database",
			"host", db.Host,
			"port", db.Port,
			"database", db.Name,
		)

		pool, err := journal.Connect(ctx, db)
		if err != nil {
			return fmt.Errorf("connect journal: %w", err)
		}
		defer pool.Close()

		if err := journal.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		writer = journal.NewWriter(journal.Config{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
			BufferSize:    cfg.Journal.BufferSize,
		}, pool, logger)
		if err := writer.Start(ctx); err != nil {
			return fmt.Errorf("start journal: %w", err)
		}
		if _, err := b.Subscribe("journal", writer); err != nil {
			return err
		}
		deps.db = pool
		deps.journal = writer
	}

	var poll *poller.Poller
	if !cfg.Poller.Disabled {
		poll = poller.New(poller.Config{
			StatusInterval:          cfg.Poller.StatusInterval,
			RecommendationsInterval: cfg.Poller.RecommendationsInterval,
		}, b, logger)
		deps.poller = poll
	}

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}
	if poll != nil {
		if err := poll.Start(ctx); err != nil {
			return fmt.Errorf("start poller: %w", err)
		}
	}

	addr := net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port))
	server := &http.Server{
		Addr:              addr,
		Handler:           newHandler(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// Handle shutdown signals
	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("starting http server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		var errs []error
		errs = append(errs, server.Shutdown(shutdownCtx))
		if poll != nil {
			errs = append(errs, poll.Stop(shutdownCtx))
		}
		// Stopping the bridge drains the publisher into the journal.
		errs = append(errs, b.Stop(shutdownCtx))
		if writer != nil {
			errs = append(errs, writer.Stop(shutdownCtx))
		}
		errs = append(errs, shutdownTracing(shutdownCtx))
		return errors.Join(errs...)
	})

	logger.Info("bridge running",
		"http_url", fmt.Sprintf("http://%s/health", addr),
		"journal", cfg.Journal.Enabled,
		"poller", poll != nil,
	)

	return g.Wait()
}
