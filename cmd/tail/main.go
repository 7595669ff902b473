// tail connects to an AGP producer and streams decoded events to the console.
// Usage: go run ./cmd/tail --producer localhost:8765 [--verbose]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/agpsuite/telemetry-bridge/internal/bridge"
	"github.com/agpsuite/telemetry-bridge/internal/command"
	"github.com/agpsuite/telemetry-bridge/internal/config"
	"github.com/agpsuite/telemetry-bridge/internal/fanout"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config file (optional)")
	producer := pflag.String("producer", "", "producer address (host:port)")
	verbose := pflag.BoolP("verbose", "v", false, "print full snapshot JSON")
	summary := pflag.Bool("summary", false, "request a session summary once connected")
	pflag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *producer != "" {
		if err := cfg.Producer.SetAddress(*producer); err != nil {
			logger.Error("invalid --producer", "error", err)
			os.Exit(1)
		}
	}
	bcfg := bridge.ConfigFrom(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	b, err := bridge.New(bcfg, logger)
	if err != nil {
		logger.Error("failed to create bridge", "error", err)
		os.Exit(1)
	}

	p := &printer{out: os.Stdout, verbose: *verbose}
	if _, err := b.Subscribe("console", p); err != nil {
		logger.Error("failed to subscribe", "error", err)
		os.Exit(1)
	}
	if *summary {
		b.Subscribe("summary", fanout.HandlerFunc(func(e fanout.Event) {
			if e.Kind == fanout.KindConnectivity && e.Connected {
				b.SendCommand(command.GetSummary())
			}
		}))
	}

	logger.Info("connecting", "url", bcfg.Connection.URL())
	if err := b.Start(ctx); err != nil {
		logger.Error("failed to start bridge", "error", err)
		os.Exit(1)
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s := b.Stats()
				logger.Info("stats",
					"state", s.Connection.State,
					"received", s.Connection.MessagesReceived,
					"retries", s.Connection.Retries,
					"decode_errors", s.Decoder.DecodeErrors,
					"unrecognized", s.Decoder.Unrecognized,
					"published", s.Publisher.Published,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	b.Stop(shutdownCtx)

	logger.Info("shutdown complete")
}

// printer writes one line per event.
type printer struct {
	out     io.Writer
	verbose bool
}

func (p *printer) Handle(e fanout.Event) {
	fmt.Fprintln(p.out, formatEvent(e, p.verbose))
}

func formatEvent(e fanout.Event, verbose bool) string {
	switch e.Kind {
	case fanout.KindConnectivity:
		if e.Connected {
			return fmt.Sprintf("[CONNECTED] seq=%d session=%s", e.Seq, e.Session)
		}
		return fmt.Sprintf("[DISCONNECTED] seq=%d session=%s explicit=%t", e.Seq, e.Session, e.Explicit)

	case fanout.KindError:
		return fmt.Sprintf("[ERROR] seq=%d %v", e.Seq, e.Err)

	case fanout.KindSnapshot:
		if verbose && e.Snapshot != nil {
			data, _ := json.MarshalIndent(map[string]any{
				"snapshot": e.Snapshot,
				"derived":  e.Derived,
			}, "", "  ")
			return fmt.Sprintf("[SNAPSHOT] seq=%d touched=%s\n%s", e.Seq, e.Touched, data)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "[SNAPSHOT] seq=%d touched=%s", e.Seq, e.Touched)
		if e.Derived.Balance != nil {
			fmt.Fprintf(&b, " balance=%.1f", *e.Derived.Balance)
		}
		fmt.Fprintf(&b, " tire=%.1f", e.Derived.TireCondition)
		if e.Derived.FuelUrgency != nil {
			fmt.Fprintf(&b, " fuel_urgency=%.2f", *e.Derived.FuelUrgency)
		}
		if e.Snapshot != nil {
			if rec, ok := e.Snapshot.NextRecommendation(); ok {
				fmt.Fprintf(&b, " next=%q", rec.Title)
			}
		}
		return b.String()
	}
	return fmt.Sprintf("[%s] seq=%d", strings.ToUpper(e.Kind.String()), e.Seq)
}
