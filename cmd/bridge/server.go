package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/agpsuite/telemetry-bridge/internal/bridge"
	"github.com/agpsuite/telemetry-bridge/internal/connection"
	"github.com/agpsuite/telemetry-bridge/internal/journal"
	"github.com/agpsuite/telemetry-bridge/internal/metrics"
	"github.com/agpsuite/telemetry-bridge/internal/model"
	"github.com/agpsuite/telemetry-bridge/internal/poller"
	"github.com/agpsuite/telemetry-bridge/internal/sink/property"
	"github.com/agpsuite/telemetry-bridge/internal/sink/store"
	"github.com/agpsuite/telemetry-bridge/internal/version"
)

// bridgeView is the part of *bridge.Bridge served over HTTP.
type bridgeView interface {
	Connect() error
	Disconnect()
	State() connection.State
	Snapshot() (*model.Snapshot, metrics.Values)
	Stats() bridge.Stats
}

type pinger interface {
	Ping(ctx context.Context) error
}

type handlerDeps struct {
	bridge  bridgeView
	bag     *property.MemoryBag
	store   *store.MemoryStore
	db      pinger          // nil when the journal is disabled
	journal *journal.Writer // nil when the journal is disabled
	poller  *poller.Poller  // nil when polling is disabled
	logger  *slog.Logger
}

// newHandler creates the HTTP handler for health checks and inspection.
func newHandler(d handlerDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Version    version.Info   `json:"version"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Version:    version.Get(),
			Components: make(map[string]any),
		}

		// Producer connection
		state := d.bridge.State()
		health.Components["producer"] = state
		if state != connection.StateConnected {
			health.Status = "degraded"
		}

		// Journal database
		if d.db != nil {
			if err := d.db.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["journal"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["journal"] = "connected"
			}
		}

		code := http.StatusOK
		if health.Status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, health, d.logger)
	})

	mux.HandleFunc("GET /snapshot", func(w http.ResponseWriter, r *http.Request) {
		snap, derived := d.bridge.Snapshot()
		writeJSON(w, http.StatusOK, map[string]any{
			"snapshot": snap,
			"derived":  derived,
		}, d.logger)
	})

	mux.HandleFunc("GET /properties", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.bag.Values(), d.logger)
	})

	mux.HandleFunc("GET /store", func(w http.ResponseWriter, r *http.Request) {
		var view map[string]any
		d.store.View(func(m *store.MemoryStore) {
			view = map[string]any{
				"connected":       m.Connected,
				"telemetry":       m.Telemetry,
				"analysis":        m.Analysis,
				"strategy":        m.Strategy,
				"recommendations": m.Recommendations,
				"live_timing":     m.LiveTiming,
				"status":          m.Status,
				"derived":         m.Derived,
				"last_error":      m.LastError,
			}
		})
		writeJSON(w, http.StatusOK, view, d.logger)
	})

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		stats := map[string]any{
			"bridge":         d.bridge.Stats(),
			"properties_set": d.bag.Sets(),
		}
		if d.journal != nil {
			stats["journal"] = d.journal.Stats()
		}
		if d.poller != nil {
			stats["poller"] = d.poller.Stats()
		}
		writeJSON(w, http.StatusOK, stats, d.logger)
	})

	mux.HandleFunc("POST /connect", func(w http.ResponseWriter, r *http.Request) {
		if err := d.bridge.Connect(); err != nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()}, d.logger)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"state": d.bridge.State()}, d.logger)
	})

	mux.HandleFunc("POST /disconnect", func(w http.ResponseWriter, r *http.Request) {
		d.bridge.Disconnect()
		writeJSON(w, http.StatusOK, map[string]any{"state": d.bridge.State()}, d.logger)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Debug("write response failed", "error", err)
	}
}
