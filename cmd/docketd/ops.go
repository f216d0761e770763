package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/docket/pkg/batch"
	"github.com/dmitrymomot/docket/pkg/heartbeat"
	"github.com/dmitrymomot/docket/pkg/httpserver"
	"github.com/dmitrymomot/docket/pkg/logger"
	"github.com/dmitrymomot/docket/pkg/queue"
)

// maxIngestBytes caps uploaded batch files at 32 MiB.
const maxIngestBytes = 32 << 20

type opsDeps struct {
	log            *slog.Logger
	reaper         *queue.Reaper
	registry       *heartbeat.Registry
	tracker        *batch.Tracker
	batches        batch.Repository
	objects        *batch.ObjectSource // nil when S3 ingest is not configured
	livenessWindow time.Duration
	probes         []func(context.Context) error
}

// opsRouter builds the operational HTTP surface: health probes plus the
// read-only dashboards and the batch ingest endpoint.
func opsRouter(ctx context.Context, deps opsDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, deps.log))
	r.Get("/readyz", httpserver.HealthCheckHandler(ctx, deps.log, deps.probes...))

	r.Get("/queue/stats", deps.queueStats)
	r.Get("/workers", deps.workers)

	r.Post("/batches", deps.ingestBatch)
	r.Get("/batches", deps.listBatches)

	return r
}

func (d opsDeps) queueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := d.reaper.Stats(r.Context())
	if err != nil {
		d.serverError(w, r, "failed to read queue stats", err)
		return
	}
	d.respond(w, r, http.StatusOK, map[string]any{
		"stuck":           stats.Stuck,
		"recently_failed": stats.RecentlyFailed,
	})
}

func (d opsDeps) workers(w http.ResponseWriter, r *http.Request) {
	health, err := d.registry.Snapshot(r.Context(), d.livenessWindow)
	if err != nil {
		d.serverError(w, r, "failed to read worker health", err)
		return
	}
	d.respond(w, r, http.StatusOK, health)
}

// ingestBatch admits one judgment file. The file arrives either inline in
// the request body, or by S3 object key (?key=...) fetched through the
// configured ObjectSource.
func (d opsDeps) ingestBatch(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")

	var (
		data []byte
		err  error
	)
	if key := r.URL.Query().Get("key"); key != "" {
		if d.objects == nil {
			d.respond(w, r, http.StatusBadRequest, map[string]any{"error": "s3 ingest is not configured"})
			return
		}
		data, err = d.objects.Fetch(r.Context(), key)
		if err != nil {
			d.serverError(w, r, "failed to fetch batch file", err)
			return
		}
		if source == "" {
			source = key
		}
	} else {
		data, err = io.ReadAll(io.LimitReader(r.Body, maxIngestBytes))
		if err != nil {
			d.respond(w, r, http.StatusBadRequest, map[string]any{"error": "failed to read request body"})
			return
		}
	}

	outcome, err := d.tracker.Ingest(r.Context(), source, data)
	switch {
	case err == nil:
		d.respond(w, r, http.StatusCreated, outcome)
	case errors.Is(err, batch.ErrDuplicateBatch):
		d.respond(w, r, http.StatusConflict, map[string]any{"error": err.Error()})
	case errors.Is(err, batch.ErrBatchRejected), errors.Is(err, batch.ErrEmptyFile):
		// The outcome carries the counters and rejection reason.
		d.respond(w, r, http.StatusUnprocessableEntity, map[string]any{
			"error":   err.Error(),
			"outcome": outcome,
		})
	case errors.Is(err, batch.ErrSourceRequired):
		d.respond(w, r, http.StatusBadRequest, map[string]any{"error": err.Error()})
	default:
		d.serverError(w, r, "batch ingest failed", err)
	}
}

func (d opsDeps) listBatches(w http.ResponseWriter, r *http.Request) {
	outcomes, err := d.batches.ListOutcomes(r.Context(), 50)
	if err != nil {
		d.serverError(w, r, "failed to list batches", err)
		return
	}
	d.respond(w, r, http.StatusOK, outcomes)
}

func (d opsDeps) respond(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		d.log.ErrorContext(r.Context(), "failed to encode response", logger.Error(err))
	}
}

func (d opsDeps) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	d.log.ErrorContext(r.Context(), msg, logger.Error(err))
	d.respond(w, r, http.StatusInternalServerError, map[string]any{"error": msg})
}
