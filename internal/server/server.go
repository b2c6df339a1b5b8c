// Package server exposes slot resolution over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"kanji/internal/collector"
	"kanji/internal/meeting"
	"kanji/internal/resolver"
	"kanji/internal/summary"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxPlanBytes = 1 << 20

// Collector gathers availability for a plan.
type Collector interface {
	Collect(ctx context.Context, plan *meeting.Plan) (*collector.Report, error)
}

type server struct {
	logger    *slog.Logger
	collector Collector
	loc       *time.Location
}

// New builds the HTTP handler. loc is the zone used for plans that do not
// name one.
func New(logger *slog.Logger, coll Collector, loc *time.Location) http.Handler {
	s := &server{logger: logger, collector: coll, loc: loc}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Post("/v1/resolve", s.handleResolve)
	return router
}

func (s *server) handleResolve(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPlanBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}
	plan, err := meeting.Parse(body, s.loc)
	if err != nil {
		logger.Info("Rejected meeting plan", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.collector.Collect(r.Context(), plan)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		logger.Error("Resolution failed", "error", err)
		writeError(w, status, err.Error())
		return
	}

	result := resolver.Resolve(report.Request)
	logger.Info("Resolved meeting", "resolution_id", report.ID, "found", result.Found, "slot", result.Slot.Label, "fallback", result.Fallback())
	writeJSON(w, http.StatusOK, summary.New(plan.Title, report, result))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
