// Package server exposes the coordinator over HTTP.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cockroachdb/errors"

	"GoJoin/internal/coordinator"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler holds the HTTP handlers of the join search API.
type Handler struct {
	coord   *coordinator.Coordinator
	version string
	logger  *slog.Logger
}

// NewHandler creates a Handler backed by coord.
func NewHandler(coord *coordinator.Coordinator, version string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{coord: coord, version: version, logger: logger.With("component", "http")}
}

// RegisterRoutes registers all API routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /ready", h.handleReady)
	mux.HandleFunc("GET /index", h.handleIndex)

	mux.HandleFunc("POST /search", h.handleSearch)
	mux.HandleFunc("POST /run", h.handleRun)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": h.version,
	})
}

// The index is built before the server starts, so a running server is ready.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coord.Stats())
}

// handleSearch executes the query plan in the request body.
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var plan coordinator.QueryPlan
	if err := decode(w, r, &plan); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if plan.Name == "" {
		plan.Name = "adhoc"
	}

	res, err := h.coord.Execute(r.Context(), plan)
	if err != nil {
		status := statusOf(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("search failed", "plan", plan.Name, "error", err)
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type runRequest struct {
	Plans []coordinator.QueryPlan `json:"plans"`
}

// handleRun executes several plans concurrently. Failed plans are reported
// in the body; the status is 422 only when every plan failed.
func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	run, err := h.coord.Run(r.Context(), req.Plans)
	switch {
	case errors.Is(err, coordinator.ErrAllPlansFailed):
		writeJSON(w, http.StatusUnprocessableEntity, run)
	case err != nil:
		writeError(w, statusOf(err), err.Error())
	default:
		writeJSON(w, http.StatusOK, run)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
