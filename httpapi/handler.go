// Package httpapi exposes the planning pipeline over HTTP: a thin create
// endpoint and the SSE stream that drives one orchestrator run per session.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/luminaide/planforge/metrics"
	"github.com/luminaide/planforge/plan"
	"github.com/luminaide/planforge/planner"
	"github.com/luminaide/planforge/session"
)

// maxCreateBodySize limits the size of create request bodies to prevent DoS.
const maxCreateBodySize = 1 << 20 // 1 MB

// defaultHeartbeatInterval is how often a keepalive comment is written while
// a run is in flight, so proxies don't reap idle connections.
const defaultHeartbeatInterval = 30 * time.Second

// executor is the orchestrator seam. It never returns an error; expected
// failures arrive as a Failure outcome.
type executor interface {
	Execute(ctx context.Context, in planner.Input, onProgress func(planner.ProgressEvent)) planner.Outcome
}

// outcomePublisher forwards terminal outcomes to downstream consumers.
// Optional; nil disables publishing.
type outcomePublisher interface {
	PublishOutcome(ctx context.Context, sessionID, outcome string, payload any) error
}

// referenceFetcher distills an inspiration URL into readable markdown.
// Optional; nil disables reference ingestion.
type referenceFetcher interface {
	Digest(ctx context.Context, url string) (string, error)
}

// PlanHandler provides the /plans endpoints.
type PlanHandler struct {
	store        *session.Store
	orchestrator executor
	publisher    outcomePublisher
	fetcher      referenceFetcher
	logger       *slog.Logger
	heartbeat    time.Duration
}

// HandlerOption configures a PlanHandler.
type HandlerOption func(*PlanHandler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *PlanHandler) {
		h.logger = logger
	}
}

// WithPublisher sets the terminal-outcome publisher.
func WithPublisher(p outcomePublisher) HandlerOption {
	return func(h *PlanHandler) {
		h.publisher = p
	}
}

// WithReferenceFetcher sets the reference ingestion fetcher.
func WithReferenceFetcher(f referenceFetcher) HandlerOption {
	return func(h *PlanHandler) {
		h.fetcher = f
	}
}

// WithHeartbeatInterval overrides the SSE keepalive interval, for tests.
func WithHeartbeatInterval(d time.Duration) HandlerOption {
	return func(h *PlanHandler) {
		h.heartbeat = d
	}
}

// NewPlanHandler creates the HTTP handler for planning sessions.
func NewPlanHandler(store *session.Store, orchestrator executor, opts ...HandlerOption) *PlanHandler {
	h := &PlanHandler{
		store:        store,
		orchestrator: orchestrator,
		logger:       slog.Default(),
		heartbeat:    defaultHeartbeatInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterHTTPHandlers registers the plan API endpoints.
// The prefix should be "/plans" (without trailing slash).
func (h *PlanHandler) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	prefix = strings.TrimSuffix(prefix, "/")

	// POST /plans - Create a planning session
	mux.HandleFunc("POST "+prefix, h.handleCreate)

	// GET /plans/{id}/stream - SSE stream driving one orchestrator run
	mux.HandleFunc("GET "+prefix+"/{id}/stream", h.handleStream)
}

// CreateRequest is the request body for POST /plans.
type CreateRequest struct {
	Concept  plan.Concept        `json:"concept"`
	Manifest plan.LayoutManifest `json:"layout_manifest"`

	// CachedIntelligence optionally carries proposals from an earlier
	// attempt so the new session resumes instead of re-invoking agents.
	CachedIntelligence *plan.Intelligence `json:"cached_intelligence,omitempty"`
}

// CreateResponse is the response for POST /plans.
type CreateResponse struct {
	SessionID string `json:"session_id"`
	StreamURL string `json:"stream_url"`
}

// handleCreate validates the concept and registers a pending session. This
// is the thin upstream half of the flow; the heavy lifting starts when a
// streaming connection attaches.
func (h *PlanHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxCreateBodySize)

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Concept.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Best-effort reference ingestion: a dead inspiration URL degrades to
	// the bare manifest, it doesn't block planning.
	if req.Concept.ReferenceURL != "" && h.fetcher != nil {
		digest, err := h.fetcher.Digest(ctx, req.Concept.ReferenceURL)
		if err != nil {
			h.logger.Warn("Reference ingestion failed",
				"url", req.Concept.ReferenceURL,
				"error", err)
		} else {
			req.Concept.ReferenceDigest = digest
		}
	}

	id := uuid.New().String()
	sess := &session.Session{
		ID:       id,
		Concept:  req.Concept,
		Manifest: req.Manifest,
		Cached:   req.CachedIntelligence,
	}

	if err := h.store.Create(sess); err != nil {
		if errors.Is(err, session.ErrExists) {
			h.writeError(w, http.StatusConflict, "session id collision")
			return
		}
		h.logger.Error("Failed to create session", "id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	metrics.SetActiveSessions(h.store.Len())

	h.logger.Info("Planning session created",
		"session_id", id,
		"concept", req.Concept.Name,
		"cached", req.CachedIntelligence != nil)

	h.writeJSON(w, http.StatusCreated, CreateResponse{
		SessionID: id,
		StreamURL: fmt.Sprintf("/plans/%s/stream", id),
	})
}

// writeJSON writes a JSON response.
func (h *PlanHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("Failed to write JSON response", "error", err)
	}
}

// writeError writes a JSON error response.
func (h *PlanHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
