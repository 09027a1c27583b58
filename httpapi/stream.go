package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/luminaide/planforge/metrics"
	"github.com/luminaide/planforge/plan"
	"github.com/luminaide/planforge/planner"
	"github.com/luminaide/planforge/session"
)

// Event types carried in each frame's JSON payload.
const (
	EventProgress   = "progress"
	EventComplete   = "complete"
	EventEscalation = "escalation"
	EventError      = "error"
)

// eventData is the payload of one frame. Variant-specific fields are only
// set on their terminal event.
type eventData struct {
	Stage    string         `json:"stage"`
	Progress int            `json:"progress"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`

	// Complete
	Architecture *plan.Architecture `json:"architecture,omitempty"`

	// Escalation
	Reason               string         `json:"reason,omitempty"`
	VisualProposal       *plan.Proposal `json:"visual_proposal,omitempty"`
	ArchitectureProposal *plan.Proposal `json:"architecture_proposal,omitempty"`
}

// eventEnvelope is the JSON written after "data: " in each frame.
type eventEnvelope struct {
	Type string    `json:"type"`
	Data eventData `json:"data"`
}

// handleStream handles GET /plans/{id}/stream. It resolves the session,
// flips it to running (single-flight), launches the orchestrator in the
// background, and forwards progress until exactly one terminal event has
// been written. The session is deleted afterwards regardless of write
// failures.
func (h *PlanHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "session id required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// Acquire is the single-flight gate: check status and transition to
	// running as one atomic step.
	sess, err := h.store.Acquire(id)
	switch {
	case errors.Is(err, session.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
		h.sendFrame(w, flusher, errorEnvelope("session not found or expired"))
		return
	case errors.Is(err, session.ErrAlreadyRunning):
		w.WriteHeader(http.StatusConflict)
		h.sendFrame(w, flusher, errorEnvelope("planning already in progress for this session"))
		return
	case err != nil:
		w.WriteHeader(http.StatusInternalServerError)
		h.sendFrame(w, flusher, errorEnvelope("failed to resolve session"))
		return
	}

	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.StreamClientConnected()
	defer metrics.StreamClientDisconnected()

	h.logger.Info("Streaming connection attached",
		"session_id", id,
		"concept", sess.Concept.Name)

	progressCh := make(chan planner.ProgressEvent, 16)
	outcomeCh := make(chan planner.Outcome, 1)

	go h.runOrchestrator(sess, progressCh, outcomeCh)

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	// A disconnected client only suppresses writes; the producer keeps
	// running so the session still reaches a terminal state and gets
	// deleted.
	clientGone := r.Context().Done()
	disconnected := false

	for {
		select {
		case <-clientGone:
			disconnected = true
			clientGone = nil
			h.logger.Debug("Client disconnected, run continues", "session_id", id)

		case ev := <-progressCh:
			disconnected = h.emitProgress(w, flusher, id, ev, disconnected)

		case <-heartbeat.C:
			if disconnected {
				continue
			}
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				disconnected = true
				continue
			}
			flusher.Flush()

		case outcome := <-outcomeCh:
			// Flush progress still buffered ahead of the terminal event.
			for {
				select {
				case ev := <-progressCh:
					disconnected = h.emitProgress(w, flusher, id, ev, disconnected)
					continue
				default:
				}
				break
			}

			h.finish(w, flusher, id, outcome, disconnected)
			return
		}
	}
}

// runOrchestrator is the producer side of the stream. It runs detached from
// the request context: a client disconnect must not cancel in-flight agent
// calls. Panics out of Execute are folded into an error outcome so the
// consumer always receives exactly one terminal value.
func (h *PlanHandler) runOrchestrator(sess session.Session, progressCh chan<- planner.ProgressEvent, outcomeCh chan<- planner.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			h.logger.Error("Orchestrator fault", "session_id", sess.ID, "panic", p)
			outcomeCh <- planner.Failure{Err: fmt.Errorf("internal planning fault: %v", p)}
		}
	}()

	outcome := h.orchestrator.Execute(context.Background(), planner.Input{
		Concept:  sess.Concept,
		Manifest: sess.Manifest,
		Cached:   sess.Cached,
	}, func(ev planner.ProgressEvent) {
		progressCh <- ev
	})

	outcomeCh <- outcome
}

// emitProgress writes one progress frame, absorbing write failures as a
// disconnect. Returns the updated disconnected state.
func (h *PlanHandler) emitProgress(w http.ResponseWriter, flusher http.Flusher, id string, ev planner.ProgressEvent, disconnected bool) bool {
	if disconnected {
		return true
	}

	err := h.sendFrame(w, flusher, eventEnvelope{
		Type: EventProgress,
		Data: eventData{
			Stage:    ev.Stage,
			Progress: ev.Progress,
			Message:  ev.Message,
			Details:  ev.Details,
		},
	})
	if err != nil {
		h.logger.Debug("Client disconnected during progress", "session_id", id, "error", err)
		return true
	}
	return false
}

// finish emits the terminal event, records the session's final status, and
// deletes it. Deletion happens even when the final write fails.
func (h *PlanHandler) finish(w http.ResponseWriter, flusher http.Flusher, id string, outcome planner.Outcome, disconnected bool) {
	var frame eventEnvelope
	var status session.Status
	var label string

	switch oc := outcome.(type) {
	case planner.Complete:
		var details map[string]any
		if oc.Architecture != nil && oc.Architecture.SingleSourced {
			details = map[string]any{
				"single_sourced": true,
				"source_agent":   string(oc.Architecture.SourceAgent),
			}
		}
		frame = eventEnvelope{
			Type: EventComplete,
			Data: eventData{
				Stage:        planner.StageComplete,
				Progress:     100,
				Message:      "Build plan ready",
				Details:      details,
				Architecture: oc.Architecture,
			},
		}
		status = session.StatusComplete
		label = "complete"

	case planner.Escalation:
		frame = eventEnvelope{
			Type: EventEscalation,
			Data: eventData{
				Stage:                planner.StageEscalated,
				Progress:             80,
				Message:              "Specialists disagree; manual selection required",
				Reason:               oc.Reason,
				VisualProposal:       oc.Visual,
				ArchitectureProposal: oc.Architecture,
			},
		}
		// Escalation is a valid terminal state, not a failure.
		status = session.StatusComplete
		label = "escalation"

	case planner.Failure:
		frame = errorEnvelope(oc.Err.Error())
		status = session.StatusError
		label = "error"

	default:
		frame = errorEnvelope("planning resolved to an unknown outcome")
		status = session.StatusError
		label = "error"
	}

	h.store.SetStatus(id, status)

	if !disconnected {
		if err := h.sendFrame(w, flusher, frame); err != nil {
			h.logger.Debug("Client disconnected during terminal event", "session_id", id, "error", err)
		}
	}

	// Sessions are single-use: gone as soon as the outcome is delivered.
	h.store.Delete(id)
	metrics.RecordRun(label)
	metrics.SetActiveSessions(h.store.Len())

	if h.publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.publisher.PublishOutcome(ctx, id, label, frame.Data); err != nil {
			h.logger.Warn("Failed to publish outcome event", "session_id", id, "error", err)
		}
	}

	h.logger.Info("Planning session finished", "session_id", id, "outcome", label)
}

// errorEnvelope builds an error frame. Error events report progress 0
// regardless of prior progress.
func errorEnvelope(message string) eventEnvelope {
	return eventEnvelope{
		Type: EventError,
		Data: eventData{
			Stage:    planner.StageError,
			Progress: 0,
			Message:  message,
		},
	}
}

// sendFrame writes one "data: <JSON>\n\n" frame and flushes it. Returns an
// error if the write fails (e.g. client disconnected).
func (h *PlanHandler) sendFrame(w http.ResponseWriter, flusher http.Flusher, frame eventEnvelope) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Warn("Failed to marshal SSE frame", "error", err)
		return nil // Don't report marshal errors as connection issues
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	flusher.Flush()
	return nil
}
