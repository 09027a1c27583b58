// Package session holds ephemeral per-request planning state. Sessions are
// single-use: created pending, flipped to running by exactly one streaming
// connection, and deleted once a terminal outcome has been delivered.
package session

import (
	"time"

	"github.com/luminaide/planforge/plan"
)

// Status is the lifecycle state of a planning session.
type Status string

const (
	// StatusPending indicates the session was created but no streaming
	// connection has attached yet.
	StatusPending Status = "pending"

	// StatusRunning indicates an orchestrator run is attached. The running
	// status doubles as the single-flight lock.
	StatusRunning Status = "running"

	// StatusComplete indicates the run reached a terminal outcome
	// (complete or escalation).
	StatusComplete Status = "complete"

	// StatusError indicates the run failed.
	StatusError Status = "error"
)

// Session is one in-flight planning attempt.
type Session struct {
	// ID is an opaque caller-generated unique token.
	ID string

	// Concept is the structured app concept to plan for.
	Concept plan.Concept

	// Manifest carries the visual/UX hints gathered earlier in the flow.
	Manifest plan.LayoutManifest

	// Cached optionally holds a previously-computed intermediate result so
	// a resumed session avoids re-running finished stages.
	Cached *plan.Intelligence

	// Status is the only field mutated after creation.
	Status Status

	// CreatedAt drives TTL expiry for sessions that are never attached.
	CreatedAt time.Time
}
