// Package planner drives the dual-agent planning pipeline: both specialists
// are invoked in parallel over the same inputs, their proposals are
// reconciled along weighted structural axes, and the run resolves to exactly
// one terminal outcome.
package planner

import "github.com/luminaide/planforge/plan"

// Stage slugs for progress events. Clients key off these exact strings.
const (
	StageAnalyzing   = "analyzing"
	StageDrafting    = "drafting"
	StageReconciling = "reconciling"
	StageComplete    = "complete"
	StageEscalated   = "escalated"
	StageError       = "error"
)

// ProgressEvent is emitted at each stage boundary of a run. Progress is
// monotonically non-decreasing within one run, except that an error event
// reports 0 regardless of prior progress.
type ProgressEvent struct {
	Stage    string         `json:"stage"`
	Progress int            `json:"progress"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

// Outcome is the terminal result of one orchestrator run. It is a sealed sum
// type so the three cases are handled exhaustively.
type Outcome interface {
	outcome()
}

// Complete carries a fully reconciled build plan.
type Complete struct {
	Architecture *plan.Architecture

	// Score is the disagreement score the run merged at. Zero for
	// single-sourced plans, which were never compared.
	Score float64
}

func (Complete) outcome() {}

// Escalation carries the two irreconcilable proposals verbatim plus a
// natural-language reason, for human adjudication. It is a valid terminal
// state, not a failure.
type Escalation struct {
	Reason       string
	Visual       *plan.Proposal
	Architecture *plan.Proposal
	Score        float64
}

func (Escalation) outcome() {}

// Failure is a terminal planning failure.
type Failure struct {
	Err error
}

func (Failure) outcome() {}
