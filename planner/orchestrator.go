package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/luminaide/planforge/agent"
	"github.com/luminaide/planforge/plan"
)

// invoker is the subset of the agent gateway the orchestrator uses.
// Extracted as an interface to enable testing with scripted agents.
type invoker interface {
	Invoke(ctx context.Context, kind plan.AgentKind, concept plan.Concept, manifest plan.LayoutManifest, budget agent.Budget) (*plan.Proposal, error)
}

// Config bounds one orchestrator run.
type Config struct {
	// AgentTimeout is the per-agent invocation ceiling. It must be strictly
	// smaller than RunDeadline so a wedged agent call can't starve the run
	// past its terminal event.
	AgentTimeout time.Duration

	// RunDeadline is the hard wall-clock ceiling for a whole run. The host
	// environment kills the process after its own fixed budget; this
	// deadline leaves margin for reconciliation and event emission.
	RunDeadline time.Duration

	// MaxTokens limits each agent response. 0 uses endpoint defaults.
	MaxTokens int

	// EscalationThreshold is the disagreement score at or above which the
	// run escalates. 0 uses the default.
	EscalationThreshold float64
}

// DefaultConfig returns run bounds that fit inside a ten-minute host budget.
func DefaultConfig() Config {
	return Config{
		AgentTimeout:        2 * time.Minute,
		RunDeadline:         8 * time.Minute,
		MaxTokens:           4096,
		EscalationThreshold: defaultEscalationThreshold,
	}
}

// Validate checks that the run bounds are coherent.
func (c Config) Validate() error {
	if c.AgentTimeout <= 0 {
		return fmt.Errorf("agent timeout must be positive")
	}
	if c.RunDeadline <= c.AgentTimeout {
		return fmt.Errorf("run deadline (%s) must exceed the agent timeout (%s)", c.RunDeadline, c.AgentTimeout)
	}
	if c.EscalationThreshold < 0 || c.EscalationThreshold > 1 {
		return fmt.Errorf("escalation threshold must be in [0,1]")
	}
	return nil
}

// Input is everything one run plans from.
type Input struct {
	Concept  plan.Concept
	Manifest plan.LayoutManifest

	// Cached optionally carries proposals from an earlier attempt. When
	// valid for this concept/manifest pair, the drafting stage is skipped
	// and neither agent is re-invoked.
	Cached *plan.Intelligence
}

// Orchestrator produces one Outcome per run, invoking both specialists in
// parallel and reconciling their proposals.
type Orchestrator struct {
	agents invoker
	config Config
	logger *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an orchestrator over the given agent gateway.
func New(agents invoker, config Config, opts ...Option) *Orchestrator {
	if config.EscalationThreshold == 0 {
		config.EscalationThreshold = defaultEscalationThreshold
	}

	o := &Orchestrator{
		agents: agents,
		config: config,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// agentResult is the fan-in record for one specialist invocation.
type agentResult struct {
	kind     plan.AgentKind
	proposal *plan.Proposal
	err      error
}

// Execute runs the planning pipeline and resolves to exactly one outcome.
// Expected failures (agent timeout, agent error, malformed output) are folded
// into a Failure outcome rather than propagated; onProgress is invoked at
// each stage boundary with monotonically non-decreasing progress.
func (o *Orchestrator) Execute(ctx context.Context, in Input, onProgress func(ProgressEvent)) Outcome {
	if onProgress == nil {
		onProgress = func(ProgressEvent) {}
	}

	// Hard per-run deadline: if agents wedge, the run still resolves to a
	// terminal outcome instead of leaving the session running forever.
	ctx, cancel := context.WithTimeout(ctx, o.config.RunDeadline)
	defer cancel()

	started := time.Now()

	onProgress(ProgressEvent{
		Stage:    StageAnalyzing,
		Progress: 0,
		Message:  "Analyzing concept and layout manifest",
	})

	var visual, arch *plan.Proposal
	var visualErr, archErr error

	if in.Cached.ValidFor(in.Concept, in.Manifest) {
		visual, arch = in.Cached.Visual, in.Cached.Architecture

		o.logger.Info("Resuming from cached intelligence",
			"concept", in.Concept.Name,
			"cached_at", in.Cached.CreatedAt)

		onProgress(ProgressEvent{
			Stage:    StageDrafting,
			Progress: 40,
			Message:  "Reusing cached agent proposals",
			Details:  map[string]any{"resumed": true},
		})
	} else {
		onProgress(ProgressEvent{
			Stage:    StageDrafting,
			Progress: 10,
			Message:  "Specialist agents drafting proposals",
		})

		results := o.invokeBoth(ctx, in)
		for _, r := range results {
			switch r.kind {
			case plan.AgentVisual:
				visual, visualErr = r.proposal, r.err
			case plan.AgentArchitecture:
				arch, archErr = r.proposal, r.err
			}
		}

		onProgress(ProgressEvent{
			Stage:    StageDrafting,
			Progress: 40,
			Message:  "Agent proposals received",
			Details: map[string]any{
				"visual_ok":       visualErr == nil,
				"architecture_ok": archErr == nil,
			},
		})
	}

	// Both agents failed: nothing to plan from.
	if visual == nil && arch == nil {
		err := errors.Join(visualErr, archErr)
		if ctx.Err() != nil {
			err = fmt.Errorf("run deadline exceeded after %s: %w", time.Since(started).Round(time.Second), errors.Join(err, ctx.Err()))
		} else {
			err = fmt.Errorf("both specialist agents failed: %w", err)
		}
		o.logger.Error("Planning run failed", "concept", in.Concept.Name, "error", err)
		return Failure{Err: err}
	}

	// Exactly one survived: fall back to its proposal, flagged unverified.
	if visual == nil || arch == nil {
		surviving := visual
		failedKind := plan.AgentArchitecture
		if surviving == nil {
			surviving = arch
			failedKind = plan.AgentVisual
		}

		onProgress(ProgressEvent{
			Stage:    StageReconciling,
			Progress: 80,
			Message:  "Proceeding with single-sourced proposal",
			Details:  map[string]any{"failed_agent": string(failedKind)},
		})

		o.logger.Warn("One specialist failed, using surviving proposal",
			"concept", in.Concept.Name,
			"surviving_agent", surviving.Agent,
			"failed_agent", failedKind)

		return Complete{Architecture: singleSourced(surviving)}
	}

	onProgress(ProgressEvent{
		Stage:    StageReconciling,
		Progress: 50,
		Message:  "Comparing proposals across structural axes",
	})

	score, axes := scoreDisagreement(visual, arch)

	onProgress(ProgressEvent{
		Stage:    StageReconciling,
		Progress: 80,
		Message:  "Reconciliation complete",
		Details:  map[string]any{"disagreement": score},
	})

	if score >= o.config.EscalationThreshold {
		reason := buildReason(axes)
		o.logger.Info("Proposals diverged, escalating",
			"concept", in.Concept.Name,
			"score", score,
			"threshold", o.config.EscalationThreshold)
		return Escalation{
			Reason:       reason,
			Visual:       visual,
			Architecture: arch,
			Score:        score,
		}
	}

	merged := mergeProposals(visual, arch)
	o.logger.Info("Proposals merged",
		"concept", in.Concept.Name,
		"score", score,
		"duration", time.Since(started).Round(time.Millisecond))

	return Complete{Architecture: merged, Score: score}
}

// invokeBoth fans out to both specialists concurrently and fans in at
// reconciliation. Each invocation carries its own timeout.
func (o *Orchestrator) invokeBoth(ctx context.Context, in Input) []agentResult {
	budget := agent.Budget{
		Timeout:   o.config.AgentTimeout,
		MaxTokens: o.config.MaxTokens,
	}

	kinds := []plan.AgentKind{plan.AgentVisual, plan.AgentArchitecture}
	results := make([]agentResult, len(kinds))

	var wg sync.WaitGroup
	for i, kind := range kinds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			proposal, err := o.agents.Invoke(ctx, kind, in.Concept, in.Manifest, budget)
			results[i] = agentResult{kind: kind, proposal: proposal, err: err}
		}()
	}
	wg.Wait()

	return results
}
