// Package agent exposes the two specialist reasoning agents behind a uniform
// gateway. Callers pick an agent kind and a budget; the gateway owns prompt
// construction, the LLM call, and normalizing the model's output into a
// comparable Proposal.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/luminaide/planforge/llm"
	"github.com/luminaide/planforge/metrics"
	"github.com/luminaide/planforge/plan"
)

// maxFormatRetries is the total number of LLM call attempts when the response
// isn't valid JSON. On each retry, the parse error is fed back to the LLM as
// a correction prompt so it can fix the output format.
const maxFormatRetries = 3

// Budget bounds one agent invocation.
type Budget struct {
	// Timeout is the wall-clock ceiling for this invocation. It must be
	// strictly smaller than the orchestrator's per-run deadline.
	Timeout time.Duration

	// MaxTokens limits the response length. 0 uses the endpoint default.
	MaxTokens int
}

// Settings holds the endpoint configuration for both agents. Swappable at
// runtime so a config reload takes effect without restarting in-flight runs.
type Settings struct {
	Visual       llm.Endpoint
	Architecture llm.Endpoint

	// Temperature applies to both agents. nil uses provider defaults.
	Temperature *float64
}

// completer is the subset of the LLM client used by the gateway. Extracted
// as an interface to enable testing with canned responses.
type completer interface {
	Complete(ctx context.Context, ep llm.Endpoint, req llm.Request) (*llm.Response, error)
}

// Gateway invokes a specialist agent and returns its normalized proposal.
type Gateway struct {
	client   completer
	logger   *slog.Logger
	settings atomic.Pointer[Settings]
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// NewGateway creates a gateway over the given LLM client and settings.
func NewGateway(client completer, settings Settings, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		client: client,
		logger: slog.Default(),
	}
	g.settings.Store(&settings)

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// UpdateSettings swaps the agent endpoint configuration. In-flight
// invocations keep the settings they started with.
func (g *Gateway) UpdateSettings(settings Settings) {
	g.settings.Store(&settings)
}

// Invoke runs one specialist agent over the concept/manifest pair and
// returns its proposal. The invocation is bounded by the budget's timeout;
// a timeout or malformed output surfaces as an error for the orchestrator
// to fold into its outcome.
func (g *Gateway) Invoke(ctx context.Context, kind plan.AgentKind, concept plan.Concept, manifest plan.LayoutManifest, budget Budget) (*plan.Proposal, error) {
	settings := g.settings.Load()

	var endpoint llm.Endpoint
	switch kind {
	case plan.AgentVisual:
		endpoint = settings.Visual
	case plan.AgentArchitecture:
		endpoint = settings.Architecture
	default:
		return nil, fmt.Errorf("unknown agent kind: %s", kind)
	}

	if budget.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget.Timeout)
		defer cancel()
	}

	requestID := uuid.New().String()
	started := time.Now()

	messages, err := buildMessages(kind, concept, manifest)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	proposal, err := g.completeWithFormatRetry(ctx, kind, endpoint, messages, settings.Temperature, budget.MaxTokens)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ObserveAgentInvocation(string(kind), status, time.Since(started))

	if err != nil {
		g.logger.Warn("Agent invocation failed",
			"request_id", requestID,
			"agent", kind,
			"model", endpoint.Model,
			"duration", time.Since(started),
			"error", err)
		return nil, err
	}

	g.logger.Info("Agent proposal received",
		"request_id", requestID,
		"agent", kind,
		"model", endpoint.Model,
		"duration", time.Since(started),
		"entities", len(proposal.DataModel),
		"routes", len(proposal.Routes))

	return proposal, nil
}

// completeWithFormatRetry calls the LLM, feeding parse errors back as
// correction prompts until the response parses or attempts run out.
func (g *Gateway) completeWithFormatRetry(ctx context.Context, kind plan.AgentKind, endpoint llm.Endpoint, messages []llm.Message, temperature *float64, maxTokens int) (*plan.Proposal, error) {
	var lastErr error

	for attempt := 1; attempt <= maxFormatRetries; attempt++ {
		resp, err := g.client.Complete(ctx, endpoint, llm.Request{
			Messages:    messages,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", kind, err)
		}

		proposal, err := parseProposal(kind, resp.Content)
		if err == nil {
			return proposal, nil
		}

		lastErr = err
		g.logger.Debug("Agent output failed to parse, requesting correction",
			"agent", kind,
			"attempt", attempt,
			"error", err)

		// Feed the parse error back so the model can fix its format.
		messages = append(messages,
			llm.Message{Role: "assistant", Content: resp.Content},
			llm.Message{Role: "user", Content: fmt.Sprintf(
				"Your previous response could not be parsed: %v. Respond again with only the JSON object, no prose.", err)},
		)
	}

	return nil, fmt.Errorf("agent %s: output did not parse after %d attempts: %w", kind, maxFormatRetries, lastErr)
}

// parseProposal extracts and validates the proposal JSON from raw model
// output.
func parseProposal(kind plan.AgentKind, content string) (*plan.Proposal, error) {
	raw := llm.ExtractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var proposal plan.Proposal
	if err := json.Unmarshal([]byte(raw), &proposal); err != nil {
		return nil, fmt.Errorf("unmarshal proposal: %w", err)
	}

	if len(proposal.DataModel) == 0 {
		return nil, fmt.Errorf("proposal has no data model entities")
	}
	if len(proposal.Routes) == 0 {
		return nil, fmt.Errorf("proposal has no routes")
	}

	proposal.Agent = kind
	normalizeProposal(&proposal)
	return &proposal, nil
}
