// Package events publishes terminal planning outcomes to NATS for downstream
// consumers (code generation workers, analytics). Publishing is optional and
// best-effort; the planning pipeline never depends on it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is the subject prefix for outcome events when none is
// configured. The outcome label ("complete", "escalation", "error") is
// appended as the final token.
const DefaultSubjectPrefix = "planforge.plan"

// OutcomeEvent is the payload published per terminal outcome.
type OutcomeEvent struct {
	SessionID string    `json:"session_id"`
	Outcome   string    `json:"outcome"`
	EmittedAt time.Time `json:"emitted_at"`
	Payload   any       `json:"payload,omitempty"`
}

// Publisher publishes outcome events to NATS.
type Publisher struct {
	conn          *nats.Conn
	subjectPrefix string
	logger        *slog.Logger
}

// Connect dials NATS and returns a publisher.
func Connect(url, subjectPrefix string, logger *slog.Logger) (*Publisher, error) {
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("planforge"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	logger.Info("Connected to NATS", "url", url, "subject_prefix", subjectPrefix)

	return &Publisher{
		conn:          conn,
		subjectPrefix: subjectPrefix,
		logger:        logger,
	}, nil
}

// PublishOutcome emits one event for a finished planning session.
func (p *Publisher) PublishOutcome(ctx context.Context, sessionID, outcome string, payload any) error {
	event := OutcomeEvent{
		SessionID: sessionID,
		Outcome:   outcome,
		EmittedAt: time.Now().UTC(),
		Payload:   payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal outcome event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, outcome)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish outcome event: %w", err)
	}

	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush outcome event: %w", err)
	}

	return nil
}

// Close drains the connection, letting buffered events flush first.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("Failed to drain NATS connection", "error", err)
	}
}
