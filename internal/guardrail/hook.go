package guardrail

import (
	"context"
	"log/slog"
)

// Category is the moderation verdict for a piece of agent output.
type Category string

const (
	CategoryNone      Category = "NONE"
	CategoryOffensive Category = "OFFENSIVE"
	CategoryOffBrand  Category = "OFF_BRAND"
	CategoryViolence  Category = "VIOLENCE"
)

// Breach reports whether the category must stop the agent.
func (c Category) Breach() bool {
	return c != "" && c != CategoryNone
}

// Classification is one moderation result.
type Classification struct {
	Category  Category `json:"category"`
	Rationale string   `json:"rationale,omitempty"`
}

// Classifier scores agent output against the moderation policy. The
// production implementation calls an external moderation model; tests use a
// table-driven fake.
type Classifier interface {
	Classify(ctx context.Context, transcript string) (Classification, error)
}

// SessionController is the capability contract a live agent session exposes
// to the guardrail. Both operations must be safe to call on a session that
// has already stopped.
type SessionController interface {
	// Interrupt stops the agent's current response immediately.
	Interrupt(ctx context.Context) error
	// ClearPendingInput drops any queued user input so the stopped response
	// is not resumed.
	ClearPendingInput(ctx context.Context) error
}

// Monitor runs moderation on agent output and halts the session on a breach.
type Monitor struct {
	classifier Classifier
	log        *slog.Logger
}

func NewMonitor(classifier Classifier, log *slog.Logger) *Monitor {
	return &Monitor{classifier: classifier, log: log}
}

// Check classifies the transcript and, on a breach, interrupts the session.
// Classifier failures are returned to the caller; a session that cannot be
// moderated should not keep talking unchecked.
func (m *Monitor) Check(ctx context.Context, session SessionController, transcript string) (Classification, error) {
	c, err := m.classifier.Classify(ctx, transcript)
	if err != nil {
		return Classification{}, err
	}
	if c.Category.Breach() {
		m.OnThresholdBreach(ctx, session, c)
	}
	return c, nil
}

// OnThresholdBreach halts the session: interrupt first, then clear pending
// input so nothing restarts the response. Controller errors are logged, not
// propagated; the breach decision already stands.
func (m *Monitor) OnThresholdBreach(ctx context.Context, session SessionController, c Classification) {
	m.log.WarnContext(ctx, "guardrail breach", "category", c.Category, "rationale", c.Rationale)
	if err := session.Interrupt(ctx); err != nil {
		m.log.ErrorContext(ctx, "session interrupt failed", "error", err)
	}
	if err := session.ClearPendingInput(ctx); err != nil {
		m.log.ErrorContext(ctx, "clear pending input failed", "error", err)
	}
}
