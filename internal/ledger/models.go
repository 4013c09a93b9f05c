package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Group is the billing/tenant unit. It owns the shared prepaid balance that
// every member's sessions and calls draw from.
//
// Money invariants:
// - Credits never go negative from any reader's point of view.
// - Credits only decrease through Service debits; increases are explicit
//   admin top-ups.
// - Every debit (and every rejected debit attempt) leaves a UsageEvent.
type Group struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	// Credits is the prepaid balance, in decimal credits.
	Credits decimal.Decimal `json:"credits" db:"credits"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UsageEvent is an immutable, append-only activity record. One row per
// billable operation attempt, including attempts rejected for insufficient
// credits (Success=false). Rows are never updated or deleted.
type UsageEvent struct {
	ID      string `json:"id" db:"id"`
	GroupID string `json:"group_id" db:"group_id"`

	UserID    string `json:"user_id" db:"user_id"`
	UserEmail string `json:"user_email,omitempty" db:"user_email"`

	// ModelTag identifies what was consumed: an LLM model tag, or
	// "twilio-call" for carrier minutes.
	ModelTag string `json:"model" db:"model"`
	// Action is a short human-readable label for dashboards.
	Action string `json:"action,omitempty" db:"action"`

	InputTokens  int64   `json:"input_tokens" db:"input_tokens"`
	OutputTokens int64   `json:"output_tokens" db:"output_tokens"`
	AudioSeconds float64 `json:"audio_seconds" db:"audio_seconds"`

	// DurationSeconds is set for telephony usage.
	DurationSeconds int    `json:"duration,omitempty" db:"duration_seconds"`
	PhoneNumber     string `json:"phone_number,omitempty" db:"phone_number"`

	Cost    decimal.Decimal `json:"cost" db:"cost"`
	Success bool            `json:"success" db:"success"`

	// CorrelationID dedups call billing: at most one event per provider call
	// id may carry a debit. Empty for non-call usage.
	CorrelationID string `json:"correlation_id,omitempty" db:"correlation_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
