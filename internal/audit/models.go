package audit

import "time"

// Event is an immutable, append-only ops audit record.
//
// Invariants:
// - Events are never updated or deleted.
// - group_id is required for tenant-scoped events; system events (dropped
//   provider callbacks) have no tenant and leave it empty.
// - Audit logging is best-effort; do not block critical flows on it.
//
// Storage recommendation (Postgres):
// - Table audit_events with an INSERT-only policy.
// - Optional: trigger to prevent UPDATE/DELETE.

type Event struct {
	ID      string `json:"id" db:"id"`
	GroupID string `json:"group_id,omitempty" db:"group_id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event (if applicable).
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress should capture the original client IP when available.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers (optional, depending on the event type).
	CorrelationID string `json:"correlation_id,omitempty" db:"correlation_id"`
	BatchID       string `json:"batch_id,omitempty" db:"batch_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	// EventTypeTopUp records an admin crediting a group's balance.
	EventTypeTopUp EventType = "balance_top_up"
	// EventTypeCallbackDropped records a provider status callback that
	// referenced a call this system never placed.
	EventTypeCallbackDropped EventType = "callback_dropped"
	// EventTypeAdminAction covers other privileged operations.
	EventTypeAdminAction EventType = "admin_action"
)

// systemScoped reports whether the event type carries no tenant.
func (t EventType) systemScoped() bool {
	return t == EventTypeCallbackDropped
}
