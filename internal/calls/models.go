package calls

import "time"

// CallRecord is the group-scoped source of truth for one outbound call.
//
// Multi-tenant invariant: GroupID is required on every row.
//
// CorrelationID is the provider's call id (Twilio CallSid). It is empty until
// the dial succeeds, and is the only join key status callbacks carry.
//
// Money invariant reminder: call billing references CorrelationID in the
// usage ledger rather than mutating money fields here.
type CallRecord struct {
	ID      string `json:"id" db:"id"`
	GroupID string `json:"group_id" db:"group_id"`

	CorrelationID string `json:"correlation_id,omitempty" db:"correlation_id"`

	From string `json:"from" db:"from_number"`
	To   string `json:"to" db:"to_number"`

	// RequestedBy is the user the call (and its billing) is attributed to.
	RequestedBy string `json:"requested_by" db:"requested_by"`

	ContactName  string `json:"contact_name,omitempty" db:"contact_name"`
	ContactEmail string `json:"contact_email,omitempty" db:"contact_email"`

	// ListEntryID back-references the group's list projection row.
	ListEntryID string `json:"list_entry_id,omitempty" db:"list_entry_id"`

	Status CallStatus `json:"status" db:"status"`

	// DurationSeconds is only meaningful once the call completes.
	DurationSeconds int `json:"duration" db:"duration_seconds"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CallListEntry is the per-group list projection the console renders. It is
// keyed by its own id and cross-referenced by correlation id, so it can be
// resolved even when the back-reference on the record is missing.
type CallListEntry struct {
	ID      string `json:"id" db:"id"`
	GroupID string `json:"group_id" db:"group_id"`

	CorrelationID string `json:"correlation_id,omitempty" db:"correlation_id"`

	PhoneNumber string `json:"phone_number" db:"phone_number"`
	ContactName string `json:"contact_name,omitempty" db:"contact_name"`

	Status          CallStatus `json:"status" db:"status"`
	DurationSeconds int        `json:"duration" db:"duration_seconds"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CallStatus string

const (
	CallStatusPending    CallStatus = "pending"
	CallStatusCalling    CallStatus = "calling"
	CallStatusQueued     CallStatus = "queued"
	CallStatusInitiated  CallStatus = "initiated"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusBusy       CallStatus = "busy"
	CallStatusNoAnswer   CallStatus = "no_answer"
	CallStatusCanceled   CallStatus = "canceled"
)

// rawStatusMap translates the provider's callback vocabulary. Raw strings
// outside this table pass through verbatim so new provider statuses flow to
// the UI instead of being dropped.
var rawStatusMap = map[string]CallStatus{
	"pending":     CallStatusPending,
	"calling":     CallStatusCalling,
	"queued":      CallStatusQueued,
	"initiated":   CallStatusInitiated,
	"ringing":     CallStatusRinging,
	"answered":    CallStatusInProgress,
	"in-progress": CallStatusInProgress,
	"in_progress": CallStatusInProgress,
	"completed":   CallStatusCompleted,
	"failed":      CallStatusFailed,
	"busy":        CallStatusBusy,
	"no-answer":   CallStatusNoAnswer,
	"no_answer":   CallStatusNoAnswer,
	"canceled":    CallStatusCanceled,
}

// NormalizeStatus maps a raw provider status into the internal vocabulary.
// Unknown strings come back as-is with Known() == false.
func NormalizeStatus(raw string) CallStatus {
	if s, ok := rawStatusMap[raw]; ok {
		return s
	}
	return CallStatus(raw)
}

// Known reports whether the status belongs to the internal vocabulary.
func (s CallStatus) Known() bool {
	switch s {
	case CallStatusPending, CallStatusCalling, CallStatusQueued, CallStatusInitiated,
		CallStatusRinging, CallStatusInProgress, CallStatusCompleted,
		CallStatusFailed, CallStatusBusy, CallStatusNoAnswer, CallStatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether the status is absorbing: once a call reaches a
// terminal status, later events must not move it.
func (s CallStatus) Terminal() bool {
	switch s {
	case CallStatusCompleted, CallStatusFailed, CallStatusBusy, CallStatusNoAnswer, CallStatusCanceled:
		return true
	}
	return false
}
