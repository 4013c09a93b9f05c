package telephony

// DialProvider is the provider-agnostic interface the dispatch orchestrator
// and state machine depend on.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - All requests are group-scoped (group_id required).
// - Keep request/response types provider-agnostic; the provider's raw status
//   string is carried verbatim and normalized by the call state machine.

import "context"

type DialProvider interface {
	Name() string
	HealthCheck(ctx context.Context) error

	// InitiateCall places an outbound call and returns the provider's call id
	// (the correlation id all later status events carry).
	InitiateCall(ctx context.Context, req DialRequest) (string, error)

	// FetchStatus polls the provider for the call's current status.
	FetchStatus(ctx context.Context, correlationID string) (CallStatusInfo, error)
}

// DialRequest describes one outbound call.
type DialRequest struct {
	GroupID string `json:"group_id"`

	// To is the destination, E.164 where possible. From is optional; the
	// adapter falls back to its configured caller id.
	To   string `json:"to"`
	From string `json:"from,omitempty"`
}

// CallStatusInfo is one provider-side observation of a call.
type CallStatusInfo struct {
	CorrelationID string `json:"correlation_id"`

	// RawStatus is the provider's own vocabulary, untranslated.
	RawStatus string `json:"raw_status"`

	// DurationSeconds is zero until the provider reports a final duration.
	DurationSeconds int `json:"duration_seconds"`
}
