package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}
	if e.GroupID == "" && !e.Type.systemScoped() {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogTopUp records an admin crediting a group's balance.
func (s *Service) LogTopUp(ctx context.Context, groupID, actorUserID, actorRole, ip, amount string) error {
	return s.Append(ctx, Event{
		GroupID:     groupID,
		Type:        EventTypeTopUp,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		Message:     "credits topped up",
		Metadata:    metadataJSON(map[string]string{"amount": amount}),
	})
}

// LogCallbackDropped records a provider callback for an unknown call.
func (s *Service) LogCallbackDropped(ctx context.Context, correlationID, rawStatus string) error {
	return s.Append(ctx, Event{
		Type:          EventTypeCallbackDropped,
		CorrelationID: correlationID,
		Message:       "status callback dropped: unknown call",
		Metadata:      metadataJSON(map[string]string{"raw_status": rawStatus}),
	})
}

// metadataJSON encodes a small key/value map as the event's metadata.
// Values come from request input, so they must be escaped, not concatenated.
func metadataJSON(kv map[string]string) string {
	b, err := json.Marshal(kv)
	if err != nil {
		return "{}"
	}
	return string(b)
}
