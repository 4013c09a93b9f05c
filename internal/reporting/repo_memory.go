package reporting

import (
	"context"
	"errors"
	"sync"
	"time"

	"voiceconsole/internal/calls"
	"voiceconsole/internal/ledger"
)

// MemoryRepo is a simple in-memory reporting repository for tests and early
// development. It enforces group isolation on reads.

type MemoryRepo struct {
	mu sync.Mutex

	Calls  []calls.CallRecord
	Events []ledger.UsageEvent
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListCalls(ctx context.Context, groupID string, from, to time.Time) ([]calls.CallRecord, error) {
	if groupID == "" {
		return nil, errors.New("group_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]calls.CallRecord, 0)
	for _, c := range r.Calls {
		if c.GroupID != groupID {
			continue
		}
		if !c.CreatedAt.IsZero() {
			if c.CreatedAt.Before(from) || !c.CreatedAt.Before(to) {
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryRepo) ListUsageEvents(ctx context.Context, groupID string, from, to time.Time) ([]ledger.UsageEvent, error) {
	if groupID == "" {
		return nil, errors.New("group_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.UsageEvent, 0)
	for _, e := range r.Events {
		if e.GroupID != groupID {
			continue
		}
		if !e.CreatedAt.IsZero() {
			if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
				continue
			}
		}
		out = append(out, e)
	}
	return out, nil
}
