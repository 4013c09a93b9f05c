package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryRepository is an in-memory Repository for tests. A single mutex
// serializes transactions, which gives the same per-group isolation the
// Postgres row lock provides.
type MemoryRepository struct {
	mu     sync.Mutex
	groups map[string]Group
	events []UsageEvent
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{groups: make(map[string]Group)}
}

// PutGroup seeds a group. Test helper.
func (r *MemoryRepository) PutGroup(g Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[g.ID] = g
}

// Events returns a copy of all appended events. Test helper.
func (r *MemoryRepository) Events() []UsageEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]UsageEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *MemoryRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memTx{repo: r}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (r *MemoryRepository) GetGroup(ctx context.Context, groupID string) (Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupID]
	if !ok {
		return Group{}, ErrNotFound
	}
	return g, nil
}

func (r *MemoryRepository) ListEvents(ctx context.Context, groupID string, from, to time.Time) ([]UsageEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []UsageEvent
	for _, e := range r.events {
		if e.GroupID != groupID {
			continue
		}
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// memTx buffers writes and applies them on commit, so a failed transaction
// callback leaves the store untouched.
type memTx struct {
	repo          *MemoryRepository
	stagedEvents  []UsageEvent
	stagedCredits map[string]creditUpdate
}

type creditUpdate struct {
	credits decimal.Decimal
	at      time.Time
}

func (t *memTx) LockGroup(ctx context.Context, groupID string) (Group, error) {
	g, ok := t.repo.groups[groupID]
	if !ok {
		return Group{}, ErrNotFound
	}
	if u, staged := t.stagedCredits[groupID]; staged {
		g.Credits = u.credits
		g.UpdatedAt = u.at
	}
	return g, nil
}

func (t *memTx) FindEventByCorrelation(ctx context.Context, groupID, correlationID string) (UsageEvent, bool, error) {
	for _, e := range t.repo.events {
		if e.GroupID == groupID && e.CorrelationID == correlationID {
			return e, true, nil
		}
	}
	for _, e := range t.stagedEvents {
		if e.GroupID == groupID && e.CorrelationID == correlationID {
			return e, true, nil
		}
	}
	return UsageEvent{}, false, nil
}

func (t *memTx) AppendEvent(ctx context.Context, e UsageEvent) error {
	t.stagedEvents = append(t.stagedEvents, e)
	return nil
}

func (t *memTx) UpdateCredits(ctx context.Context, groupID string, credits decimal.Decimal, now time.Time) error {
	if _, ok := t.repo.groups[groupID]; !ok {
		return ErrNotFound
	}
	if t.stagedCredits == nil {
		t.stagedCredits = make(map[string]creditUpdate)
	}
	t.stagedCredits[groupID] = creditUpdate{credits: credits, at: now}
	return nil
}

func (t *memTx) commit() {
	t.repo.events = append(t.repo.events, t.stagedEvents...)
	for id, u := range t.stagedCredits {
		g := t.repo.groups[id]
		g.Credits = u.credits
		g.UpdatedAt = u.at
		t.repo.groups[id] = g
	}
}
