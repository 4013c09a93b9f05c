package calls

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository for tests.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]CallRecord
	entries map[string]CallListEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]CallRecord),
		entries: make(map[string]CallListEntry),
	}
}

func (r *MemoryRepository) CreateRecord(ctx context.Context, rec CallRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec
	return nil
}

func (r *MemoryRepository) GetRecord(ctx context.Context, id string) (CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return CallRecord{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepository) FindByCorrelation(ctx context.Context, correlationID string) (CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.CorrelationID == correlationID && correlationID != "" {
			return rec, nil
		}
	}
	return CallRecord{}, ErrNotFound
}

func (r *MemoryRepository) SetCorrelation(ctx context.Context, id, correlationID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.CorrelationID = correlationID
	rec.UpdatedAt = now
	r.records[id] = rec
	return nil
}

func (r *MemoryRepository) UpdateRecordStatus(ctx context.Context, id string, status CallStatus, duration int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.Status = status
	rec.DurationSeconds = duration
	rec.UpdatedAt = now
	r.records[id] = rec
	return nil
}

func (r *MemoryRepository) ListRecords(ctx context.Context, groupID string, limit int) ([]CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CallRecord
	for _, rec := range r.records {
		if rec.GroupID == groupID {
			out = append(out, rec)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryRepository) CreateListEntry(ctx context.Context, e CallListEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.ID] = e
	return nil
}

func (r *MemoryRepository) FindEntryByCorrelation(ctx context.Context, groupID, correlationID string) (CallListEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.GroupID == groupID && e.CorrelationID == correlationID && correlationID != "" {
			return e, nil
		}
	}
	return CallListEntry{}, ErrNotFound
}

func (r *MemoryRepository) SetEntryCorrelation(ctx context.Context, id, correlationID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.CorrelationID = correlationID
	e.UpdatedAt = now
	r.entries[id] = e
	return nil
}

func (r *MemoryRepository) UpdateEntryStatus(ctx context.Context, id string, status CallStatus, duration int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.Status = status
	e.DurationSeconds = duration
	e.UpdatedAt = now
	r.entries[id] = e
	return nil
}

func (r *MemoryRepository) ListEntries(ctx context.Context, groupID string) ([]CallListEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CallListEntry
	for _, e := range r.entries {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	return out, nil
}
