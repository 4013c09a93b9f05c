package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository persists call records and their list projection.
type Repository interface {
	CreateRecord(ctx context.Context, rec CallRecord) error
	GetRecord(ctx context.Context, id string) (CallRecord, error)
	FindByCorrelation(ctx context.Context, correlationID string) (CallRecord, error)
	SetCorrelation(ctx context.Context, id, correlationID string, now time.Time) error
	UpdateRecordStatus(ctx context.Context, id string, status CallStatus, duration int, now time.Time) error
	ListRecords(ctx context.Context, groupID string, limit int) ([]CallRecord, error)

	CreateListEntry(ctx context.Context, e CallListEntry) error
	FindEntryByCorrelation(ctx context.Context, groupID, correlationID string) (CallListEntry, error)
	SetEntryCorrelation(ctx context.Context, id, correlationID string, now time.Time) error
	UpdateEntryStatus(ctx context.Context, id string, status CallStatus, duration int, now time.Time) error
	ListEntries(ctx context.Context, groupID string) ([]CallListEntry, error)
}

// NOTE: This repository assumes the following tables exist:
// - call_records (correlation_id indexed; empty until dial succeeds)
// - call_list_entries (group_id + correlation_id indexed)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordCols = `
id, group_id, correlation_id, from_number, to_number, requested_by,
contact_name, contact_email, list_entry_id, status, duration_seconds,
created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (CallRecord, error) {
	var r CallRecord
	err := row.Scan(
		&r.ID,
		&r.GroupID,
		&r.CorrelationID,
		&r.From,
		&r.To,
		&r.RequestedBy,
		&r.ContactName,
		&r.ContactEmail,
		&r.ListEntryID,
		&r.Status,
		&r.DurationSeconds,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return CallRecord{}, ErrNotFound
	}
	return r, err
}

func (p *PostgresRepository) CreateRecord(ctx context.Context, rec CallRecord) error {
	const q = `
INSERT INTO call_records (
	id, group_id, correlation_id, from_number, to_number, requested_by,
	contact_name, contact_email, list_entry_id, status, duration_seconds,
	created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`
	_, err := p.db.ExecContext(ctx, q,
		rec.ID, rec.GroupID, rec.CorrelationID, rec.From, rec.To, rec.RequestedBy,
		rec.ContactName, rec.ContactEmail, rec.ListEntryID, rec.Status, rec.DurationSeconds,
		rec.CreatedAt, rec.UpdatedAt,
	)
	return err
}

func (p *PostgresRepository) GetRecord(ctx context.Context, id string) (CallRecord, error) {
	q := `SELECT ` + recordCols + ` FROM call_records WHERE id = $1`
	return scanRecord(p.db.QueryRowContext(ctx, q, id))
}

func (p *PostgresRepository) FindByCorrelation(ctx context.Context, correlationID string) (CallRecord, error) {
	q := `SELECT ` + recordCols + ` FROM call_records WHERE correlation_id = $1 LIMIT 1`
	return scanRecord(p.db.QueryRowContext(ctx, q, correlationID))
}

func (p *PostgresRepository) SetCorrelation(ctx context.Context, id, correlationID string, now time.Time) error {
	const q = `UPDATE call_records SET correlation_id = $2, updated_at = $3 WHERE id = $1`
	return execExpectingRow(ctx, p.db, q, id, correlationID, now)
}

func (p *PostgresRepository) UpdateRecordStatus(ctx context.Context, id string, status CallStatus, duration int, now time.Time) error {
	const q = `UPDATE call_records SET status = $2, duration_seconds = $3, updated_at = $4 WHERE id = $1`
	return execExpectingRow(ctx, p.db, q, id, status, duration, now)
}

func (p *PostgresRepository) ListRecords(ctx context.Context, groupID string, limit int) ([]CallRecord, error) {
	q := `SELECT ` + recordCols + ` FROM call_records WHERE group_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := p.db.QueryContext(ctx, q, groupID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const entryCols = `
id, group_id, correlation_id, phone_number, contact_name, status,
duration_seconds, created_at, updated_at`

func scanEntry(row interface{ Scan(...any) error }) (CallListEntry, error) {
	var e CallListEntry
	err := row.Scan(
		&e.ID,
		&e.GroupID,
		&e.CorrelationID,
		&e.PhoneNumber,
		&e.ContactName,
		&e.Status,
		&e.DurationSeconds,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return CallListEntry{}, ErrNotFound
	}
	return e, err
}

func (p *PostgresRepository) CreateListEntry(ctx context.Context, e CallListEntry) error {
	const q = `
INSERT INTO call_list_entries (
	id, group_id, correlation_id, phone_number, contact_name, status,
	duration_seconds, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := p.db.ExecContext(ctx, q,
		e.ID, e.GroupID, e.CorrelationID, e.PhoneNumber, e.ContactName, e.Status,
		e.DurationSeconds, e.CreatedAt, e.UpdatedAt,
	)
	return err
}

func (p *PostgresRepository) FindEntryByCorrelation(ctx context.Context, groupID, correlationID string) (CallListEntry, error) {
	q := `SELECT ` + entryCols + ` FROM call_list_entries WHERE group_id = $1 AND correlation_id = $2 LIMIT 1`
	return scanEntry(p.db.QueryRowContext(ctx, q, groupID, correlationID))
}

func (p *PostgresRepository) SetEntryCorrelation(ctx context.Context, id, correlationID string, now time.Time) error {
	const q = `UPDATE call_list_entries SET correlation_id = $2, updated_at = $3 WHERE id = $1`
	return execExpectingRow(ctx, p.db, q, id, correlationID, now)
}

func (p *PostgresRepository) UpdateEntryStatus(ctx context.Context, id string, status CallStatus, duration int, now time.Time) error {
	const q = `UPDATE call_list_entries SET status = $2, duration_seconds = $3, updated_at = $4 WHERE id = $1`
	return execExpectingRow(ctx, p.db, q, id, status, duration, now)
}

func (p *PostgresRepository) ListEntries(ctx context.Context, groupID string) ([]CallListEntry, error) {
	q := `SELECT ` + entryCols + ` FROM call_list_entries WHERE group_id = $1 ORDER BY created_at DESC`
	rows, err := p.db.QueryContext(ctx, q, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallListEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func execExpectingRow(ctx context.Context, db *sql.DB, q string, args ...any) error {
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
