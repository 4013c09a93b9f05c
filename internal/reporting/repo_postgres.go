package reporting

import (
	"context"
	"database/sql"
	"time"

	"voiceconsole/internal/calls"
	"voiceconsole/internal/ledger"
)

// PostgresRepo reads reporting source rows directly; aggregation stays in
// the service so memory and Postgres repos behave identically.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) ListCalls(ctx context.Context, groupID string, from, to time.Time) ([]calls.CallRecord, error) {
	const q = `
SELECT id, group_id, correlation_id, from_number, to_number, requested_by,
       contact_name, contact_email, list_entry_id, status, duration_seconds,
       created_at, updated_at
FROM call_records
WHERE group_id = $1 AND created_at >= $2 AND created_at < $3
`
	rows, err := r.db.QueryContext(ctx, q, groupID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []calls.CallRecord
	for rows.Next() {
		var c calls.CallRecord
		if err := rows.Scan(
			&c.ID, &c.GroupID, &c.CorrelationID, &c.From, &c.To, &c.RequestedBy,
			&c.ContactName, &c.ContactEmail, &c.ListEntryID, &c.Status, &c.DurationSeconds,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListUsageEvents(ctx context.Context, groupID string, from, to time.Time) ([]ledger.UsageEvent, error) {
	const q = `
SELECT id, group_id, user_id, user_email, model, action,
       input_tokens, output_tokens, audio_seconds, duration_seconds,
       phone_number, cost, success, correlation_id, created_at
FROM usage_events
WHERE group_id = $1 AND created_at >= $2 AND created_at < $3
`
	rows, err := r.db.QueryContext(ctx, q, groupID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.UsageEvent
	for rows.Next() {
		var e ledger.UsageEvent
		if err := rows.Scan(
			&e.ID, &e.GroupID, &e.UserID, &e.UserEmail, &e.ModelTag, &e.Action,
			&e.InputTokens, &e.OutputTokens, &e.AudioSeconds, &e.DurationSeconds,
			&e.PhoneNumber, &e.Cost, &e.Success, &e.CorrelationID, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
