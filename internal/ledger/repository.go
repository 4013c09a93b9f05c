package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"voiceconsole/pkg/utils"

	"github.com/shopspring/decimal"
)

// NOTE: This repository assumes the following tables exist:
// - groups (credits NUMERIC(18,6) NOT NULL DEFAULT 0)
// - usage_events (immutable append-only)
//
// It also assumes a dedup backstop for call billing:
// CREATE UNIQUE INDEX ON usage_events (group_id, correlation_id)
// WHERE correlation_id <> '';

// PostgresRepository backs the ledger with Postgres. Transactions run with
// serialization-conflict retry so concurrent debits on the same group settle
// without surfacing transient 40001 errors.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Tx         = (*pgTx)(nil)
)

func (r *PostgresRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return utils.WithTxRetry(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
}

func (r *PostgresRepository) GetGroup(ctx context.Context, groupID string) (Group, error) {
	const q = `
SELECT id, name, credits, created_at, updated_at
FROM groups
WHERE id = $1
`
	var g Group
	if err := r.db.QueryRowContext(ctx, q, groupID).Scan(
		&g.ID,
		&g.Name,
		&g.Credits,
		&g.CreatedAt,
		&g.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Group{}, ErrNotFound
		}
		return Group{}, err
	}
	return g, nil
}

func (r *PostgresRepository) ListEvents(ctx context.Context, groupID string, from, to time.Time) ([]UsageEvent, error) {
	const q = `
SELECT id, group_id, user_id, user_email, model, action,
       input_tokens, output_tokens, audio_seconds, duration_seconds,
       phone_number, cost, success, correlation_id, created_at
FROM usage_events
WHERE group_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at DESC
`
	rows, err := r.db.QueryContext(ctx, q, groupID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageEvent
	for rows.Next() {
		var e UsageEvent
		if err := rows.Scan(
			&e.ID,
			&e.GroupID,
			&e.UserID,
			&e.UserEmail,
			&e.ModelTag,
			&e.Action,
			&e.InputTokens,
			&e.OutputTokens,
			&e.AudioSeconds,
			&e.DurationSeconds,
			&e.PhoneNumber,
			&e.Cost,
			&e.Success,
			&e.CorrelationID,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) LockGroup(ctx context.Context, groupID string) (Group, error) {
	// Lock the group row to serialize concurrent money operations per group.
	const q = `
SELECT id, name, credits, created_at, updated_at
FROM groups
WHERE id = $1
FOR UPDATE
`
	var g Group
	if err := t.tx.QueryRowContext(ctx, q, groupID).Scan(
		&g.ID,
		&g.Name,
		&g.Credits,
		&g.CreatedAt,
		&g.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Group{}, ErrNotFound
		}
		return Group{}, err
	}
	return g, nil
}

func (t *pgTx) FindEventByCorrelation(ctx context.Context, groupID, correlationID string) (UsageEvent, bool, error) {
	const q = `
SELECT id, group_id, user_id, user_email, model, action,
       input_tokens, output_tokens, audio_seconds, duration_seconds,
       phone_number, cost, success, correlation_id, created_at
FROM usage_events
WHERE group_id = $1 AND correlation_id = $2
LIMIT 1
`
	var e UsageEvent
	err := t.tx.QueryRowContext(ctx, q, groupID, correlationID).Scan(
		&e.ID,
		&e.GroupID,
		&e.UserID,
		&e.UserEmail,
		&e.ModelTag,
		&e.Action,
		&e.InputTokens,
		&e.OutputTokens,
		&e.AudioSeconds,
		&e.DurationSeconds,
		&e.PhoneNumber,
		&e.Cost,
		&e.Success,
		&e.CorrelationID,
		&e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return UsageEvent{}, false, nil
	}
	if err != nil {
		return UsageEvent{}, false, err
	}
	return e, true, nil
}

func (t *pgTx) AppendEvent(ctx context.Context, e UsageEvent) error {
	const q = `
INSERT INTO usage_events (
	id, group_id, user_id, user_email, model, action,
	input_tokens, output_tokens, audio_seconds, duration_seconds,
	phone_number, cost, success, correlation_id, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`
	_, err := t.tx.ExecContext(ctx, q,
		e.ID,
		e.GroupID,
		e.UserID,
		e.UserEmail,
		e.ModelTag,
		e.Action,
		e.InputTokens,
		e.OutputTokens,
		e.AudioSeconds,
		e.DurationSeconds,
		e.PhoneNumber,
		e.Cost,
		e.Success,
		e.CorrelationID,
		e.CreatedAt,
	)
	return err
}

func (t *pgTx) UpdateCredits(ctx context.Context, groupID string, credits decimal.Decimal, now time.Time) error {
	const q = `
UPDATE groups
SET credits = $2, updated_at = $3
WHERE id = $1
`
	res, err := t.tx.ExecContext(ctx, q, groupID, credits, now)
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
