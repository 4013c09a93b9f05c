package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends audit events to an INSERT-only table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
	id, group_id, type, actor_user_id, actor_role, ip_address,
	correlation_id, batch_id, message, metadata, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.GroupID, e.Type, e.ActorUserID, e.ActorRole, e.IPAddress,
		e.CorrelationID, e.BatchID, e.Message, e.Metadata, e.CreatedAt,
	)
	return err
}
