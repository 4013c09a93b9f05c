package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// ProgressPublisher pushes progress snapshots onto a per-group Redis channel
// so console sessions on any instance can render the batch live.
//
// Best-effort: publish failures are logged, never surfaced to the batch.
type ProgressPublisher struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewProgressPublisher(rdb *redis.Client, log *slog.Logger) *ProgressPublisher {
	return &ProgressPublisher{rdb: rdb, log: log}
}

func ProgressChannel(groupID string) string {
	return "dispatch:progress:" + groupID
}

func (p *ProgressPublisher) Observer(ctx context.Context) Observer {
	return func(prog Progress) {
		payload, err := json.Marshal(prog)
		if err != nil {
			p.log.Error("progress marshal failed", "error", err)
			return
		}
		if err := p.rdb.Publish(ctx, ProgressChannel(prog.GroupID), payload).Err(); err != nil {
			p.log.Warn("progress publish failed", "group_id", prog.GroupID, "error", err)
		}
	}
}
