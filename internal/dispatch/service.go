package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"voiceconsole/internal/calls"
	"voiceconsole/internal/config"
	"voiceconsole/internal/telephony"
	"voiceconsole/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrBatchInProgress = errors.New("dispatch: a batch is already running for this group")

// StatusApplier is the call state machine surface the poller feeds.
type StatusApplier interface {
	Apply(ctx context.Context, ev calls.StatusEvent) (calls.ApplyResult, error)
}

// Limiter enforces the one-batch-per-group rule.
type Limiter interface {
	Acquire(ctx context.Context, groupID string) (bool, error)
	Release(ctx context.Context, groupID string) error
}

// RedisLimiter backs the per-group cap with the shared Redis scripts, so the
// rule holds across processes. The TTL releases the cap if a runner dies.
type RedisLimiter struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLimiter(rdb *redis.Client, ttl time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, ttl: ttl}
}

func (l *RedisLimiter) Acquire(ctx context.Context, groupID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, l.rdb, "dispatch:cap:"+groupID, 1, l.ttl)
}

func (l *RedisLimiter) Release(ctx context.Context, groupID string) error {
	return utils.ReleaseConcurrencyCap(ctx, l.rdb, "dispatch:cap:"+groupID)
}

// NoopLimiter is for tests and single-process setups without Redis.
type NoopLimiter struct{}

func (NoopLimiter) Acquire(ctx context.Context, groupID string) (bool, error) { return true, nil }
func (NoopLimiter) Release(ctx context.Context, groupID string) error         { return nil }

// BatchResult is the outcome of one RunBatch invocation.
type BatchResult struct {
	BatchID  string    `json:"batch_id"`
	Outcomes []Outcome `json:"outcomes"`
}

// Service walks a contact list strictly one call at a time: dial, poll the
// provider until the call settles or the poll budget runs out, pause, then
// move on. One failing contact never aborts the batch.
//
// All status observations flow through the state machine, the same path the
// provider webhook uses, so ordering and billing rules live in one place.
type Service struct {
	provider telephony.DialProvider
	machine  StatusApplier
	repo     calls.Repository
	limiter  Limiter
	metrics  *Metrics
	cfg      config.DispatchConfig
	callerID string
	log      *slog.Logger

	clock func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewService(
	provider telephony.DialProvider,
	machine StatusApplier,
	repo calls.Repository,
	limiter Limiter,
	metrics *Metrics,
	cfg config.DispatchConfig,
	callerID string,
	log *slog.Logger,
) *Service {
	return &Service{
		provider: provider,
		machine:  machine,
		repo:     repo,
		limiter:  limiter,
		metrics:  metrics,
		cfg:      cfg,
		callerID: callerID,
		log:      log,
		clock:    time.Now,
		sleep:    sleepCtx,
	}
}

// RunBatch dials every contact sequentially. The observer (optional)
// receives a progress snapshot after every state change.
func (s *Service) RunBatch(ctx context.Context, groupID, userID string, contacts []Contact, obs Observer) (BatchResult, error) {
	if groupID == "" || userID == "" {
		return BatchResult{}, errors.New("dispatch: group and user required")
	}
	if len(contacts) == 0 {
		return BatchResult{}, ErrNoContacts
	}

	ok, err := s.limiter.Acquire(ctx, groupID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("dispatch: acquire cap: %w", err)
	}
	if !ok {
		s.metrics.BatchesRejected.Inc()
		return BatchResult{}, ErrBatchInProgress
	}
	defer func() {
		if rerr := s.limiter.Release(context.WithoutCancel(ctx), groupID); rerr != nil {
			s.log.Warn("dispatch cap release failed", "group_id", groupID, "error", rerr)
		}
	}()

	s.metrics.BatchesStarted.Inc()
	batchID := uuid.NewString()
	log := s.log.With("batch_id", batchID, "group_id", groupID)
	log.InfoContext(ctx, "dispatch batch started", "contacts", len(contacts))

	statuses := make([]calls.CallStatus, len(contacts))
	durations := make([]int, len(contacts))
	for i := range statuses {
		statuses[i] = calls.CallStatusPending
	}
	emit := func() {
		if obs != nil {
			obs(computeProgress(batchID, groupID, statuses, durations))
		}
	}
	emit()

	result := BatchResult{BatchID: batchID}
	for i, contact := range contacts {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		out := s.runContact(ctx, log, groupID, userID, contact, func(st calls.CallStatus, dur int) {
			statuses[i] = st
			durations[i] = dur
			emit()
		})
		result.Outcomes = append(result.Outcomes, out)
		s.metrics.AttemptsTotal.WithLabelValues(string(out.Status)).Inc()
		if out.Succeeded {
			s.metrics.CallDuration.Observe(float64(out.DurationSeconds))
		}

		if i < len(contacts)-1 {
			if err := s.sleep(ctx, s.cfg.InterCallDelay); err != nil {
				return result, err
			}
		}
	}

	log.InfoContext(ctx, "dispatch batch finished", "outcomes", len(result.Outcomes))
	return result, nil
}

// runContact drives a single contact to a terminal outcome. track is called
// with every observed status so the batch aggregate stays live.
func (s *Service) runContact(ctx context.Context, log *slog.Logger, groupID, userID string, contact Contact, track func(calls.CallStatus, int)) Outcome {
	now := s.clock().UTC()
	out := Outcome{PhoneNumber: contact.PhoneNumber}

	entry := calls.CallListEntry{
		ID:          uuid.NewString(),
		GroupID:     groupID,
		PhoneNumber: contact.PhoneNumber,
		ContactName: contact.Name,
		Status:      calls.CallStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	rec := calls.CallRecord{
		ID:           uuid.NewString(),
		GroupID:      groupID,
		From:         s.callerID,
		To:           contact.PhoneNumber,
		RequestedBy:  userID,
		ContactName:  contact.Name,
		ContactEmail: contact.Email,
		ListEntryID:  entry.ID,
		Status:       calls.CallStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	out.CallID = rec.ID

	if err := s.repo.CreateListEntry(ctx, entry); err != nil {
		return s.fail(ctx, log, out, rec, "list entry create failed", err, track)
	}
	if err := s.repo.CreateRecord(ctx, rec); err != nil {
		return s.fail(ctx, log, out, rec, "call record create failed", err, track)
	}
	s.setLocalStatus(ctx, rec, calls.CallStatusCalling, track)

	correlationID, err := s.provider.InitiateCall(ctx, telephony.DialRequest{
		GroupID: groupID,
		To:      contact.PhoneNumber,
		From:    s.callerID,
	})
	if err != nil {
		s.metrics.DialFailures.Inc()
		return s.fail(ctx, log, out, rec, "dial failed", err, track)
	}
	out.CorrelationID = correlationID

	now = s.clock().UTC()
	if err := s.repo.SetCorrelation(ctx, rec.ID, correlationID, now); err != nil {
		log.ErrorContext(ctx, "correlation persist failed", "call_id", rec.ID, "error", err)
	}
	if err := s.repo.SetEntryCorrelation(ctx, entry.ID, correlationID, now); err != nil {
		log.ErrorContext(ctx, "entry correlation persist failed", "entry_id", entry.ID, "error", err)
	}
	s.setLocalStatus(ctx, rec, calls.CallStatusRinging, track)

	status, duration, terminal := s.pollUntilTerminal(ctx, log, correlationID, track)
	if !terminal {
		s.metrics.PollTimeouts.Inc()
		// Synthetic failure through the state machine: if a late webhook
		// already settled the call, the terminal status wins and sticks.
		if res, aerr := s.machine.Apply(ctx, calls.StatusEvent{CorrelationID: correlationID, RawStatus: "failed"}); aerr == nil {
			status = res.Record.Status
			duration = res.Record.DurationSeconds
		} else {
			status = calls.CallStatusFailed
		}
		track(status, duration)
		out.Reason = "poll budget exhausted"
	}

	out.Status = status
	out.DurationSeconds = duration
	out.Succeeded = status == calls.CallStatusCompleted
	return out
}

// pollUntilTerminal polls the provider on a fixed interval with a bounded
// attempt budget, feeding every observation through the state machine.
func (s *Service) pollUntilTerminal(ctx context.Context, log *slog.Logger, correlationID string, track func(calls.CallStatus, int)) (calls.CallStatus, int, bool) {
	status := calls.CallStatusRinging
	duration := 0
	for attempt := 0; attempt < s.cfg.MaxPollAttempts; attempt++ {
		if err := s.sleep(ctx, s.cfg.PollInterval); err != nil {
			return status, duration, false
		}

		info, err := s.provider.FetchStatus(ctx, correlationID)
		if err != nil {
			log.WarnContext(ctx, "status poll failed", "correlation_id", correlationID, "error", err)
			continue
		}

		res, err := s.machine.Apply(ctx, calls.StatusEvent{
			CorrelationID:   correlationID,
			RawStatus:       info.RawStatus,
			DurationSeconds: info.DurationSeconds,
		})
		if err != nil {
			log.WarnContext(ctx, "status apply failed", "correlation_id", correlationID, "error", err)
			continue
		}

		if res.Record.Status != status || res.Record.DurationSeconds != duration {
			status = res.Record.Status
			duration = res.Record.DurationSeconds
			track(status, duration)
		}
		if status.Terminal() {
			return status, duration, true
		}
	}
	return status, duration, false
}

// setLocalStatus persists a status the orchestrator decided locally (before
// the provider knows the call), bypassing the correlation-keyed machine.
func (s *Service) setLocalStatus(ctx context.Context, rec calls.CallRecord, status calls.CallStatus, track func(calls.CallStatus, int)) {
	now := s.clock().UTC()
	if err := s.repo.UpdateRecordStatus(ctx, rec.ID, status, rec.DurationSeconds, now); err != nil {
		s.log.ErrorContext(ctx, "local status persist failed", "call_id", rec.ID, "error", err)
	}
	if rec.ListEntryID != "" {
		if err := s.repo.UpdateEntryStatus(ctx, rec.ListEntryID, status, rec.DurationSeconds, now); err != nil {
			s.log.ErrorContext(ctx, "local entry status persist failed", "entry_id", rec.ListEntryID, "error", err)
		}
	}
	track(status, rec.DurationSeconds)
}

func (s *Service) fail(ctx context.Context, log *slog.Logger, out Outcome, rec calls.CallRecord, reason string, err error, track func(calls.CallStatus, int)) Outcome {
	log.WarnContext(ctx, "contact attempt failed", "call_id", rec.ID, "to", rec.To, "reason", reason, "error", err)
	s.setLocalStatus(ctx, rec, calls.CallStatusFailed, track)
	out.Status = calls.CallStatusFailed
	out.Reason = reason
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
