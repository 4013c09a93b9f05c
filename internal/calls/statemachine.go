package calls

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"voiceconsole/internal/ledger"
)

var (
	ErrNotFound = errors.New("calls: not found")
	// ErrUnknownCorrelationID marks a status event for a call this system
	// never placed. Callers log and drop; it is not a failure.
	ErrUnknownCorrelationID = errors.New("calls: unknown correlation id")
)

// UsageRecorder is the ledger surface the state machine needs to settle
// completed calls.
type UsageRecorder interface {
	RecordCallUsage(ctx context.Context, groupID string, d ledger.UsageDescriptor) (ledger.Charge, error)
}

// StatusEvent is one observation of a call's provider status, delivered by
// the webhook or the dispatch poller. Both paths feed the same Apply.
type StatusEvent struct {
	CorrelationID   string
	RawStatus       string
	DurationSeconds int
}

// ApplyResult reports what a status event did.
type ApplyResult struct {
	Record  CallRecord
	Status  CallStatus
	Updated bool
	Charged bool
}

// StateMachine owns every call status transition. Rules:
//   - events with an unknown correlation id are dropped (never create rows);
//   - terminal statuses are absorbing;
//   - within non-terminal statuses the latest event wins;
//   - a transition into completed with a duration settles telephony cost via
//     the ledger's lenient debit, attributed to the call's requester. The
//     ledger's correlation-id dedup makes the debit at-most-once even if
//     webhook and poller both observe the completion.
type StateMachine struct {
	repo  Repository
	usage UsageRecorder
	log   *slog.Logger
	clock func() time.Time
}

func NewStateMachine(repo Repository, usage UsageRecorder, log *slog.Logger) *StateMachine {
	return &StateMachine{repo: repo, usage: usage, log: log, clock: time.Now}
}

func (m *StateMachine) Apply(ctx context.Context, ev StatusEvent) (ApplyResult, error) {
	if ev.CorrelationID == "" {
		return ApplyResult{}, ErrUnknownCorrelationID
	}
	status := NormalizeStatus(ev.RawStatus)
	now := m.clock().UTC()

	rec, err := m.repo.FindByCorrelation(ctx, ev.CorrelationID)
	if errors.Is(err, ErrNotFound) {
		m.log.WarnContext(ctx, "status event for unknown call dropped",
			"correlation_id", ev.CorrelationID, "raw_status", ev.RawStatus)
		return ApplyResult{}, ErrUnknownCorrelationID
	}
	if err != nil {
		return ApplyResult{}, err
	}

	if rec.Status.Terminal() {
		return ApplyResult{Record: rec, Status: rec.Status, Updated: false}, nil
	}

	duration := rec.DurationSeconds
	if ev.DurationSeconds > 0 {
		duration = ev.DurationSeconds
	}
	if err := m.repo.UpdateRecordStatus(ctx, rec.ID, status, duration, now); err != nil {
		return ApplyResult{}, err
	}
	rec.Status = status
	rec.DurationSeconds = duration
	rec.UpdatedAt = now

	m.updateProjection(ctx, rec, status, duration, now)

	res := ApplyResult{Record: rec, Status: status, Updated: true}
	if status == CallStatusCompleted && duration > 0 {
		res.Charged = m.settleCompleted(ctx, rec, duration)
	}
	return res, nil
}

// updateProjection resolves the group's list entry in two steps: the direct
// back-reference first, then a correlation-id lookup within the group. A
// missing projection is tolerated; the record stays authoritative.
func (m *StateMachine) updateProjection(ctx context.Context, rec CallRecord, status CallStatus, duration int, now time.Time) {
	entryID := rec.ListEntryID
	if entryID == "" {
		entry, err := m.repo.FindEntryByCorrelation(ctx, rec.GroupID, rec.CorrelationID)
		if errors.Is(err, ErrNotFound) {
			m.log.WarnContext(ctx, "call has no list entry",
				"call_id", rec.ID, "correlation_id", rec.CorrelationID)
			return
		}
		if err != nil {
			m.log.ErrorContext(ctx, "list entry lookup failed", "call_id", rec.ID, "error", err)
			return
		}
		entryID = entry.ID
	}
	if err := m.repo.UpdateEntryStatus(ctx, entryID, status, duration, now); err != nil {
		m.log.ErrorContext(ctx, "list entry update failed", "entry_id", entryID, "error", err)
	}
}

// settleCompleted debits carrier minutes for a completed call. Billing
// failure does not unwind the state transition; the status is already fact.
func (m *StateMachine) settleCompleted(ctx context.Context, rec CallRecord, duration int) bool {
	_, err := m.usage.RecordCallUsage(ctx, rec.GroupID, ledger.UsageDescriptor{
		UserID:          rec.RequestedBy,
		ModelTag:        "twilio-call",
		Action:          "Outbound call",
		DurationSeconds: duration,
		PhoneNumber:     rec.To,
		CorrelationID:   rec.CorrelationID,
	})
	if err != nil {
		m.log.ErrorContext(ctx, "call usage debit failed",
			"call_id", rec.ID, "correlation_id", rec.CorrelationID, "error", err)
		return false
	}
	return true
}
