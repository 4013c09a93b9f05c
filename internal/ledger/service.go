package ledger

import (
	"context"
	"errors"
	"time"

	"voiceconsole/internal/costmodel"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service is the only code allowed to mutate a group's credits.
//
// Two debit policies exist on purpose:
//   - ChargeUsage gates access: it rejects when the balance cannot cover the
//     cost, and never mutates the balance on rejection.
//   - RecordCallUsage records consumption that already happened: the call
//     minutes are spent whether or not the balance covers them, so the debit
//     floors at zero instead of rejecting.
//
// Concurrency discipline: every debit runs inside a repository transaction
// that re-reads the balance under lock. No check-then-mutate outside InTx.
type Service struct {
	repo  Repository
	rates costmodel.RateCard
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository, rates costmodel.RateCard) *Service {
	return &Service{repo: repo, rates: rates, clock: time.Now}
}

var (
	ErrNotFound        = errors.New("ledger: group not found")
	ErrInvalidArgument = errors.New("ledger: invalid argument")
)

// UsageDescriptor describes one billable operation attempt.
type UsageDescriptor struct {
	UserID    string
	UserEmail string

	ModelTag string
	Action   string

	InputTokens  int64
	OutputTokens int64
	AudioSeconds float64

	// DurationSeconds and PhoneNumber apply to telephony usage.
	DurationSeconds int
	PhoneNumber     string

	// CorrelationID is required for RecordCallUsage and ignored by ChargeUsage.
	CorrelationID string
}

// Charge is the outcome of a debit attempt.
type Charge struct {
	Accepted   bool            `json:"accepted"`
	Cost       decimal.Decimal `json:"cost"`
	NewBalance decimal.Decimal `json:"new_balance"`
	EventID    string          `json:"event_id"`
}

// ChargeUsage atomically prices the descriptor, appends a UsageEvent, and
// debits the group's balance if it covers the cost.
//
// The UsageEvent is written unconditionally, before the accept/reject
// decision takes effect: rejected attempts stay on the books with
// Success=false. Insufficient balance is an outcome (Accepted=false), not an
// error; errors are reserved for store failures, which abort the whole
// transaction including the event.
func (s *Service) ChargeUsage(ctx context.Context, groupID string, d UsageDescriptor) (Charge, error) {
	if groupID == "" || d.UserID == "" {
		return Charge{}, ErrInvalidArgument
	}

	cost := s.rates.TokenCost(d.ModelTag, d.InputTokens, d.OutputTokens, d.AudioSeconds)
	now := s.clock().UTC()
	eventID := uuid.NewString()

	var out Charge
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		g, err := tx.LockGroup(ctx, groupID)
		if err != nil {
			return err
		}

		accepted := g.Credits.GreaterThanOrEqual(cost)

		ev := s.newEvent(eventID, groupID, d, cost, accepted, now)
		if err := tx.AppendEvent(ctx, ev); err != nil {
			return err
		}

		newBal := g.Credits
		if accepted {
			newBal = g.Credits.Sub(cost)
			if err := tx.UpdateCredits(ctx, groupID, newBal, now); err != nil {
				return err
			}
		}

		out = Charge{Accepted: accepted, Cost: cost, NewBalance: newBal, EventID: eventID}
		return nil
	})
	if err != nil {
		return Charge{}, err
	}
	return out, nil
}

// RecordCallUsage debits telephony cost for a completed call, flooring the
// balance at zero. It never rejects: by the time a duration is known the
// minutes are already consumed.
//
// Duplicate deliveries of the same completion (webhook redelivery, webhook
// racing the poller) are absorbed by the correlation id: if an event already
// exists for it, the prior charge is returned and nothing is debited again.
func (s *Service) RecordCallUsage(ctx context.Context, groupID string, d UsageDescriptor) (Charge, error) {
	if groupID == "" || d.UserID == "" {
		return Charge{}, ErrInvalidArgument
	}
	if d.CorrelationID == "" {
		return Charge{}, ErrInvalidArgument
	}

	cost := s.rates.TelephonyCost(d.DurationSeconds)
	now := s.clock().UTC()
	eventID := uuid.NewString()

	var out Charge
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		// Lock before the dedup lookup. Concurrent deliveries of the same
		// completion serialize on the row lock, so the loser's lookup sees
		// the winner's committed event instead of racing past it.
		g, err := tx.LockGroup(ctx, groupID)
		if err != nil {
			return err
		}

		if existing, ok, err := tx.FindEventByCorrelation(ctx, groupID, d.CorrelationID); err != nil {
			return err
		} else if ok {
			out = Charge{Accepted: true, Cost: existing.Cost, NewBalance: g.Credits, EventID: existing.ID}
			return nil
		}

		newBal := g.Credits.Sub(cost)
		if newBal.IsNegative() {
			newBal = decimal.Zero
		}

		ev := s.newEvent(eventID, groupID, d, cost, true, now)
		if err := tx.AppendEvent(ctx, ev); err != nil {
			return err
		}
		if err := tx.UpdateCredits(ctx, groupID, newBal, now); err != nil {
			return err
		}

		out = Charge{Accepted: true, Cost: cost, NewBalance: newBal, EventID: eventID}
		return nil
	})
	if err != nil {
		return Charge{}, err
	}
	return out, nil
}

// Credit tops up a group's balance. Amount must be positive; the caller is
// responsible for audit-logging who performed the top-up.
func (s *Service) Credit(ctx context.Context, groupID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if groupID == "" || !amount.IsPositive() {
		return decimal.Zero, ErrInvalidArgument
	}

	now := s.clock().UTC()
	var newBal decimal.Decimal
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		g, err := tx.LockGroup(ctx, groupID)
		if err != nil {
			return err
		}
		newBal = g.Credits.Add(amount)
		return tx.UpdateCredits(ctx, groupID, newBal, now)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return newBal, nil
}

// GetBalance reads the group's current balance outside any transaction.
func (s *Service) GetBalance(ctx context.Context, groupID string) (Group, error) {
	if groupID == "" {
		return Group{}, ErrInvalidArgument
	}
	return s.repo.GetGroup(ctx, groupID)
}

// ListEvents returns the group's activity within [from, to).
func (s *Service) ListEvents(ctx context.Context, groupID string, from, to time.Time) ([]UsageEvent, error) {
	if groupID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListEvents(ctx, groupID, from, to)
}

func (s *Service) newEvent(id, groupID string, d UsageDescriptor, cost decimal.Decimal, success bool, now time.Time) UsageEvent {
	return UsageEvent{
		ID:              id,
		GroupID:         groupID,
		UserID:          d.UserID,
		UserEmail:       d.UserEmail,
		ModelTag:        d.ModelTag,
		Action:          d.Action,
		InputTokens:     d.InputTokens,
		OutputTokens:    d.OutputTokens,
		AudioSeconds:    d.AudioSeconds,
		DurationSeconds: d.DurationSeconds,
		PhoneNumber:     d.PhoneNumber,
		Cost:            cost,
		Success:         success,
		CorrelationID:   d.CorrelationID,
		CreatedAt:       now,
	}
}

// Repository abstracts ledger persistence. The Postgres implementation backs
// InTx with a retrying transaction; the memory implementation serializes
// transactions behind a mutex, which gives tests the same isolation.
type Repository interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	GetGroup(ctx context.Context, groupID string) (Group, error)
	ListEvents(ctx context.Context, groupID string, from, to time.Time) ([]UsageEvent, error)
}

// Tx is the transactional view used by money operations.
type Tx interface {
	LockGroup(ctx context.Context, groupID string) (Group, error)
	FindEventByCorrelation(ctx context.Context, groupID, correlationID string) (UsageEvent, bool, error)
	AppendEvent(ctx context.Context, e UsageEvent) error
	UpdateCredits(ctx context.Context, groupID string, credits decimal.Decimal, now time.Time) error
}
