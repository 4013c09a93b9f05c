package reporting

import (
	"context"
	"errors"
	"time"

	"voiceconsole/internal/calls"
	"voiceconsole/internal/ledger"

	"github.com/shopspring/decimal"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// IMPORTANT:
// - Methods must enforce group filtering.
// - Implementations should query immutable sources when possible (usage
//   events, call records).

type Repository interface {
	ListCalls(ctx context.Context, groupID string, from, to time.Time) ([]calls.CallRecord, error)
	ListUsageEvents(ctx context.Context, groupID string, from, to time.Time) ([]ledger.UsageEvent, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if err := validateRange(req.GroupID, req.Range); err != nil {
		return CallsSummary{}, err
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCalls(ctx, req.GroupID, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{GroupID: req.GroupID}
	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		switch c.Status {
		case calls.CallStatusCompleted:
			out.CompletedCalls++
		case calls.CallStatusFailed:
			out.FailedCalls++
		case calls.CallStatusNoAnswer:
			out.NoAnswerCalls++
		case calls.CallStatusBusy:
			out.BusyCalls++
		case calls.CallStatusCanceled:
			out.CanceledCalls++
		case calls.CallStatusInProgress:
			out.InProgressCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	finished := out.CompletedCalls + out.FailedCalls + out.NoAnswerCalls + out.BusyCalls + out.CanceledCalls
	if finished > 0 {
		out.SuccessRate = float64(out.CompletedCalls) / float64(finished) * 100
	}
	return out, nil
}

func (s *Service) UsageSummary(ctx context.Context, req UsageSummaryRequest) (UsageSummary, error) {
	if err := validateRange(req.GroupID, req.Range); err != nil {
		return UsageSummary{}, err
	}
	if s.repo == nil {
		return UsageSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListUsageEvents(ctx, req.GroupID, req.Range.From, req.Range.To)
	if err != nil {
		return UsageSummary{}, err
	}

	out := UsageSummary{
		GroupID:      req.GroupID,
		TotalSpend:   decimal.Zero,
		SpendByModel: map[string]decimal.Decimal{},
	}
	for _, e := range rows {
		out.TotalEvents++
		if !e.Success {
			// Rejected attempts are on the books but never cost anything.
			out.RejectedEvents++
			continue
		}
		out.ChargedEvents++
		out.TotalSpend = out.TotalSpend.Add(e.Cost)
		out.InputTokens += e.InputTokens
		out.OutputTokens += e.OutputTokens
		out.AudioSeconds += e.AudioSeconds
		out.CallSeconds += e.DurationSeconds

		prev, ok := out.SpendByModel[e.ModelTag]
		if !ok {
			prev = decimal.Zero
		}
		out.SpendByModel[e.ModelTag] = prev.Add(e.Cost)
	}
	return out, nil
}

func validateRange(groupID string, r TimeRange) error {
	if groupID == "" {
		return ErrInvalidRequest
	}
	if r.From.IsZero() || r.To.IsZero() || !r.To.After(r.From) {
		return ErrInvalidRequest
	}
	return nil
}
