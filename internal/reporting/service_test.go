package reporting

import (
	"context"
	"testing"
	"time"

	"voiceconsole/internal/calls"
	"voiceconsole/internal/ledger"

	"github.com/shopspring/decimal"
)

func testRange() TimeRange {
	return TimeRange{
		From: time.Unix(1700000000, 0).UTC(),
		To:   time.Unix(1700086400, 0).UTC(),
	}
}

func TestCallsSummary(t *testing.T) {
	repo := NewMemoryRepo()
	at := time.Unix(1700000100, 0).UTC()
	repo.Calls = []calls.CallRecord{
		{GroupID: "grp-1", Status: calls.CallStatusCompleted, DurationSeconds: 60, CreatedAt: at},
		{GroupID: "grp-1", Status: calls.CallStatusCompleted, DurationSeconds: 120, CreatedAt: at},
		{GroupID: "grp-1", Status: calls.CallStatusBusy, CreatedAt: at},
		{GroupID: "grp-1", Status: calls.CallStatusRinging, CreatedAt: at},
		{GroupID: "grp-2", Status: calls.CallStatusCompleted, CreatedAt: at},
	}

	sum, err := NewService(repo).CallsSummary(context.Background(), CallsSummaryRequest{GroupID: "grp-1", Range: testRange()})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalCalls != 4 || sum.CompletedCalls != 2 || sum.BusyCalls != 1 {
		t.Fatalf("unexpected counts: %+v", sum)
	}
	if sum.TotalDurationSeconds != 180 || sum.AverageDurationSeconds != 45 {
		t.Fatalf("unexpected durations: %+v", sum)
	}
	if want := float64(2) / 3 * 100; sum.SuccessRate != want {
		t.Fatalf("unexpected success rate: %v", sum.SuccessRate)
	}
}

func TestUsageSummary_RejectedEventsCostNothing(t *testing.T) {
	repo := NewMemoryRepo()
	at := time.Unix(1700000100, 0).UTC()
	repo.Events = []ledger.UsageEvent{
		{GroupID: "grp-1", ModelTag: "ft:gpt-4o-mini", Cost: decimal.RequireFromString("0.75"), Success: true, InputTokens: 1000, OutputTokens: 1000, CreatedAt: at},
		{GroupID: "grp-1", ModelTag: "twilio-call", Cost: decimal.RequireFromString("0.013"), Success: true, DurationSeconds: 60, CreatedAt: at},
		{GroupID: "grp-1", ModelTag: "ft:gpt-4o-mini", Cost: decimal.RequireFromString("0.75"), Success: false, CreatedAt: at},
	}

	sum, err := NewService(repo).UsageSummary(context.Background(), UsageSummaryRequest{GroupID: "grp-1", Range: testRange()})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalEvents != 3 || sum.ChargedEvents != 2 || sum.RejectedEvents != 1 {
		t.Fatalf("unexpected counts: %+v", sum)
	}
	if !sum.TotalSpend.Equal(decimal.RequireFromString("0.763")) {
		t.Fatalf("unexpected spend: %s", sum.TotalSpend)
	}
	if sum.CallSeconds != 60 || sum.InputTokens != 1000 {
		t.Fatalf("unexpected quantities: %+v", sum)
	}
	if !sum.SpendByModel["ft:gpt-4o-mini"].Equal(decimal.RequireFromString("0.75")) {
		t.Fatalf("unexpected model spend: %+v", sum.SpendByModel)
	}
}

func TestSummaries_RejectInvalidRange(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if _, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{GroupID: "grp-1"}); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := svc.UsageSummary(context.Background(), UsageSummaryRequest{Range: testRange()}); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
