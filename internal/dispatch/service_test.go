package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"voiceconsole/internal/calls"
	"voiceconsole/internal/config"
	"voiceconsole/internal/ledger"
	"voiceconsole/internal/telephony"

	"github.com/prometheus/client_golang/prometheus"
)

type fakeProvider struct {
	dialErr map[string]error                     // destination -> dial error
	scripts map[string][]telephony.CallStatusInfo // sid -> successive poll results
	polls   map[string]int
	dials   int
}

func (f *fakeProvider) Name() string                          { return "fake" }
func (f *fakeProvider) HealthCheck(ctx context.Context) error { return nil }

func (f *fakeProvider) InitiateCall(ctx context.Context, req telephony.DialRequest) (string, error) {
	f.dials++
	if err := f.dialErr[req.To]; err != nil {
		return "", err
	}
	return "CA-" + req.To, nil
}

func (f *fakeProvider) FetchStatus(ctx context.Context, correlationID string) (telephony.CallStatusInfo, error) {
	script := f.scripts[correlationID]
	if len(script) == 0 {
		return telephony.CallStatusInfo{CorrelationID: correlationID, RawStatus: "ringing"}, nil
	}
	if f.polls == nil {
		f.polls = make(map[string]int)
	}
	i := f.polls[correlationID]
	if i >= len(script) {
		i = len(script) - 1
	}
	f.polls[correlationID]++
	info := script[i]
	info.CorrelationID = correlationID
	return info, nil
}

type countingRecorder struct {
	charges []ledger.UsageDescriptor
}

func (c *countingRecorder) RecordCallUsage(ctx context.Context, groupID string, d ledger.UsageDescriptor) (ledger.Charge, error) {
	c.charges = append(c.charges, d)
	return ledger.Charge{Accepted: true}, nil
}

func newTestDispatch(t *testing.T, provider *fakeProvider) (*Service, *calls.MemoryRepository, *countingRecorder) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := calls.NewMemoryRepository()
	recorder := &countingRecorder{}
	machine := calls.NewStateMachine(repo, recorder, log)

	cfg := config.DispatchConfig{
		PollInterval:    time.Millisecond,
		MaxPollAttempts: 5,
		InterCallDelay:  time.Millisecond,
		BatchCapTTL:     time.Minute,
	}
	metrics := NewMetrics("dispatch_test", prometheus.NewRegistry())
	svc := NewService(provider, machine, repo, NoopLimiter{}, metrics, cfg, "+15559990000", log)
	svc.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return svc, repo, recorder
}

func completedScript(duration int) []telephony.CallStatusInfo {
	return []telephony.CallStatusInfo{
		{RawStatus: "queued"},
		{RawStatus: "ringing"},
		{RawStatus: "in-progress"},
		{RawStatus: "completed", DurationSeconds: duration},
	}
}

func TestRunBatch_AllContactsComplete(t *testing.T) {
	provider := &fakeProvider{
		scripts: map[string][]telephony.CallStatusInfo{
			"CA-+15550000001": completedScript(30),
			"CA-+15550000002": completedScript(60),
		},
	}
	svc, _, recorder := newTestDispatch(t, provider)

	var last Progress
	res, err := svc.RunBatch(context.Background(), "grp-1", "user-1",
		[]Contact{{PhoneNumber: "+15550000001"}, {PhoneNumber: "+15550000002"}},
		func(p Progress) { last = p })
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(res.Outcomes))
	}
	for _, o := range res.Outcomes {
		if !o.Succeeded || o.Status != calls.CallStatusCompleted {
			t.Fatalf("unexpected outcome: %+v", o)
		}
	}
	if res.Outcomes[0].DurationSeconds != 30 || res.Outcomes[1].DurationSeconds != 60 {
		t.Fatalf("unexpected durations: %+v", res.Outcomes)
	}

	if last.Completed != 2 || last.Failed != 0 || last.Pending != 0 {
		t.Fatalf("unexpected final progress: %+v", last)
	}
	if last.SuccessRate != 100 {
		t.Fatalf("expected 100%% success rate, got %v", last.SuccessRate)
	}
	if last.AvgDurationSeconds != 45 {
		t.Fatalf("expected avg duration 45, got %v", last.AvgDurationSeconds)
	}

	// Each completion settles exactly one debit.
	if len(recorder.charges) != 2 {
		t.Fatalf("expected 2 debits, got %d", len(recorder.charges))
	}
}

func TestRunBatch_DialFailureDoesNotAbortBatch(t *testing.T) {
	provider := &fakeProvider{
		dialErr: map[string]error{"+15550000002": errors.New("carrier unavailable")},
		scripts: map[string][]telephony.CallStatusInfo{
			"CA-+15550000001": completedScript(10),
			"CA-+15550000003": completedScript(20),
		},
	}
	svc, _, _ := newTestDispatch(t, provider)

	res, err := svc.RunBatch(context.Background(), "grp-1", "user-1", []Contact{
		{PhoneNumber: "+15550000001"},
		{PhoneNumber: "+15550000002"},
		{PhoneNumber: "+15550000003"},
	}, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(res.Outcomes))
	}
	if res.Outcomes[0].Status != calls.CallStatusCompleted {
		t.Fatalf("first contact should complete: %+v", res.Outcomes[0])
	}
	if res.Outcomes[1].Status != calls.CallStatusFailed || res.Outcomes[1].Reason != "dial failed" {
		t.Fatalf("second contact should fail on dial: %+v", res.Outcomes[1])
	}
	if res.Outcomes[2].Status != calls.CallStatusCompleted {
		t.Fatalf("batch must continue past the failure: %+v", res.Outcomes[2])
	}
	if provider.dials != 3 {
		t.Fatalf("expected 3 dial attempts, got %d", provider.dials)
	}
}

func TestRunBatch_NonCompletedTerminalCountsAsFailed(t *testing.T) {
	provider := &fakeProvider{
		scripts: map[string][]telephony.CallStatusInfo{
			"CA-+15550000001": {{RawStatus: "ringing"}, {RawStatus: "busy"}},
		},
	}
	svc, _, recorder := newTestDispatch(t, provider)

	var last Progress
	res, err := svc.RunBatch(context.Background(), "grp-1", "user-1",
		[]Contact{{PhoneNumber: "+15550000001"}}, func(p Progress) { last = p })
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	o := res.Outcomes[0]
	// The outcome is failed, but the specific status is preserved.
	if o.Succeeded || o.Status != calls.CallStatusBusy {
		t.Fatalf("unexpected outcome: %+v", o)
	}
	if last.Failed != 1 || last.Completed != 0 {
		t.Fatalf("unexpected progress: %+v", last)
	}
	if len(recorder.charges) != 0 {
		t.Fatalf("busy call must not bill")
	}
}

func TestRunBatch_PollTimeoutMarksFailed(t *testing.T) {
	// The provider never reports a terminal status.
	provider := &fakeProvider{
		scripts: map[string][]telephony.CallStatusInfo{
			"CA-+15550000001": {{RawStatus: "ringing"}},
		},
	}
	svc, repo, _ := newTestDispatch(t, provider)

	res, err := svc.RunBatch(context.Background(), "grp-1", "user-1",
		[]Contact{{PhoneNumber: "+15550000001"}}, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	o := res.Outcomes[0]
	if o.Succeeded || o.Status != calls.CallStatusFailed || o.Reason != "poll budget exhausted" {
		t.Fatalf("unexpected outcome: %+v", o)
	}

	rec, err := repo.FindByCorrelation(context.Background(), "CA-+15550000001")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.Status != calls.CallStatusFailed {
		t.Fatalf("record must be marked failed, got %q", rec.Status)
	}
}

type closedLimiter struct{}

func (closedLimiter) Acquire(ctx context.Context, groupID string) (bool, error) { return false, nil }
func (closedLimiter) Release(ctx context.Context, groupID string) error         { return nil }

func TestRunBatch_SecondRunnerRejected(t *testing.T) {
	provider := &fakeProvider{}
	svc, _, _ := newTestDispatch(t, provider)
	svc.limiter = closedLimiter{}

	_, err := svc.RunBatch(context.Background(), "grp-1", "user-1",
		[]Contact{{PhoneNumber: "+15550000001"}}, nil)
	if !errors.Is(err, ErrBatchInProgress) {
		t.Fatalf("expected ErrBatchInProgress, got %v", err)
	}
	if provider.dials != 0 {
		t.Fatalf("rejected batch must not dial")
	}
}

func TestComputeProgress(t *testing.T) {
	statuses := []calls.CallStatus{
		calls.CallStatusPending,
		calls.CallStatusRinging,
		calls.CallStatusCompleted,
		calls.CallStatusCompleted,
		calls.CallStatusBusy,
	}
	durations := []int{0, 0, 30, 90, 0}

	p := computeProgress("b1", "grp-1", statuses, durations)
	if p.Total != 5 || p.Pending != 1 || p.InProgress != 1 || p.Completed != 2 || p.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", p)
	}
	if want := float64(2) / 3 * 100; p.SuccessRate != want {
		t.Fatalf("unexpected success rate: %v", p.SuccessRate)
	}
	if p.AvgDurationSeconds != 60 {
		t.Fatalf("unexpected avg duration: %v", p.AvgDurationSeconds)
	}
}
