package calls

import "testing"

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want CallStatus
	}{
		{"queued", CallStatusQueued},
		{"initiated", CallStatusInitiated},
		{"ringing", CallStatusRinging},
		{"answered", CallStatusInProgress},
		{"in-progress", CallStatusInProgress},
		{"completed", CallStatusCompleted},
		{"busy", CallStatusBusy},
		{"no-answer", CallStatusNoAnswer},
		{"canceled", CallStatusCanceled},
	}
	for _, c := range cases {
		if got := NormalizeStatus(c.raw); got != c.want {
			t.Fatalf("NormalizeStatus(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestNormalizeStatus_UnknownPassesThrough(t *testing.T) {
	got := NormalizeStatus("carrier-glitch")
	if got != CallStatus("carrier-glitch") {
		t.Fatalf("unexpected passthrough: %q", got)
	}
	if got.Known() {
		t.Fatalf("passthrough status must not be Known")
	}
	if got.Terminal() {
		t.Fatalf("passthrough status must not be terminal")
	}
}

func TestTerminalStatuses(t *testing.T) {
	terminal := []CallStatus{CallStatusCompleted, CallStatusFailed, CallStatusBusy, CallStatusNoAnswer, CallStatusCanceled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("expected %q to be terminal", s)
		}
	}
	live := []CallStatus{CallStatusPending, CallStatusCalling, CallStatusQueued, CallStatusInitiated, CallStatusRinging, CallStatusInProgress}
	for _, s := range live {
		if s.Terminal() {
			t.Fatalf("expected %q to be non-terminal", s)
		}
	}
}
