package telephony

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseTwilioStatusCallback(t *testing.T) {
	body := strings.NewReader("CallSid=CA123&CallStatus=completed&CallDuration=42&From=%2B15551234567&To=%2B15557654321")
	r := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/status", body)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	form, err := ParseTwilioStatusCallback(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if form.CallSid != "CA123" || form.CallStatus != "completed" {
		t.Fatalf("unexpected form: %+v", form)
	}
	if form.CallDuration != 42 {
		t.Fatalf("expected duration 42, got %d", form.CallDuration)
	}
	if form.From != "+15551234567" || form.To != "+15557654321" {
		t.Fatalf("unexpected from/to: %q %q", form.From, form.To)
	}
}

func TestParseTwilioStatusCallback_DurationAbsentMidCall(t *testing.T) {
	body := strings.NewReader("CallSid=CA123&CallStatus=ringing")
	r := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/status", body)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	form, err := ParseTwilioStatusCallback(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if form.CallDuration != 0 {
		t.Fatalf("expected zero duration, got %d", form.CallDuration)
	}
}
