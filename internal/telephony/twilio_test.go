package telephony

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"voiceconsole/internal/config"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *TwilioProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.App.PublicBaseURL = "https://console.example.com"
	cfg.Twilio = config.TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "+15559990000",
	}
	p := NewTwilioProvider(cfg)
	p.baseURL = srv.URL
	return p
}

func TestInitiateCall_PostsFormAndReturnsSid(t *testing.T) {
	var gotPath string
	var gotForm map[string]string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = map[string]string{
			"To":             r.PostFormValue("To"),
			"From":           r.PostFormValue("From"),
			"Url":            r.PostFormValue("Url"),
			"StatusCallback": r.PostFormValue("StatusCallback"),
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "AC123" || pass != "token" {
			t.Errorf("missing basic auth")
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"CA555","status":"queued"}`))
	})

	sid, err := p.InitiateCall(context.Background(), DialRequest{GroupID: "grp-1", To: "+15550001111"})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if sid != "CA555" {
		t.Fatalf("unexpected sid: %q", sid)
	}
	if gotPath != "/2010-04-01/Accounts/AC123/Calls.json" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotForm["To"] != "+15550001111" || gotForm["From"] != "+15559990000" {
		t.Fatalf("unexpected numbers: %+v", gotForm)
	}
	if gotForm["StatusCallback"] != "https://console.example.com/webhooks/twilio/status" {
		t.Fatalf("unexpected status callback: %s", gotForm["StatusCallback"])
	}
	if gotForm["Url"] != "https://console.example.com/webhooks/twilio/voice" {
		t.Fatalf("unexpected voice url: %s", gotForm["Url"])
	}
}

func TestInitiateCall_RequiresDestination(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request")
	})
	if _, err := p.InitiateCall(context.Background(), DialRequest{GroupID: "grp-1"}); err == nil {
		t.Fatalf("expected error for empty destination")
	}
}

func TestInitiateCall_SurfacesProviderError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code": 20003, "message": "Authenticate"}`))
	})
	if _, err := p.InitiateCall(context.Background(), DialRequest{To: "+15550001111"}); err == nil {
		t.Fatalf("expected error on 401")
	}
}

func TestFetchStatus_ParsesStringDuration(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC123/Calls/CA555.json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"sid":"CA555","status":"completed","duration":"42"}`))
	})

	info, err := p.FetchStatus(context.Background(), "CA555")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if info.RawStatus != "completed" || info.DurationSeconds != 42 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestFetchStatus_EmptyDurationWhileLive(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sid":"CA555","status":"ringing","duration":""}`))
	})

	info, err := p.FetchStatus(context.Background(), "CA555")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if info.RawStatus != "ringing" || info.DurationSeconds != 0 {
		t.Fatalf("unexpected info: %+v", info)
	}
}
