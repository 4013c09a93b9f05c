package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"voiceconsole/internal/config"
)

const twilioAPIBase = "https://api.twilio.com"

// TwilioProvider speaks the Twilio REST API directly over net/http.
type TwilioProvider struct {
	accountSID string
	authToken  string
	from       string

	// statusCallbackURL and voiceURL point back at this service's webhooks.
	statusCallbackURL string
	voiceURL          string

	// baseURL is overridable in tests.
	baseURL string
	client  *http.Client
}

func NewTwilioProvider(cfg *config.Config) *TwilioProvider {
	return &TwilioProvider{
		accountSID:        cfg.Twilio.AccountSID,
		authToken:         cfg.Twilio.AuthToken,
		from:              cfg.Twilio.FromNumber,
		statusCallbackURL: cfg.StatusCallbackURL(),
		voiceURL:          cfg.VoiceURL(),
		baseURL:           twilioAPIBase,
		client:            &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *TwilioProvider) Name() string { return "twilio" }

func (p *TwilioProvider) HealthCheck(ctx context.Context) error {
	// Account fetch is the lightest authenticated endpoint.
	u := fmt.Sprintf("%s/2010-04-01/Accounts/%s.json", p.baseURL, p.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(p.accountSID, p.authToken)
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telephony: twilio health check status %d", resp.StatusCode)
	}
	return nil
}

// twilioCall is the subset of the Calls resource we read.
type twilioCall struct {
	Sid      string `json:"sid"`
	Status   string `json:"status"`
	Duration string `json:"duration"`
}

func (p *TwilioProvider) InitiateCall(ctx context.Context, req DialRequest) (string, error) {
	if strings.TrimSpace(req.To) == "" {
		return "", errors.New("telephony: destination number required")
	}
	from := req.From
	if from == "" {
		from = p.from
	}

	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", from)
	form.Set("Url", p.voiceURL)
	form.Set("StatusCallback", p.statusCallbackURL)
	form.Set("StatusCallbackMethod", http.MethodPost)
	for _, ev := range []string{"initiated", "ringing", "answered", "completed"} {
		form.Add("StatusCallbackEvent", ev)
	}

	u := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", p.baseURL, p.accountSID)
	call, err := p.do(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	if call.Sid == "" {
		return "", errors.New("telephony: twilio response missing call sid")
	}
	return call.Sid, nil
}

func (p *TwilioProvider) FetchStatus(ctx context.Context, correlationID string) (CallStatusInfo, error) {
	if correlationID == "" {
		return CallStatusInfo{}, errors.New("telephony: correlation id required")
	}
	u := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls/%s.json", p.baseURL, p.accountSID, correlationID)
	call, err := p.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return CallStatusInfo{}, err
	}
	// Twilio serializes duration as a string, empty until the call ends.
	duration, _ := strconv.Atoi(call.Duration)
	return CallStatusInfo{
		CorrelationID:   call.Sid,
		RawStatus:       call.Status,
		DurationSeconds: duration,
	}, nil
}

func (p *TwilioProvider) do(ctx context.Context, method, u string, body io.Reader) (twilioCall, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return twilioCall{}, err
	}
	req.SetBasicAuth(p.accountSID, p.authToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return twilioCall{}, fmt.Errorf("telephony: twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return twilioCall{}, fmt.Errorf("telephony: twilio status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var call twilioCall
	if err := json.NewDecoder(resp.Body).Decode(&call); err != nil {
		return twilioCall{}, fmt.Errorf("telephony: twilio decode: %w", err)
	}
	return call, nil
}
