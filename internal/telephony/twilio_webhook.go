package telephony

import (
	"net/http"
	"strconv"
	"strings"
)

// TwilioStatusForm captures the subset of status-callback fields we care
// about. Twilio sends application/x-www-form-urlencoded by default.
//
// Keep it minimal and provider-adapter-only. Status transitions are not
// decided here.
type TwilioStatusForm struct {
	CallSid         string
	AccountSid      string
	From            string
	To              string
	CallStatus      string
	CallDuration    int
	Direction       string
	ApiVersion      string
	Timestamp       string
}

func ParseTwilioStatusCallback(r *http.Request) (TwilioStatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioStatusForm{}, err
	}
	// CallDuration only arrives on the completed event; empty otherwise.
	duration, _ := strconv.Atoi(r.PostFormValue("CallDuration"))
	f := TwilioStatusForm{
		CallSid:      r.PostFormValue("CallSid"),
		AccountSid:   r.PostFormValue("AccountSid"),
		From:         normalizePhone(r.PostFormValue("From")),
		To:           normalizePhone(r.PostFormValue("To")),
		CallStatus:   r.PostFormValue("CallStatus"),
		CallDuration: duration,
		Direction:    r.PostFormValue("Direction"),
		ApiVersion:   r.PostFormValue("ApiVersion"),
		Timestamp:    r.PostFormValue("Timestamp"),
	}
	return f, nil
}

func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	// Twilio sometimes sends "anonymous" or empty; keep as-is.
	return s
}
