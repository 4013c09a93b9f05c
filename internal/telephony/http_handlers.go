package telephony

import (
	"context"
	"errors"
	"net/http"

	"voiceconsole/internal/calls"
	"voiceconsole/pkg/logger"

	"github.com/gin-gonic/gin"
)

// StatusApplier is the state machine surface the webhook drives.
type StatusApplier interface {
	Apply(ctx context.Context, ev calls.StatusEvent) (calls.ApplyResult, error)
}

// DroppedCallbackRecorder takes an ops-audit note when a callback references
// a call this system never placed. Best-effort; never blocks the response.
type DroppedCallbackRecorder interface {
	LogCallbackDropped(ctx context.Context, correlationID, rawStatus string) error
}

// WebhookHandler converts Twilio webhooks into internal events.
//
// No business logic here: the state machine owns transitions and billing.
// Callbacks are always acknowledged with 2xx once parsed; a non-2xx would
// make Twilio retry events we have already decided to drop.
type WebhookHandler struct {
	Machine StatusApplier
	Audit   DroppedCallbackRecorder

	// MediaStreamURL is the wss endpoint the voice webhook bridges audio to.
	MediaStreamURL string
}

func (h WebhookHandler) HandleStatusCallback(c *gin.Context) {
	log := logger.FromGin(c)

	form, err := ParseTwilioStatusCallback(c.Request)
	if err != nil {
		log.Warn("twilio status callback parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	if form.CallSid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "CallSid required"})
		return
	}

	_, err = h.Machine.Apply(c.Request.Context(), calls.StatusEvent{
		CorrelationID:   form.CallSid,
		RawStatus:       form.CallStatus,
		DurationSeconds: form.CallDuration,
	})
	if errors.Is(err, calls.ErrUnknownCorrelationID) {
		if h.Audit != nil {
			if aerr := h.Audit.LogCallbackDropped(c.Request.Context(), form.CallSid, form.CallStatus); aerr != nil {
				log.Warn("dropped-callback audit failed", "err", aerr)
			}
		}
		c.Status(http.StatusOK)
		return
	}
	if err != nil {
		log.Error("status callback apply failed", "call_sid", form.CallSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "status apply failed"})
		return
	}
	c.Status(http.StatusOK)
}

func (h WebhookHandler) HandleVoice(c *gin.Context) {
	log := logger.FromGin(c)

	twiml, err := RenderStreamTwiML(h.MediaStreamURL)
	if err != nil {
		log.Error("twiml render failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}
