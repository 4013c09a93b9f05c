package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"voiceconsole/internal/audit"
	"voiceconsole/internal/auth"
	"voiceconsole/internal/calls"
	"voiceconsole/internal/dispatch"
	"voiceconsole/internal/ledger"
	"voiceconsole/internal/reporting"
	"voiceconsole/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth     *auth.Manager
	Ledger   *ledger.Service
	Calls    calls.Repository
	Dispatch *dispatch.Service
	Reports  *reporting.Service
	Audit    *audit.Service

	// ProgressObserver receives batch progress snapshots (Redis publisher in
	// production). Optional.
	ProgressObserver dispatch.Observer
}

// --- Auth ---

type loginRequest struct {
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id"`
	Role    string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.GroupID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, group_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.GroupID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Ledger ---

func (h Handlers) GetBalance(c *gin.Context) {
	groupID, ok := h.requireGroup(c)
	if !ok {
		return
	}
	g, err := h.Ledger.GetBalance(c.Request.Context(), groupID)
	if errors.Is(err, ledger.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "balance lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_id": g.ID, "credits": g.Credits})
}

type chargeRequest struct {
	Model        string  `json:"model"`
	Action       string  `json:"action"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	AudioSeconds float64 `json:"audio_seconds"`
}

// ChargeUsage debits metered usage. A rejected charge is a 402, not a 4xx
// validation error: the attempt is on the books either way.
func (h Handlers) ChargeUsage(c *gin.Context) {
	groupID, ok := h.requireGroup(c)
	if !ok {
		return
	}
	userID, _ := auth.UserID(c.Request.Context())

	var req chargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Model == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "model required"})
		return
	}

	ch, err := h.Ledger.ChargeUsage(c.Request.Context(), groupID, ledger.UsageDescriptor{
		UserID:       userID,
		ModelTag:     req.Model,
		Action:       req.Action,
		InputTokens:  req.InputTokens,
		OutputTokens: req.OutputTokens,
		AudioSeconds: req.AudioSeconds,
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "charge failed"})
		return
	}
	if !ch.Accepted {
		c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "insufficient credits", "charge": ch})
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (h Handlers) ListUsage(c *gin.Context) {
	groupID, ok := h.requireGroup(c)
	if !ok {
		return
	}
	from, to, err := parseRange(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	events, err := h.Ledger.ListEvents(c.Request.Context(), groupID, from, to)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "usage lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

type topUpRequest struct {
	GroupID string `json:"group_id"`
	Amount  string `json:"amount"`
}

// AdminTopUp credits a group's balance. RBAC: admin or super_admin; audited.
func (h Handlers) AdminTopUp(c *gin.Context) {
	actorID, _ := auth.UserID(c.Request.Context())
	actorRole, _ := auth.Role(c.Request.Context())

	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	groupID := req.GroupID
	if groupID == "" {
		groupID, _ = auth.GroupID(c.Request.Context())
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive decimal"})
		return
	}

	newBal, err := h.Ledger.Credit(c.Request.Context(), groupID, amount)
	if errors.Is(err, ledger.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "group not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "top-up failed"})
		return
	}

	if h.Audit != nil {
		if aerr := h.Audit.LogTopUp(c.Request.Context(), groupID, actorID, actorRole, c.ClientIP(), amount.String()); aerr != nil {
			logger.FromGin(c).Warn("top-up audit failed", "err", aerr)
		}
	}
	c.JSON(http.StatusOK, gin.H{"group_id": groupID, "credits": newBal})
}

// --- Calls / dispatch ---

func (h Handlers) ListCalls(c *gin.Context) {
	groupID, ok := h.requireGroup(c)
	if !ok {
		return
	}
	entries, err := h.Calls.ListEntries(c.Request.Context(), groupID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call list lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": entries})
}

type startBatchRequest struct {
	Contacts []dispatch.Contact `json:"contacts"`
	// Text is an alternative to Contacts: pasted numbers, one per line.
	Text string `json:"text"`
}

// StartBatch launches a dispatch run in the background. Progress flows to
// the group's Redis channel; the response only confirms acceptance.
func (h Handlers) StartBatch(c *gin.Context) {
	groupID, ok := h.requireGroup(c)
	if !ok {
		return
	}
	userID, _ := auth.UserID(c.Request.Context())

	var req startBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	contacts := req.Contacts
	if len(contacts) == 0 && req.Text != "" {
		parsed, err := dispatch.ParseContacts(req.Text)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "no valid contacts"})
			return
		}
		contacts = parsed
	}
	if len(contacts) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "contacts required"})
		return
	}

	// The run outlives the request; a busy group surfaces on the progress
	// channel and in the logs, not in this response.
	log := logger.FromGin(c)
	runCtx := context.WithoutCancel(c.Request.Context())
	go func() {
		if _, err := h.Dispatch.RunBatch(runCtx, groupID, userID, contacts, h.ProgressObserver); err != nil {
			if errors.Is(err, dispatch.ErrBatchInProgress) {
				log.Warn("dispatch batch rejected", "group_id", groupID)
				return
			}
			log.Error("dispatch batch failed", "group_id", groupID, "err", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"accepted": true, "contacts": len(contacts)})
}

// ParseContactFile accepts a multipart CSV upload and returns the parsed
// contacts without dialing anything.
func (h Handlers) ParseContactFile(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	contacts, err := dispatch.ParseContactsCSV(file)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "no valid contacts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

// --- Reporting ---

func (h Handlers) CallsReport(c *gin.Context) {
	groupID, ok := h.requireGroup(c)
	if !ok {
		return
	}
	from, to, err := parseRange(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sum, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		GroupID: groupID,
		Range:   reporting.TimeRange{From: from, To: to},
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h Handlers) UsageReport(c *gin.Context) {
	groupID, ok := h.requireGroup(c)
	if !ok {
		return
	}
	from, to, err := parseRange(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sum, err := h.Reports.UsageSummary(c.Request.Context(), reporting.UsageSummaryRequest{
		GroupID: groupID,
		Range:   reporting.TimeRange{From: from, To: to},
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// --- helpers ---

func (h Handlers) requireGroup(c *gin.Context) (string, bool) {
	groupID, err := auth.GroupID(c.Request.Context())
	if err != nil || groupID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "group_id required"})
		return "", false
	}
	return groupID, true
}

// parseRange reads optional from/to RFC3339 query params; default last 30 days.
func parseRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be RFC3339")
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be RFC3339")
		}
		to = t
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, errors.New("to must be after from")
	}
	return from, to, nil
}
