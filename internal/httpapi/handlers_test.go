package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voiceconsole/internal/audit"
	"voiceconsole/internal/auth"
	"voiceconsole/internal/costmodel"
	"voiceconsole/internal/ledger"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func newTestRouter(t *testing.T, h Handlers, userID, groupID, role string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), userID, groupID, role))
		c.Next()
	})
	r.GET("/balance", h.GetBalance)
	r.POST("/usage/charge", h.ChargeUsage)
	r.POST("/admin/top-up", h.AdminTopUp)
	return r
}

func newLedgerService(t *testing.T, credits string) (*ledger.Service, *ledger.MemoryRepository) {
	t.Helper()
	repo := ledger.NewMemoryRepository()
	repo.PutGroup(ledger.Group{ID: "grp-1", Name: "Acme", Credits: decimal.RequireFromString(credits)})
	return ledger.NewService(repo, costmodel.DefaultRateCard()), repo
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetBalance(t *testing.T) {
	svc, _ := newLedgerService(t, "12.50")
	r := newTestRouter(t, Handlers{Ledger: svc}, "user-1", "grp-1", "member")

	w := doJSON(t, r, http.MethodGet, "/balance", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"12.5"`) {
		t.Fatalf("expected credits in body: %s", w.Body.String())
	}
}

func TestChargeUsage_Accepted(t *testing.T) {
	svc, _ := newLedgerService(t, "10")
	r := newTestRouter(t, Handlers{Ledger: svc}, "user-1", "grp-1", "member")

	w := doJSON(t, r, http.MethodPost, "/usage/charge",
		`{"model":"ft:gpt-4o-mini","input_tokens":1000,"output_tokens":1000}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"accepted":true`) {
		t.Fatalf("expected accepted charge: %s", w.Body.String())
	}
}

func TestChargeUsage_InsufficientCreditsIs402(t *testing.T) {
	svc, repo := newLedgerService(t, "0.01")
	r := newTestRouter(t, Handlers{Ledger: svc}, "user-1", "grp-1", "member")

	w := doJSON(t, r, http.MethodPost, "/usage/charge",
		`{"model":"ft:gpt-4o-mini","input_tokens":1000,"output_tokens":1000}`)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", w.Code, w.Body.String())
	}
	// The rejected attempt is still recorded.
	events := repo.Events()
	if len(events) != 1 || events[0].Success {
		t.Fatalf("expected one failed event, got %+v", events)
	}
}

func TestAdminTopUp_CreditsAndAudits(t *testing.T) {
	svc, _ := newLedgerService(t, "1")
	auditRepo := audit.NewMemoryRepo()
	h := Handlers{Ledger: svc, Audit: audit.NewService(auditRepo)}
	r := newTestRouter(t, h, "admin-1", "grp-1", "admin")

	w := doJSON(t, r, http.MethodPost, "/admin/top-up", `{"amount":"25"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"26"`) {
		t.Fatalf("expected new balance 26: %s", w.Body.String())
	}

	evs := auditRepo.Events()
	if len(evs) != 1 || evs[0].Type != audit.EventTypeTopUp {
		t.Fatalf("expected top-up audit event, got %+v", evs)
	}
}

func TestAdminTopUp_RejectsBadAmount(t *testing.T) {
	svc, _ := newLedgerService(t, "1")
	r := newTestRouter(t, Handlers{Ledger: svc}, "admin-1", "grp-1", "admin")

	for _, body := range []string{`{"amount":"-5"}`, `{"amount":"abc"}`, `{"amount":""}`} {
		w := doJSON(t, r, http.MethodPost, "/admin/top-up", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, w.Code)
		}
	}
}

func TestParseRangeDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/reports", nil)

	from, to, err := parseRange(c)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !to.After(from) {
		t.Fatalf("expected valid default range")
	}
	if to.Sub(from) < 29*24*time.Hour {
		t.Fatalf("expected ~30 day default window, got %v", to.Sub(from))
	}
}
