package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"voiceconsole/internal/auth"

	"github.com/gin-gonic/gin"
)

func doRequest(t *testing.T, mw gin.HandlerFunc, userID, groupID, role string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), userID, groupID, role))
		}
		c.Next()
	})
	r.GET("/x", mw, func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireGroup(t *testing.T) {
	if code := doRequest(t, RequireGroup(), "u1", "g1", RoleMember); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := doRequest(t, RequireGroup(), "", "", ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequireAnyRole(t *testing.T) {
	if code := doRequest(t, RequireAnyRole(RoleAdmin), "u1", "g1", RoleAdmin); code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", code)
	}
	if code := doRequest(t, RequireAnyRole(RoleAdmin), "u1", "g1", RoleMember); code != http.StatusForbidden {
		t.Fatalf("expected 403 for member, got %d", code)
	}
	// super_admin bypasses
	if code := doRequest(t, RequireAnyRole(RoleAdmin), "u1", "g1", RoleSuperAdmin); code != http.StatusOK {
		t.Fatalf("expected 200 for super_admin, got %d", code)
	}
}
