package middlewares_test

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hlyanhtet/buildbooks_backend/middlewares"
	"github.com/hlyanhtet/buildbooks_backend/utils"
)

func authedRequest(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return httptest.NewRecorder()
}

func bearerToken(t *testing.T) string {
	t.Helper()
	token, err := utils.JwtGenerate(7, "company-1", "pm-user", "pm")
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}
	return token
}

func TestAuthMiddleware_KeepsUpstreamCorrelationId(t *testing.T) {
	w := authedRequest(t)
	c, _ := gin.CreateTestContext(w)

	req := httptest.NewRequest("GET", "/draw-requests", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t))
	// a correlation id assigned earlier in the chain must survive auth
	req = req.WithContext(utils.SetCorrelationIdInContext(req.Context(), "req-abc-123"))
	c.Request = req

	middlewares.AuthMiddleware()(c)

	cid, ok := utils.GetCorrelationIdFromContext(c.Request.Context())
	if !ok || cid != "req-abc-123" {
		t.Fatalf("correlation id = %q, want req-abc-123", cid)
	}
	if companyId, _ := utils.GetCompanyIdFromContext(c.Request.Context()); companyId != "company-1" {
		t.Fatalf("company id = %q, want company-1", companyId)
	}
	if role, _ := utils.GetUserRoleFromContext(c.Request.Context()); role != "pm" {
		t.Fatalf("role = %q, want pm", role)
	}
}

func TestAuthMiddleware_AssignsCorrelationIdWhenAbsent(t *testing.T) {
	w := authedRequest(t)
	c, _ := gin.CreateTestContext(w)

	req := httptest.NewRequest("GET", "/draw-requests", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t))
	c.Request = req

	middlewares.AuthMiddleware()(c)

	cid, ok := utils.GetCorrelationIdFromContext(c.Request.Context())
	if !ok || cid == "" {
		t.Fatal("expected a correlation id to be assigned")
	}
}
