package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"ats-backend/internal/shared/auth"
)

func testSigner(t *testing.T) *auth.Signer {
	t.Helper()
	s, err := auth.NewSigner("test-secret", false)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return s
}

func bearer(t *testing.T, s *auth.Signer, sub string, role auth.Role) string {
	t.Helper()
	token, err := s.Sign(auth.Claims{Role: role, RegisteredClaims: jwt.RegisteredClaims{Subject: sub}})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + token
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(testSigner(t)))
	router.OPTIONS("/api/v1/jobs", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/jobs", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthSkipsPublicPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(testSigner(t), "/api/v1/health"))
	router.GET("/api/v1/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestAuthRejectsMissingOrBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(testSigner(t)))
	router.GET("/api/v1/jobs", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, resp.Code)
		}
	}
}

func TestAuthAndRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	signer := testSigner(t)
	router := gin.New()
	router.Use(Auth(signer))
	router.POST("/api/v1/jobs", RequireRole(auth.RoleRecruiter, auth.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": UserIDFromContext(c), "role": UserRoleFromContext(c)})
	})

	tests := []struct {
		role auth.Role
		want int
	}{
		{role: auth.RoleRecruiter, want: http.StatusOK},
		{role: auth.RoleAdmin, want: http.StatusOK},
		{role: auth.RoleCandidate, want: http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", nil)
		req.Header.Set("Authorization", bearer(t, signer, "user-1", tt.role))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != tt.want {
			t.Fatalf("role %s: expected %d, got %d", tt.role, tt.want, resp.Code)
		}
	}
}
