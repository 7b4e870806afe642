package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/shared/auth"
	"ats-backend/internal/shared/validation"
)

func setupJobsRouter(t *testing.T, actor auth.Principal) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if err := validation.Register(); err != nil {
		t.Fatalf("register validation: %v", err)
	}
	svc := newTestService()
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", actor.ID)
		c.Set("userRole", string(actor.Role))
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router, svc
}

func doJSON(router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestCreateJobHandler(t *testing.T) {
	router, _ := setupJobsRouter(t, recruiter)

	resp := doJSON(router, http.MethodPost, "/api/v1/jobs", map[string]any{
		"title":           "Backend Engineer",
		"description":     "Go services",
		"requiredSkills":  []string{"go"},
		"experienceLevel": "mid",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.ID == "" || job.RecruiterID != recruiter.ID {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestCreateJobValidationDetails(t *testing.T) {
	router, _ := setupJobsRouter(t, recruiter)

	resp := doJSON(router, http.MethodPost, "/api/v1/jobs", map[string]any{
		"title":           "Backend Engineer",
		"description":     "Go services",
		"experienceLevel": "wizard",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body struct {
		Error struct {
			Code    string              `json:"code"`
			Details []map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "validation_error" {
		t.Fatalf("unexpected code %q", body.Error.Code)
	}
	if len(body.Error.Details) != 1 || body.Error.Details[0]["issue"] != "experiencelevel" {
		t.Fatalf("unexpected details %v", body.Error.Details)
	}
}

func TestCandidateCannotCreateJob(t *testing.T) {
	router, _ := setupJobsRouter(t, candidate)
	resp := doJSON(router, http.MethodPost, "/api/v1/jobs", map[string]any{
		"title": "x", "description": "y", "experienceLevel": "mid",
	})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestGetListAndCloseJob(t *testing.T) {
	router, svc := setupJobsRouter(t, recruiter)
	job, err := svc.Create(context.Background(), recruiter, validInput())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if resp := doJSON(router, http.MethodGet, "/api/v1/jobs/"+job.ID, nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on get, got %d", resp.Code)
	}
	if resp := doJSON(router, http.MethodGet, "/api/v1/jobs/missing", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}

	if resp := doJSON(router, http.MethodDelete, "/api/v1/jobs/"+job.ID, nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on close, got %d", resp.Code)
	}

	resp := doJSON(router, http.MethodGet, "/api/v1/jobs", nil)
	var open []Job
	_ = json.NewDecoder(resp.Body).Decode(&open)
	if len(open) != 0 {
		t.Fatalf("closed job should not be listed as open: %v", open)
	}

	resp = doJSON(router, http.MethodGet, "/api/v1/jobs?status=all&mine=true", nil)
	var all []Job
	_ = json.NewDecoder(resp.Body).Decode(&all)
	if len(all) != 1 {
		t.Fatalf("expected 1 job with status=all, got %d", len(all))
	}
}
