package jobs

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/shared/auth"
	"ats-backend/internal/shared/server/middleware"
	"ats-backend/internal/shared/server/respond"
	"ats-backend/internal/shared/validation"
)

// Handler wires HTTP handlers to the jobs service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches job routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	recruiters := middleware.RequireRole(auth.RoleRecruiter, auth.RoleAdmin)

	rg.GET("/jobs", h.listJobs)
	rg.GET("/jobs/:id", h.getJob)
	rg.POST("/jobs", recruiters, h.createJob)
	rg.PUT("/jobs/:id", recruiters, h.updateJob)
	rg.DELETE("/jobs/:id", recruiters, h.closeJob)
}

func (h *Handler) createJob(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid job payload", validation.Issues(err))
		return
	}
	job, err := h.Svc.Create(c.Request.Context(), middleware.PrincipalFromContext(c), in)
	if err != nil {
		writeError(c, err, "failed to create job")
		return
	}
	c.Set("jobId", job.ID)
	respond.JSON(c, http.StatusCreated, job)
}

func (h *Handler) getJob(c *gin.Context) {
	jobID := c.Param("id")
	c.Set("jobId", jobID)
	job, err := h.Svc.Get(c.Request.Context(), jobID)
	if err != nil {
		writeError(c, err, "failed to fetch job")
		return
	}
	respond.OK(c, job)
}

func (h *Handler) listJobs(c *gin.Context) {
	filter := ListFilter{
		Status: c.DefaultQuery("status", StatusOpen),
		Limit:  queryInt(c, "limit", 20),
		Offset: queryInt(c, "offset", 0),
	}
	if filter.Status == "all" {
		filter.Status = ""
	}
	if c.Query("mine") == "true" {
		filter.RecruiterID = middleware.UserIDFromContext(c)
	}
	jobs, err := h.Svc.List(c.Request.Context(), filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list jobs", nil)
		return
	}
	respond.OK(c, jobs)
}

func (h *Handler) updateJob(c *gin.Context) {
	jobID := c.Param("id")
	c.Set("jobId", jobID)
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid job payload", validation.Issues(err))
		return
	}
	job, err := h.Svc.Update(c.Request.Context(), middleware.PrincipalFromContext(c), jobID, in)
	if err != nil {
		writeError(c, err, "failed to update job")
		return
	}
	respond.OK(c, job)
}

func (h *Handler) closeJob(c *gin.Context) {
	jobID := c.Param("id")
	c.Set("jobId", jobID)
	job, err := h.Svc.Close(c.Request.Context(), middleware.PrincipalFromContext(c), jobID)
	if err != nil {
		writeError(c, err, "failed to close job")
		return
	}
	respond.OK(c, job)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "not allowed to modify this job", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
