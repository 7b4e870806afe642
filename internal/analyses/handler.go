package analyses

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/extract"
	"ats-backend/internal/shared/server/middleware"
	"ats-backend/internal/shared/server/respond"
	"ats-backend/internal/shared/telemetry"
	"ats-backend/internal/shared/util"
	"ats-backend/internal/shared/validation"
)

const (
	defaultMaxUploadBytes = 5 << 20
	xlsxContentType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/score", h.score)
	rg.POST("/jobs/:id/analyses", h.submit)
	rg.GET("/jobs/:id/analyses", h.listForJob)
	rg.GET("/jobs/:id/analyses/export", h.exportForJob)
	rg.GET("/analyses", h.listMine)
	rg.GET("/analyses/:id", h.getAnalysis)
	rg.GET("/analyses/:id/resume", h.downloadResume)
}

func (h *Handler) score(c *gin.Context) {
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid score request", validation.Issues(err))
		return
	}
	respond.OK(c, h.Svc.Score(requestContext(c), req.ResumeText, req.Job))
}

func (h *Handler) submit(c *gin.Context) {
	jobID := c.Param("id")
	c.Set("jobId", jobID)
	async := c.Query("async") == "true"

	upload, ok := h.readResume(c)
	if !ok {
		return
	}

	principal := middleware.PrincipalFromContext(c)
	ctx := requestContext(c)
	analysis, err := h.Svc.Submit(ctx, jobID, principal.ID, upload.text, upload.fileName, async)
	if err != nil {
		writeError(c, err, "failed to submit analysis")
		return
	}
	c.Set("analysisId", analysis.ID)

	if err := h.Svc.ArchiveResume(ctx, analysis, upload.contentType, upload.data); err != nil {
		telemetry.Warn("analysis.resume_archive_failed", map[string]any{
			"analysis_id": analysis.ID,
			"request_id":  middleware.RequestIDFromContext(c),
			"error":       err.Error(),
		})
	}

	if async {
		respond.JSON(c, http.StatusAccepted, gin.H{
			"analysisId": analysis.ID,
			"status":     analysis.Status,
		})
		return
	}
	respond.JSON(c, http.StatusCreated, analysis)
}

// resumeUpload is the resume submitted with an analysis. data and
// contentType are set only for file uploads.
type resumeUpload struct {
	text        string
	fileName    string
	contentType string
	data        []byte
}

// readResume accepts either a JSON body or a multipart "resume" file.
func (h *Handler) readResume(c *gin.Context) (resumeUpload, bool) {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		var req SubmitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid analysis request", validation.Issues(err))
			return resumeUpload{}, false
		}
		return resumeUpload{text: req.ResumeText, fileName: util.SanitizeFileName(req.ResumeFileName)}, true
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+(1<<20))
	header, err := c.FormFile("resume")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "resume exceeds upload limit", gin.H{"maxBytes": h.MaxUploadBytes})
			return resumeUpload{}, false
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "resume file is required", []map[string]string{
			{"field": "resume", "issue": "required"},
		})
		return resumeUpload{}, false
	}
	if header.Size > h.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "resume exceeds upload limit", gin.H{"maxBytes": h.MaxUploadBytes})
		return resumeUpload{}, false
	}

	file, err := header.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unreadable resume file", nil)
		return resumeUpload{}, false
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, h.MaxUploadBytes))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unreadable resume file", nil)
		return resumeUpload{}, false
	}

	fileName := util.SanitizeFileName(header.Filename)
	contentType := extract.NormalizeMimeType(header.Header.Get("Content-Type"), fileName, data)
	text, err := extract.ExtractText(c.Request.Context(), data, contentType, fileName)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupported):
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_media_type", "resume must be PDF, DOCX or plain text", nil)
		case errors.Is(err, extract.ErrEmpty):
			respond.Error(c, http.StatusUnprocessableEntity, "empty_resume", "no text could be extracted from the resume", nil)
		default:
			respond.Error(c, http.StatusUnprocessableEntity, "extraction_failed", "failed to read resume text", nil)
		}
		return resumeUpload{}, false
	}
	return resumeUpload{text: text, fileName: fileName, contentType: contentType, data: data}, true
}

func (h *Handler) getAnalysis(c *gin.Context) {
	analysisID := c.Param("id")
	c.Set("analysisId", analysisID)
	analysis, err := h.Svc.Get(requestContext(c), middleware.PrincipalFromContext(c), analysisID)
	if err != nil {
		writeError(c, err, "failed to fetch analysis")
		return
	}
	respond.OK(c, analysis)
}

func (h *Handler) downloadResume(c *gin.Context) {
	analysisID := c.Param("id")
	c.Set("analysisId", analysisID)
	rc, analysis, err := h.Svc.OpenResume(requestContext(c), middleware.PrincipalFromContext(c), analysisID)
	if err != nil {
		writeError(c, err, "failed to load resume file")
		return
	}
	defer rc.Close()

	name := analysis.ResumeFileName
	if name == "" {
		name = "resume"
	}
	contentType := extract.NormalizeMimeType("", name, nil)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, strings.ReplaceAll(name, `"`, "")),
	})
}

func (h *Handler) listMine(c *gin.Context) {
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	list, err := h.Svc.ListMine(requestContext(c), middleware.PrincipalFromContext(c), limit, offset)
	if err != nil {
		writeError(c, err, "failed to list analyses")
		return
	}
	resp := make([]gin.H, 0, len(list))
	for _, a := range list {
		item := gin.H{
			"analysisId": a.ID,
			"jobId":      a.JobID,
			"status":     a.Status,
			"createdAt":  a.CreatedAt,
		}
		if a.OverallScore != nil {
			item["overallScore"] = *a.OverallScore
		}
		if a.Result != nil {
			item["summary"] = a.Result.Insights.Summary
		}
		resp = append(resp, item)
	}
	respond.OK(c, resp)
}

func (h *Handler) listForJob(c *gin.Context) {
	jobID := c.Param("id")
	c.Set("jobId", jobID)
	list, _, err := h.Svc.ListForJob(requestContext(c), middleware.PrincipalFromContext(c), jobID)
	if err != nil {
		writeError(c, err, "failed to list analyses")
		return
	}
	resp := make([]gin.H, 0, len(list))
	for i, a := range list {
		item := gin.H{
			"rank":           i + 1,
			"analysisId":     a.ID,
			"candidateId":    a.CandidateID,
			"resumeFileName": a.ResumeFileName,
			"status":         a.Status,
			"createdAt":      a.CreatedAt,
		}
		if a.OverallScore != nil {
			item["overallScore"] = *a.OverallScore
		}
		if a.Result != nil {
			item["matchedSkills"] = a.Result.SkillsMatch.MatchedSkills
			item["missingSkills"] = a.Result.SkillsMatch.MissingSkills
			item["careerLevelFit"] = a.Result.Insights.CareerLevelFit
		}
		resp = append(resp, item)
	}
	respond.OK(c, resp)
}

func (h *Handler) exportForJob(c *gin.Context) {
	jobID := c.Param("id")
	c.Set("jobId", jobID)
	payload, fileName, err := h.Svc.ExportForJob(requestContext(c), middleware.PrincipalFromContext(c), jobID)
	if err != nil {
		writeError(c, err, "failed to export analyses")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	c.Data(http.StatusOK, xlsxContentType, payload)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "resource not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "not allowed to access this resource", nil)
	case errors.Is(err, ErrJobClosed):
		respond.Error(c, http.StatusConflict, "job_closed", "job is no longer accepting applications", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func requestContext(c *gin.Context) context.Context {
	return WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
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
