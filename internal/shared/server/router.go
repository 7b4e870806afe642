package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/analyses"
	"ats-backend/internal/jobs"
	"ats-backend/internal/services/health"
	"ats-backend/internal/shared/config"
	"ats-backend/internal/shared/metrics"
	"ats-backend/internal/shared/server/middleware"
	"ats-backend/internal/shared/server/respond"
)

const (
	healthPath  = "/api/v1/health"
	metricsPath = "/metrics"

	groupDefault = "DEFAULT"
	groupScoring = "SCORING"
	groupPolling = "POLLING"
)

// RouterDeps are the handlers and collaborators mounted by NewRouter.
type RouterDeps struct {
	Config          config.Config
	Verifier        middleware.TokenVerifier
	Health          *health.Service
	JobsHandler     *jobs.Handler
	AnalysisHandler *analyses.Handler
	RateLimiter     *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Verifier, healthPath, metricsPath),
		middleware.RateLimit(rateLimitConfig(deps.Config, deps.RateLimiter)),
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(nil, "")
	}

	r.GET(metricsPath, metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		payload, ok := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, payload)
	})
	registerMeRoutes(api)
	if deps.JobsHandler != nil {
		deps.JobsHandler.RegisterRoutes(api)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}

	return r
}

func rateLimitConfig(cfg config.Config, limiter *middleware.RateLimiter) middleware.RateLimitConfig {
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 10
	}
	return middleware.RateLimitConfig{
		DefaultGroup: groupDefault,
		GroupFor:     rateLimitGroup,
		Limiter:      limiter,
		Rules: map[string]middleware.RateLimitRule{
			groupScoring: {Rate: rps, Burst: burst},
			groupDefault: {Rate: rps * 2, Burst: burst * 2},
			groupPolling: {Rate: rps * 4, Burst: burst * 4},
		},
	}
}

// rateLimitGroup puts the scoring endpoints in their own bucket so polling
// for a queued result does not eat into submissions.
func rateLimitGroup(c *gin.Context) string {
	switch path := c.FullPath(); {
	case path == healthPath || path == metricsPath:
		return "NONE"
	case c.Request.Method == http.MethodPost && (path == "/api/v1/score" || path == "/api/v1/jobs/:id/analyses"):
		return groupScoring
	case c.Request.Method == http.MethodGet && path == "/api/v1/analyses/:id":
		return groupPolling
	default:
		return groupDefault
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
