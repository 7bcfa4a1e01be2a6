package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyviz-backend/internal/documents"
	"studyviz-backend/internal/services/health"
	"studyviz-backend/internal/shared/config"
	"studyviz-backend/internal/shared/metrics"
	"studyviz-backend/internal/shared/server/middleware"
	"studyviz-backend/internal/shared/server/respond"
)

const uploadRateGroup = "UPLOAD"

// RouterDeps contains handlers registered on the engine.
type RouterDeps struct {
	Config          config.Config
	DocumentHandler *documents.Handler
	Health          *health.Service
	// UploadLimiter overrides the limiter built from Config; tests inject a clock.
	UploadLimiter *middleware.RateLimiter
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
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(nil)
	}

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status())
	})
	api.GET("/ready", func(c *gin.Context) {
		report := healthSvc.Ready(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api, uploadRateLimit(deps))
	}

	r.GET("/metrics", metrics.Handler())

	return r
}

func uploadRateLimit(deps RouterDeps) gin.HandlerFunc {
	burst := deps.Config.UploadBurst
	if burst <= 0 {
		burst = 1
	}
	return middleware.RateLimit(middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			uploadRateGroup: {Rate: deps.Config.UploadRatePerSec, Burst: burst},
		},
		DefaultGroup: uploadRateGroup,
		Limiter:      deps.UploadLimiter,
	})
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
