package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/askstream/internal/api/middleware"
	"github.com/liliang-cn/askstream/internal/api/widget"
	"github.com/liliang-cn/askstream/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	APIKey       string
	AllowOrigins []string
	// RateLimiter is optional; nil disables rate limiting
	RateLimiter *middleware.RateLimiter
	Gatherer    prometheus.Gatherer
	Logger      *zap.Logger
}

// SetupRouter sets up the Gin router
func SetupRouter(
	widgetService *service.WidgetService,
	streamService *service.StreamService,
	cfg RouterConfig,
) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))

	// CORS middleware
	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Gatherer != nil {
		r.GET("/metrics",
			middleware.Auth(cfg.APIKey),
			gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})),
		)
	}

	// Widget and integration routes share the same handlers
	widgetHandler := widget.NewHandler(widgetService, streamService, logger)
	v1 := r.Group("/api/v1")
	for _, mode := range []string{"widget", "c"} {
		group := v1.Group("/" + mode + "/:token")
		group.Use(
			middleware.SiteToken(widgetService.SiteExists, logger),
			middleware.RateLimit(cfg.RateLimiter),
		)
		widgetHandler.RegisterRoutes(group)
	}

	return r
}
