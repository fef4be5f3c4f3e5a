package widget

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/askstream/internal/domain"
	"github.com/liliang-cn/askstream/internal/service"
	"github.com/liliang-cn/askstream/internal/stream"
	"go.uber.org/zap"
)

// Handler handles widget API requests
type Handler struct {
	widgetService *service.WidgetService
	streamService *service.StreamService
	logger        *zap.Logger
}

// NewHandler creates a new widget handler
func NewHandler(widgetService *service.WidgetService, streamService *service.StreamService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		widgetService: widgetService,
		streamService: streamService,
		logger:        logger,
	}
}

// RegisterRoutes registers widget routes on a group bound to /:token
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/config", h.GetConfig)
	r.POST("/chat/stream", h.ChatStream)
}

// GetConfig returns the widget configuration for a site
func (h *Handler) GetConfig(c *gin.Context) {
	config, err := h.widgetService.GetWidgetConfig(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, config)
}

// ChatStream answers a chat message as newline-delimited data frames
func (h *Handler) ChatStream(c *gin.Context) {
	token := c.Param("token")

	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorBody{Message: err.Error()})
		return
	}

	started := false
	emit := func(frame domain.Frame) error {
		if !started {
			started = true
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Header("X-Accel-Buffering", "no")
			c.Status(http.StatusOK)
		}
		if err := stream.Encode(c.Writer, frame); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	err := h.streamService.Stream(c.Request.Context(), token, &req, emit)
	if err == nil {
		return
	}
	if started {
		h.logger.Debug("Stream ended early", zap.String("token", token), zap.Error(err))
		return
	}
	h.writeError(c, err)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, domain.ErrorBody{Message: "site not found"})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, domain.ErrorBody{Message: err.Error()})
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, domain.ErrorBody{Message: "internal error"})
	}
}
