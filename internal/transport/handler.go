package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-sign-classifier/internal/config"
	"go-sign-classifier/internal/observer"
	"go-sign-classifier/internal/service"
	"go-sign-classifier/internal/session"
)

// multipartOverhead is the body allowance on top of the upload ceiling for
// multipart framing and form fields
const multipartOverhead = 1 << 20

const healthCheckTimeout = 5 * time.Second

// Handler serves the classifier page, the session API and the operational endpoints
type Handler struct {
	sessions service.SessionService
	subject  observer.Subject
	cfg      *config.Config
}

// NewHandler builds the gin engine. subject is the publisher session
// controllers report to; gatherer backs /metrics.
func NewHandler(sessions service.SessionService, subject observer.Subject, gatherer prometheus.Gatherer, cfg *config.Config) http.Handler {
	h := &Handler{
		sessions: sessions,
		subject:  subject,
		cfg:      cfg,
	}

	r := gin.New()
	r.SetHTMLTemplate(pageTemplate)

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxUploadSize+multipartOverhead),
		errorHandler(),
	)

	// Server-rendered page and its form actions
	r.GET("/", h.page)
	ui := r.Group("/ui")
	{
		ui.POST("/file", h.uiSelectFile)
		ui.POST("/url", h.uiLoadURL)
		ui.POST("/predict", h.uiAction((*session.Controller).Submit))
		ui.POST("/retry", h.uiAction((*session.Controller).Retry))
		ui.POST("/back", h.uiAction((*session.Controller).BackToUpload))
		ui.POST("/reset", h.uiAction((*session.Controller).Reset))
	}

	// JSON session API
	api := r.Group("/api")
	{
		api.POST("/sessions", h.createSession)
		api.GET("/model", h.modelInfo)

		s := api.Group("/sessions/:id", h.loadSession)
		s.GET("", h.getSession)
		s.DELETE("", h.deleteSession)
		s.POST("/file", h.apiSelectFile)
		s.POST("/url", h.apiLoadURL)
		s.POST("/predict", h.apiAction((*session.Controller).Submit))
		s.POST("/retry", h.apiAction((*session.Controller).Retry))
		s.POST("/back", h.apiAction((*session.Controller).BackToUpload))
		s.POST("/reset", h.apiAction((*session.Controller).Reset))
		s.GET("/image", h.sessionImage)
		s.GET("/events", h.sessionEvents)
	}

	r.GET("/health", h.healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return r
}

func (h *Handler) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	predictionService := "unavailable"
	if h.sessions.PredictionServiceAvailable(ctx) {
		predictionService = "available"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":             "available",
		"version":            "1.0.0",
		"time":               time.Now().UTC().Format(time.RFC3339),
		"prediction_service": predictionService,
		"sessions":           h.sessions.Len(),
	})
}

func (h *Handler) modelInfo(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	info, err := h.sessions.ModelInfo(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
