package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apperrors "go-sign-classifier/internal/errors"
	"go-sign-classifier/internal/logger"
	"go-sign-classifier/pkg/models"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestID tags every request with an X-Request-ID. A well-formed ID sent by
// the client is kept.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"request_id":  c.GetString(requestIDKey),
			"ip":          c.ClientIP(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last().Err
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError answers with the status and user message carried by err
func abortWithError(c *gin.Context, err error) {
	code := determineStatusCode(err)
	respondError(c, code, apperrors.UserMessage(err, http.StatusText(code)), err)
}

func respondError(c *gin.Context, code int, message string, err error) {
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"request_id":  c.GetString(requestIDKey),
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
	})
}
