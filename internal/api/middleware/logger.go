package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gw-currency-rates/internal/metrics"
)

// RequestIDHeader заголовок с идентификатором запроса
const RequestIDHeader = "X-Request-ID"

// Logger логирует HTTP запросы и обновляет метрики
func Logger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		// шаблон маршрута, чтобы не плодить метки на каждую пару валют
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(statusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())

		entry := logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     method,
			"path":       c.Request.URL.Path,
			"status":     statusCode,
			"duration":   duration.String(),
			"client_ip":  c.ClientIP(),
		})

		switch {
		case len(c.Errors) > 0:
			entry.Error(c.Errors.String())
		case statusCode >= 500:
			entry.Error("Internal server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request completed")
		}
	}
}
