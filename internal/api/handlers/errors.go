package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gw-currency-rates/internal/provider"
	"gw-currency-rates/internal/service"
)

// respondError переводит ошибку сервисного слоя в HTTP ответ
func respondError(c *gin.Context, logger *logrus.Logger, err error, fallback string) {
	status, message := http.StatusInternalServerError, fallback

	var perr *provider.ProviderError
	switch {
	case errors.As(err, &perr) && perr.Kind == provider.NetworkError:
		status, message = http.StatusServiceUnavailable, perr.Error()
	case errors.As(err, &perr):
		status, message = http.StatusBadRequest, perr.Error()
	case errors.Is(err, service.ErrInvalidAmount):
		status, message = http.StatusBadRequest, service.ErrInvalidAmount.Error()
	case errors.Is(err, service.ErrUnsupportedFormat):
		status, message = http.StatusForbidden, "Unsupported format"
	case errors.Is(err, service.ErrUserExists):
		status, message = http.StatusConflict, "User with this username or email already exists"
	case errors.Is(err, service.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, "Invalid username or password"
	}

	if status >= http.StatusInternalServerError {
		logger.Errorf("%s: %v", fallback, err)
	}
	c.JSON(status, gin.H{"error": message})
}
