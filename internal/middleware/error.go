package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/cliniccare-api/internal/handler"
	apperrors "github.com/jwalitptl/cliniccare-api/pkg/errors"
	"github.com/jwalitptl/cliniccare-api/pkg/validator"
)

// ErrorHandler renders the last error a handler attached with c.Error.
// Internal errors are logged and hidden from the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		requestID := c.GetString(ContextRequestID)
		lastErr := c.Errors.Last().Err

		status := http.StatusInternalServerError
		message := "internal server error"
		if errors.Is(lastErr, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
			message = "request timeout"
		} else if appErr, ok := apperrors.As(lastErr); ok {
			status = appErr.StatusCode()
			if status != http.StatusInternalServerError {
				message = appErr.Message
			}
		}

		if status == http.StatusInternalServerError {
			requestLogger(c).Error().
				Err(lastErr).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}

		resp := handler.NewErrorResponse(message)
		resp.Errors = validator.Errors(lastErr)
		resp.RequestID = requestID
		c.JSON(status, resp)
	}
}
