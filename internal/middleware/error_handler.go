package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"practice_app_echo/internal/services"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Message string `json:"message"`
}

// StatusFor maps an error onto an HTTP status and a client-safe message
func StatusFor(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		} else if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, msg
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrValidationFailed):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrConflictRetry):
		return http.StatusConflict, err.Error()
	}
	return http.StatusInternalServerError, "Something went wrong. Please try again later."
}

// JSONErrorHandler renders every error as {"message": ...}
func JSONErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := StatusFor(err)
		if code >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(code)
		} else {
			writeErr = c.JSON(code, ErrorResponse{Message: msg})
		}
		if writeErr != nil {
			log.Error("failed to write error response", zap.Error(writeErr))
		}
	}
}
