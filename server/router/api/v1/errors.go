package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	aierrors "github.com/hrygo/focuspilot/plugin/ai/errors"
	"github.com/hrygo/focuspilot/server/internal/observability"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Violations []string `json:"violations,omitempty"`
}

// StatusFromError maps an error onto an HTTP status and response body.
func StatusFromError(err error) (int, ErrorResponse) {
	var aiErr *aierrors.AIError
	if errors.As(err, &aiErr) {
		resp := ErrorResponse{Code: string(aiErr.Code), Message: aiErr.Message, Violations: aiErr.Violations}
		switch aiErr.Code {
		case aierrors.ErrCodeValidationFailed, aierrors.ErrCodeInvalidArgument:
			return http.StatusBadRequest, resp
		case aierrors.ErrCodeUnauthorized:
			return http.StatusUnauthorized, resp
		default:
			// Collaborator details stay in the logs.
			resp.Message = "the assistant is temporarily unavailable"
			return http.StatusInternalServerError, resp
		}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp := ErrorResponse{Code: string(aierrors.ErrCodeInvalidArgument), Message: "invalid request"}
		for _, fe := range verrs {
			resp.Violations = append(resp.Violations, fe.Field()+" failed "+fe.Tag())
		}
		return http.StatusBadRequest, resp
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		var code string
		switch he.Code {
		case http.StatusBadRequest:
			code = string(aierrors.ErrCodeInvalidArgument)
		case http.StatusUnauthorized:
			code = string(aierrors.ErrCodeUnauthorized)
		default:
			code = strings.ToUpper(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))
		}
		return he.Code, ErrorResponse{Code: code, Message: msg}
	}

	return http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL", Message: "internal error"}
}

// HTTPErrorHandler writes errors as ErrorResponse JSON.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, resp := StatusFromError(err)

	logger := slog.Default()
	if rc, ok := observability.FromContext(c.Request().Context()); ok {
		logger = rc.WithFields()
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err, observability.LogFieldErrorCode, resp.Code)
	} else {
		logger.Debug("request rejected", "error", err, observability.LogFieldErrorCode, resp.Code)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, resp)
	}
	if err != nil {
		logger.Warn("failed to write error response", "error", err)
	}
}
