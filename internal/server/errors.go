package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/sprintboard/pkg/apperr"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, internalError()
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "not found"}
	}

	appErr, ok := apperr.As(err)
	if !ok {
		return http.StatusInternalServerError, internalError()
	}

	switch appErr.Kind {
	case apperr.KindValidation:
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   appErr.Field,
					Code:    appErr.Code,
					Message: appErr.Message,
				},
			},
		}
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Code: appErr.Code, Message: "unauthorized"}
	case apperr.KindUnauthorized:
		return http.StatusForbidden, errorPayload{Type: "forbidden", Code: appErr.Code, Message: appErr.Message}
	case apperr.KindNotFound:
		return http.StatusNotFound, errorPayload{Type: "not_found", Code: appErr.Code, Message: "not found"}
	case apperr.KindInvalidState:
		return http.StatusConflict, errorPayload{Type: "invalid_state", Code: appErr.Code, Message: appErr.Message}
	case apperr.KindConflict:
		return http.StatusConflict, errorPayload{Type: "conflict", Code: appErr.Code, Message: appErr.Message}
	case apperr.KindUpstream:
		return http.StatusBadGateway, errorPayload{Type: "upstream_error", Message: "an upstream service failed, try again"}
	default:
		return http.StatusInternalServerError, internalError()
	}
}

func internalError() errorPayload {
	return errorPayload{Type: "internal_error", Message: "internal server error"}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// classifyErrorForLog returns the (type, code) logged for a failed request.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Code
	if code == "" && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}
