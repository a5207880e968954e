package apierror

import (
	"fmt"
	"net/http"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// BadRequest reports invalid or missing client input.
func BadRequest(message string, details string) *APIError {
	return New("BAD_REQUEST", message, details, http.StatusBadRequest)
}

func Unauthorized(message string) *APIError {
	return New("UNAUTHORIZED", message, "", http.StatusUnauthorized)
}

func Forbidden(message string) *APIError {
	return New("FORBIDDEN", message, "", http.StatusForbidden)
}

func NotFound(message string, details string) *APIError {
	return New("NOT_FOUND", message, details, http.StatusNotFound)
}

func Conflict(message string, details string) *APIError {
	return New("CONFLICT", message, details, http.StatusConflict)
}
