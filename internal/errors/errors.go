package errors

import (
	"fmt"
	"net/http"
)

// APIError is the error shape every handler responds with. Internal is
// never serialized; it only feeds the server log.
type APIError struct {
	Status   int    `json:"-"`
	Message  string `json:"error"`
	Internal error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Internal
}

func New(status int, message string, err error) *APIError {
	return &APIError{Status: status, Message: message, Internal: err}
}

func BadRequest(message string, err error) *APIError {
	return New(http.StatusBadRequest, message, err)
}

func Unauthorized(message string, err error) *APIError {
	return New(http.StatusUnauthorized, message, err)
}

func Forbidden(message string, err error) *APIError {
	return New(http.StatusForbidden, message, err)
}

func NotFound(message string, err error) *APIError {
	return New(http.StatusNotFound, message, err)
}

// Unavailable marks a transient storage/network failure. Callers may
// retry with backoff; best-effort cleanup paths swallow it instead.
func Unavailable(message string, err error) *APIError {
	return New(http.StatusServiceUnavailable, message, err)
}

func Internal(err error) *APIError {
	return New(http.StatusInternalServerError, "Internal server error", err)
}

func NewValidationError(err error) *APIError {
	return New(http.StatusBadRequest, "Invalid input", err)
}

// ConflictError reports a rejected optimistic write. LocalVersion is
// what the caller last observed, ServerVersion what the store holds.
// It is a distinct type so UI and batch-executor logic can branch on it
// instead of parsing a failure string.
type ConflictError struct {
	ShapeID          string `json:"shape_id"`
	LocalVersion     uint64 `json:"local_version"`
	ServerVersion    uint64 `json:"server_version"`
	LastEditedBy     string `json:"last_edited_by"`
	LastEditedByName string `json:"last_edited_by_name,omitempty"`
}

func (e *ConflictError) Error() string {
	who := e.LastEditedByName
	if who == "" {
		who = e.LastEditedBy
	}
	return fmt.Sprintf(
		"shape %s was changed by %s while you were editing (your version %d, server version %d)",
		e.ShapeID, who, e.LocalVersion, e.ServerVersion,
	)
}
