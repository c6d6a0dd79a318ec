package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/opsdesk/opsdesk/models"
)

// AuthorizationError is raised before any network attempt when the current
// identity does not satisfy a request's required role.
type AuthorizationError struct {
	Required models.Role
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization: %s role required", e.Required)
}

// NetworkError wraps a transport-level failure where no HTTP response was
// received. Only these failures are eligible for retry and for the
// local-to-production fallback.
type NetworkError struct {
	Backend Backend
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s backend unreachable: %v", e.Backend, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError carries a non-2xx HTTP response. It is never retried and never
// triggers backend fallback.
type ServerError struct {
	Backend Backend
	Status  int
	Code    string
	Message string
	Body    json.RawMessage
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("server: status %d from %s backend", e.Status, e.Backend)
}

// serverErrorFromBody builds a ServerError, extracting the standard error
// envelope when the body parses as one.
func serverErrorFromBody(backend Backend, status int, body []byte) *ServerError {
	se := &ServerError{Backend: backend, Status: status, Body: body}
	var envelope struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		se.Code = envelope.Error
		se.Message = envelope.Description
		if se.Message == "" {
			se.Message = envelope.Error
		}
	}
	return se
}
