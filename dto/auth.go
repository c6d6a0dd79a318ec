package dto

import "github.com/opsdesk/opsdesk/models"

// ErrorResponse is the error envelope every endpoint returns on failure.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the authenticated identity and its bearer token.
type LoginResponse struct {
	User  models.Identity `json:"user"`
	Token string          `json:"token"`
}
