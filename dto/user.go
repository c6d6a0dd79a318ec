package dto

import (
	"encoding/json"
	"time"

	"github.com/opsdesk/opsdesk/models"
)

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	DisplayName string      `json:"display_name"`
	Role        models.Role `json:"role"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// FromIdentity converts a models.Identity to UserResponse.
func FromIdentity(u *models.Identity) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DisplayName: u.DisplayName(),
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// FromIdentities converts a slice of models.Identity to UserResponse values.
func FromIdentities(users []*models.Identity) []UserResponse {
	responses := make([]UserResponse, len(users))
	for i, u := range users {
		responses[i] = FromIdentity(u)
	}
	return responses
}

// UpdateUserRequest is a partial identity update; nil fields are left as-is.
type UpdateUserRequest struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Role      *string `json:"role,omitempty"`
}

// ChangePasswordRequest is the payload for PUT /users/:id/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// SettingsDocument is the opaque per-user settings blob stored server-side.
type SettingsDocument = json.RawMessage
