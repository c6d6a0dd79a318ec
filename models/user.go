package models

import "time"

// Identity represents the signed-in principal. The password hash never leaves
// the server; client-side copies carry an empty PasswordHash.
type Identity struct {
	ID           string    `json:"id" gorm:"column:id;primaryKey"`
	Email        string    `json:"email" gorm:"column:email;uniqueIndex"`
	FirstName    string    `json:"first_name" gorm:"column:first_name"`
	LastName     string    `json:"last_name" gorm:"column:last_name"`
	Role         Role      `json:"role" gorm:"column:role"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	Settings     []byte    `json:"-" gorm:"column:settings"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Identity) TableName() string { return "users" }

// DisplayName joins first and last name, falling back to the email address.
func (u Identity) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Email
	}
}

// Sanitized returns a copy safe for persistence or wire transfer: password
// material and the opaque settings document are stripped.
func (u Identity) Sanitized() Identity {
	u.PasswordHash = ""
	u.Settings = nil
	return u
}
