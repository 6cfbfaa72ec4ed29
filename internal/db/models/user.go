// Package models - user.go defines the User model for platform accounts with
// email, display name, and the OIDC subject supplied by the external
// authentication provider.
package models

import "time"

// User represents a user in the system
type User struct {
	ID        string
	Email     string
	Name      string
	OIDCSub   *string // OIDC subject identifier (unique per provider)
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicIdentity is the minimal user identity exposed alongside memberships.
type PublicIdentity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Public returns the user's public identity fields.
func (u *User) Public() PublicIdentity {
	return PublicIdentity{ID: u.ID, Email: u.Email, Name: u.Name}
}
