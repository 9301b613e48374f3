// Package models defines the data structures that map to database tables
// and the read-side projections returned by the API.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's permission level in the system.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// DefaultAvatar is assigned to accounts that never uploaded one.
const DefaultAvatar = "default-avatar.jpg"

// User is a registered account. Email and username are unique.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize the hash
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Avatar       string    `json:"avatar"`
	Bio          string    `json:"bio,omitempty"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Summary projects the public author fields. Bio is included only when
// withBio is set.
func (u *User) Summary(withBio bool) AuthorSummary {
	s := AuthorSummary{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		FullName:  u.FullName(),
		Avatar:    u.Avatar,
	}
	if withBio {
		s.Bio = u.Bio
	}
	return s
}

// AuthorSummary is the public view of a user embedded in posts and comments.
// It never carries the email or password hash.
type AuthorSummary struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	FullName  string    `json:"fullName"`
	Avatar    string    `json:"avatar"`
	Bio       string    `json:"bio,omitempty"`
}

// Profile is the account payload returned by the auth endpoints.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	FullName  string    `json:"fullName"`
	Avatar    string    `json:"avatar"`
	Bio       string    `json:"bio,omitempty"`
	Role      Role      `json:"role"`
}

// Profile returns the account payload. Bio is included only when withBio is set.
func (u *User) Profile(withBio bool) Profile {
	p := Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		FullName:  u.FullName(),
		Avatar:    u.Avatar,
		Role:      u.Role,
	}
	if withBio {
		p.Bio = u.Bio
	}
	return p
}
