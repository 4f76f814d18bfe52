package models

import (
	"strings"
	"time"
)

// Role is the authorization level stored on a user account
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleAnalyst  Role = "ANALYST"
	RoleCustomer Role = "CUSTOMER"
)

// ParseRole normalizes s and reports whether it names a known role
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RoleAnalyst, RoleCustomer:
		return r, true
	}
	return "", false
}

// User represents an account in the system
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Not serialized
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the authenticated actor of a single request.
// It is rebuilt from the token and the user store on every request.
type Principal struct {
	UserID   int64
	Username string
	Role     Role
	Active   bool
}

// PrincipalFromUser builds the request principal for u
func PrincipalFromUser(u *User) Principal {
	return Principal{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		Active:   u.Active,
	}
}
