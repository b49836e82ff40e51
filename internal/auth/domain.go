package auth

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of capabilities an account can hold. Roles are flat;
// there is no ordering or inheritance between them.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleSales    Role = "SALES"
	RoleCustomer Role = "CUSTOMER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSales, RoleCustomer:
		return true
	}
	return false
}

// In reports whether r is one of allowed.
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// User represents an authenticated user account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the identity attached to a request after the bearer token has
// been verified.
type Principal struct {
	ID   uuid.UUID
	Role Role
}
