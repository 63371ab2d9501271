package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents the JWT claims accepted by the risk engine.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"user_id"`
	Roles  []string  `json:"roles"`
}

// HasRole checks if the claims include the specified role.
func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// HasAnyRole reports whether at least one of roles is present.
func (c Claims) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if c.HasRole(r) {
			return true
		}
	}
	return false
}

// CanAccessUser reports whether the caller may read data belonging to userID.
// Staff and service roles see everyone; patients see only themselves.
func (c Claims) CanAccessUser(userID uuid.UUID) bool {
	if c.HasAnyRole(RoleAdmin, RoleClinician, RoleService) {
		return true
	}
	return c.HasRole(RolePatient) && c.UserID == userID
}

// Role constants
const (
	RoleAdmin     = "admin"
	RoleClinician = "clinician"
	RolePatient   = "patient"
	RoleService   = "service"
)
