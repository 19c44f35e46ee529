package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles recognised in bearer tokens.
type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleCollector UserRole = "collector"
	RoleCitizen   UserRole = "citizen"
)

// IsStaff reports whether the role may act on any complaint.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleCollector
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor identifies who performs an operation.
type Actor struct {
	ID   string
	Role UserRole
}

// ActorFromClaims maps validated token claims to an actor.
func ActorFromClaims(c *JWTClaims) Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{ID: c.UserID, Role: c.Role}
}

// SystemActor is used for maintenance writes not initiated by a user.
var SystemActor = Actor{ID: "system", Role: RoleAdmin}
