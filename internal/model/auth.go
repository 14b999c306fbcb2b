package model

import "github.com/golang-jwt/jwt/v5"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// UserClaims are the JWT claims carried by every API caller
type UserClaims struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the caller has the admin role
func (c *UserClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
