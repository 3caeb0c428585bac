package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for route guarding.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// JWTClaims represents the access-token payload issued by the external
// authentication service. This service only validates tokens; it never
// issues them.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	SchoolID string   `json:"school_id"`
	Role     UserRole `json:"role"`
	jwt.RegisteredClaims
}
