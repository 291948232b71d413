package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload attached by the upstream auth layer.
// StudentID is set for student tokens and identifies the requesting subject
// when resolving "my rank" lookups.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	StudentID string   `json:"student_id,omitempty"`
	jwt.RegisteredClaims
}
