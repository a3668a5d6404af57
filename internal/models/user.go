package models

import "github.com/golang-jwt/jwt/v5"

// AdminSubject is the only principal this console knows about.
const AdminSubject = "admin"

// Claims defines the structure of the JWT claims.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
