package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleCustomer and RoleStaff are the only principals this API serves.
// Identity itself lives in a separate service; tokens arrive already issued.
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	CustomerID uuid.UUID
	Role       string
	JTI        string
}

// AccessTokenClaims represents the typed JWT presented by clients.
type AccessTokenClaims struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Role       string    `json:"role"`
	jwt.RegisteredClaims
}
