package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tobimartins/servicehub-backend/pkg/enums"
)

// AccessTokenPayload is the input used to mint a token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims is the typed JWT claim set carried by API callers.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"uid"`
	Email  string         `json:"email,omitempty"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
