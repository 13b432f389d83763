package auth

import (
	"github.com/craftmeals/preorder-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Role   enums.MemberRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT accepted from clients. Tokens
// are minted by the identity provider; the API only verifies them.
type AccessTokenClaims struct {
	UserID uuid.UUID        `json:"user_id"`
	Email  string           `json:"email"`
	Name   string           `json:"name,omitempty"`
	Role   enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
