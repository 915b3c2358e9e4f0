package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried by access tokens. Subject is the user's uuid.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

type Authenticator interface {
	GenerateToken(userID uuid.UUID, role string) (string, error)
	ValidateToken(token string) (*Claims, error)
}
