package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
)

// AccessTokenPayload is what the caller supplies when minting. An empty JTI
// gets a random one.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	JTI    string
}

type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate is invoked by the jwt parser after exp/iat/iss checks pass.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("token carries no user id")
	}
	if !c.Role.IsValid() {
		return errors.New("token carries an unknown role")
	}
	return nil
}
