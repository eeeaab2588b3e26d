package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/brewcart/brewcart-backend/pkg/enums"
)

// AccessTokenPayload is what a caller supplies to mint a token.
type AccessTokenPayload struct {
	UserID        uuid.UUID
	ActiveStoreID *uuid.UUID
	Role          enums.MemberRole
	// JTI doubles as the refresh-session key. A random one is generated when empty.
	JTI string
}

// AccessTokenClaims is the signed body of an access token.
type AccessTokenClaims struct {
	UserID        uuid.UUID        `json:"user_id"`
	ActiveStoreID *uuid.UUID       `json:"active_store_id,omitempty"`
	Role          enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}

var _ jwt.ClaimsValidator = (*AccessTokenClaims)(nil)

// Validate runs after jwt's registered-claim checks on every parse, and
// before signing, so a token can never pair a store role with no store.
func (c *AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("user id is required")
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("invalid member role %q", c.Role)
	}
	if c.Role.IsStoreRole() && (c.ActiveStoreID == nil || *c.ActiveStoreID == uuid.Nil) {
		return fmt.Errorf("store role %q requires an active store", c.Role)
	}
	return nil
}

// IsSuperAdmin reports whether the token carries the platform role.
func (c *AccessTokenClaims) IsSuperAdmin() bool {
	return c != nil && c.Role == enums.MemberRoleSuperAdmin
}
