package auth

import (
	"github.com/brewcart/brewcart-backend/internal/stores"
	"github.com/brewcart/brewcart-backend/internal/users"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/google/uuid"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// StoreSummary describes a store the user can act on.
type StoreSummary struct {
	ID     uuid.UUID        `json:"id"`
	Name   string           `json:"name"`
	Slug   string           `json:"slug"`
	Active bool             `json:"active"`
	Role   enums.MemberRole `json:"role"`
}

// LoginResponse contains the tokens, user, and store list produced by a successful login.
type LoginResponse struct {
	AccessToken   string           `json:"access_token"`
	RefreshToken  string           `json:"refresh_token"`
	Role          enums.MemberRole `json:"role"`
	ActiveStoreID *uuid.UUID       `json:"active_store_id,omitempty"`
	Stores        []StoreSummary   `json:"stores"`
	User          *users.UserDTO   `json:"user"`
}

// TokenPair is returned by refresh and store switching.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterRequest onboards a store owner together with their store.
type RegisterRequest struct {
	FirstName string  `json:"first_name" validate:"required,max=80"`
	LastName  string  `json:"last_name" validate:"required,max=80"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,e164ish"`
	StoreName string  `json:"store_name" validate:"required,min=2,max=120"`
	StoreSlug *string `json:"store_slug,omitempty" validate:"omitempty,max=60"`
}

// RegisterResponse is what the dashboard needs right after sign-up.
type RegisterResponse struct {
	User  *users.UserDTO   `json:"user"`
	Store *stores.StoreDTO `json:"store"`
}
