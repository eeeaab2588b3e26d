package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
)

// UserDTO is the public view of a dashboard account. It never carries the
// password hash.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       *string    `json:"phone,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateUserDTO is what registration hands the repository; the password is
// already hashed.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	dto := UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
	return &dto
}

// newUser normalizes the input; accounts start active.
func (c CreateUserDTO) newUser() *models.User {
	u := &models.User{
		Email:        NormalizeEmail(c.Email),
		PasswordHash: c.PasswordHash,
		FirstName:    strings.TrimSpace(c.FirstName),
		LastName:     strings.TrimSpace(c.LastName),
		IsActive:     true,
	}
	if c.Phone != nil {
		if p := strings.TrimSpace(*c.Phone); p != "" {
			u.Phone = &p
		}
	}
	return u
}
