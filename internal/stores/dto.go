package stores

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
)

// StoreDTO is the admin view of a store.
type StoreDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  *string   `json:"description,omitempty"`
	LogoURL      *string   `json:"logo_url,omitempty"`
	ContactEmail *string   `json:"contact_email,omitempty"`
	ContactPhone *string   `json:"contact_phone,omitempty"`
	OwnerID      uuid.UUID `json:"owner_id"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicStoreDTO is what the storefront is allowed to see.
type PublicStoreDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  *string   `json:"description,omitempty"`
	LogoURL      *string   `json:"logo_url,omitempty"`
	ContactEmail *string   `json:"contact_email,omitempty"`
	ContactPhone *string   `json:"contact_phone,omitempty"`
}

// UpdateStoreInput is a partial update; nil fields are left alone and
// empty strings clear optional columns.
type UpdateStoreInput struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Description  *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	LogoURL      *string `json:"logo_url,omitempty" validate:"omitempty,url"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone *string `json:"contact_phone,omitempty" validate:"omitempty,e164ish"`
}

func FromModel(m *models.Store) *StoreDTO {
	if m == nil {
		return nil
	}
	return &StoreDTO{
		ID:           m.ID,
		Name:         m.Name,
		Slug:         m.Slug,
		Description:  m.Description,
		LogoURL:      m.LogoURL,
		ContactEmail: m.ContactEmail,
		ContactPhone: m.ContactPhone,
		OwnerID:      m.OwnerID,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func PublicFromModel(m *models.Store) *PublicStoreDTO {
	if m == nil {
		return nil
	}
	return &PublicStoreDTO{
		ID:           m.ID,
		Name:         m.Name,
		Slug:         m.Slug,
		Description:  m.Description,
		LogoURL:      m.LogoURL,
		ContactEmail: m.ContactEmail,
		ContactPhone: m.ContactPhone,
	}
}

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Slugify lowercases name and collapses everything outside [a-z0-9] into single dashes.
func Slugify(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "-")
	}
	return slug
}

// ValidSlug reports whether slug is already in canonical form.
func ValidSlug(slug string) bool {
	return len(slug) >= 3 && len(slug) <= 60 && slugPattern.MatchString(slug)
}

func optionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
