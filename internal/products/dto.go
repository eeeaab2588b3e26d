package products

import (
	"time"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/google/uuid"
)

// ProductDTO is the dashboard view of a catalog row.
type ProductDTO struct {
	ID                  uuid.UUID `json:"id"`
	StoreID             uuid.UUID `json:"store_id"`
	Name                string    `json:"name"`
	Description         *string   `json:"description,omitempty"`
	SKU                 *string   `json:"sku,omitempty"`
	Category            *string   `json:"category,omitempty"`
	PriceCents          int       `json:"price_cents"`
	Price               string    `json:"price"`
	CompareAtPriceCents *int      `json:"compare_at_price_cents,omitempty"`
	Stock               int       `json:"stock"`
	ImageURLs           []string  `json:"image_urls"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// PublicProductDTO is the storefront view.
type PublicProductDTO struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Description         *string   `json:"description,omitempty"`
	Category            *string   `json:"category,omitempty"`
	PriceCents          int       `json:"price_cents"`
	Price               string    `json:"price"`
	CompareAtPriceCents *int      `json:"compare_at_price_cents,omitempty"`
	Stock               int       `json:"stock"`
	InStock             bool      `json:"in_stock"`
	ImageURLs           []string  `json:"image_urls"`
}

// CreateProductInput carries a new listing. Price may be sent as a decimal string or as cents.
type CreateProductInput struct {
	Name                string   `json:"name" validate:"required,min=1,max=200"`
	Description         *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	SKU                 *string  `json:"sku,omitempty" validate:"omitempty,max=64"`
	Category            *string  `json:"category,omitempty" validate:"omitempty,max=64"`
	Price               *string  `json:"price,omitempty"`
	PriceCents          *int     `json:"price_cents,omitempty"`
	CompareAtPrice      *string  `json:"compare_at_price,omitempty"`
	CompareAtPriceCents *int     `json:"compare_at_price_cents,omitempty"`
	Stock               int      `json:"stock" validate:"gte=0"`
	ImageURLs           []string `json:"image_urls,omitempty" validate:"omitempty,max=10,dive,url"`
	IsActive            *bool    `json:"is_active,omitempty"`
}

// UpdateProductInput is a partial update. Empty strings clear optional columns.
type UpdateProductInput struct {
	Name                *string   `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description         *string   `json:"description,omitempty" validate:"omitempty,max=5000"`
	SKU                 *string   `json:"sku,omitempty" validate:"omitempty,max=64"`
	Category            *string   `json:"category,omitempty" validate:"omitempty,max=64"`
	Price               *string   `json:"price,omitempty"`
	PriceCents          *int      `json:"price_cents,omitempty"`
	CompareAtPrice      *string   `json:"compare_at_price,omitempty"`
	CompareAtPriceCents *int      `json:"compare_at_price_cents,omitempty"`
	Stock               *int      `json:"stock,omitempty" validate:"omitempty,gte=0"`
	ImageURLs           *[]string `json:"image_urls,omitempty" validate:"omitempty,max=10,dive,url"`
	IsActive            *bool     `json:"is_active,omitempty"`
}

// ImageUpload is returned to the dashboard before it PUTs an image to storage.
type ImageUpload struct {
	UploadURL string            `json:"upload_url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	ObjectKey string            `json:"object_key"`
	PublicURL string            `json:"public_url"`
	ExpiresAt time.Time         `json:"expires_at"`
}

func FromModel(m *models.Product) *ProductDTO {
	if m == nil {
		return nil
	}
	return &ProductDTO{
		ID:                  m.ID,
		StoreID:             m.StoreID,
		Name:                m.Name,
		Description:         m.Description,
		SKU:                 m.SKU,
		Category:            m.Category,
		PriceCents:          m.PriceCents,
		Price:               FormatCents(m.PriceCents),
		CompareAtPriceCents: m.CompareAtPriceCents,
		Stock:               m.Stock,
		ImageURLs:           imageURLs(m),
		IsActive:            m.IsActive,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func PublicFromModel(m *models.Product) *PublicProductDTO {
	if m == nil {
		return nil
	}
	return &PublicProductDTO{
		ID:                  m.ID,
		Name:                m.Name,
		Description:         m.Description,
		Category:            m.Category,
		PriceCents:          m.PriceCents,
		Price:               FormatCents(m.PriceCents),
		CompareAtPriceCents: m.CompareAtPriceCents,
		Stock:               m.Stock,
		InStock:             m.Stock > 0,
		ImageURLs:           imageURLs(m),
	}
}

func imageURLs(m *models.Product) []string {
	if len(m.ImageURLs) == 0 {
		return []string{}
	}
	return append([]string(nil), m.ImageURLs...)
}
