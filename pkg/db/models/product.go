package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Product is a catalog listing owned by a single store.
type Product struct {
	ID                  uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID             uuid.UUID      `gorm:"column:store_id;type:uuid;not null"`
	Name                string         `gorm:"column:name;not null"`
	Description         *string        `gorm:"column:description"`
	SKU                 *string        `gorm:"column:sku"`
	Category            *string        `gorm:"column:category"`
	PriceCents          int            `gorm:"column:price_cents;not null"`
	CompareAtPriceCents *int           `gorm:"column:compare_at_price_cents"`
	Stock               int            `gorm:"column:stock;not null"`
	ImageURLs           pq.StringArray `gorm:"column:image_urls;type:text[];not null"`
	IsActive            bool           `gorm:"column:is_active;not null"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.ImageURLs == nil {
		p.ImageURLs = pq.StringArray{}
	}
	return nil
}
