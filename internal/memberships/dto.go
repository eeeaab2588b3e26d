package memberships

import (
	"time"

	"github.com/google/uuid"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
)

// MembershipWithStore includes basic store metadata plus membership info.
type MembershipWithStore struct {
	MembershipID uuid.UUID        `json:"membership_id"`
	StoreID      uuid.UUID        `json:"store_id"`
	UserID       uuid.UUID        `json:"user_id"`
	StoreName    string           `json:"store_name"`
	StoreSlug    string           `json:"store_slug"`
	StoreActive  bool             `json:"store_active"`
	Role         enums.MemberRole `json:"role"`
	CreatedAt    time.Time        `json:"created_at"`
}

type membershipWithStoreRow struct {
	models.StoreMembership
	StoreName   string `gorm:"column:store_name"`
	StoreSlug   string `gorm:"column:store_slug"`
	StoreActive bool   `gorm:"column:store_active"`
}

func (row membershipWithStoreRow) toDTO() MembershipWithStore {
	return MembershipWithStore{
		MembershipID: row.ID,
		StoreID:      row.StoreID,
		UserID:       row.UserID,
		StoreName:    row.StoreName,
		StoreSlug:    row.StoreSlug,
		StoreActive:  row.StoreActive,
		Role:         row.Role,
		CreatedAt:    row.CreatedAt,
	}
}
