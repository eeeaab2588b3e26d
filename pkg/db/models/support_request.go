package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brewcart/brewcart-backend/pkg/enums"
)

// SupportRequest is a help ticket raised by a merchant or a storefront visitor.
type SupportRequest struct {
	ID         uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID    *uuid.UUID                 `gorm:"column:store_id;type:uuid"`
	UserID     *uuid.UUID                 `gorm:"column:user_id;type:uuid"`
	Name       string                     `gorm:"column:name;not null"`
	Email      string                     `gorm:"column:email;not null"`
	Phone      *string                    `gorm:"column:phone"`
	Subject    string                     `gorm:"column:subject;not null"`
	Message    string                     `gorm:"column:message;not null"`
	Status     enums.SupportRequestStatus `gorm:"column:status;type:support_request_status;not null"`
	AdminNotes *string                    `gorm:"column:admin_notes"`
	ResolvedAt *time.Time                 `gorm:"column:resolved_at"`
	CreatedAt  time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *SupportRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
