package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SuperAdmin grants platform-wide access to a user.
type SuperAdmin struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (s *SuperAdmin) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
