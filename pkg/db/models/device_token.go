package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brewcart/brewcart-backend/pkg/enums"
)

// DeviceToken is an FCM registration token for a staff member's device.
type DeviceToken struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID    uuid.UUID            `gorm:"column:store_id;type:uuid;not null"`
	UserID     uuid.UUID            `gorm:"column:user_id;type:uuid;not null"`
	Token      string               `gorm:"column:token;not null;uniqueIndex"`
	Platform   enums.DevicePlatform `gorm:"column:platform;type:device_platform;not null"`
	LastSeenAt time.Time            `gorm:"column:last_seen_at;not null"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (d *DeviceToken) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
