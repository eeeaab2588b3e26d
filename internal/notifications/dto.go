package notifications

import (
	"time"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/google/uuid"
)

type NotificationDTO struct {
	ID        uuid.UUID              `json:"id"`
	StoreID   uuid.UUID              `json:"store_id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Link      *string                `json:"link,omitempty"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func FromModel(m models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        m.ID,
		StoreID:   m.StoreID,
		Type:      m.Type,
		Title:     m.Title,
		Message:   m.Message,
		Link:      m.Link,
		ReadAt:    m.ReadAt,
		CreatedAt: m.CreatedAt,
	}
}
