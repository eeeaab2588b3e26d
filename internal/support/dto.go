package support

import (
	"time"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	"github.com/google/uuid"
)

type RequestDTO struct {
	ID         uuid.UUID                  `json:"id"`
	StoreID    *uuid.UUID                 `json:"store_id,omitempty"`
	UserID     *uuid.UUID                 `json:"user_id,omitempty"`
	Name       string                     `json:"name"`
	Email      string                     `json:"email"`
	Phone      *string                    `json:"phone,omitempty"`
	Subject    string                     `json:"subject"`
	Message    string                     `json:"message"`
	Status     enums.SupportRequestStatus `json:"status"`
	AdminNotes *string                    `json:"admin_notes,omitempty"`
	ResolvedAt *time.Time                 `json:"resolved_at,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
	UpdatedAt  time.Time                  `json:"updated_at"`
}

// CreateInput is the public contact form.
type CreateInput struct {
	Name    string  `json:"name" validate:"required,max=120"`
	Email   string  `json:"email" validate:"required,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,e164ish"`
	Subject string  `json:"subject" validate:"required,max=200"`
	Message string  `json:"message" validate:"required,max=5000"`
}

// UpdateInput is what platform staff can change on a request.
type UpdateInput struct {
	Status     string  `json:"status" validate:"required"`
	AdminNotes *string `json:"admin_notes,omitempty" validate:"omitempty,max=5000"`
}

func FromModel(m *models.SupportRequest) *RequestDTO {
	if m == nil {
		return nil
	}
	return &RequestDTO{
		ID:         m.ID,
		StoreID:    m.StoreID,
		UserID:     m.UserID,
		Name:       m.Name,
		Email:      m.Email,
		Phone:      m.Phone,
		Subject:    m.Subject,
		Message:    m.Message,
		Status:     m.Status,
		AdminNotes: m.AdminNotes,
		ResolvedAt: m.ResolvedAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
