package devices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/google/uuid"
)

const maxTokenLength = 4096

type RegisterInput struct {
	Token    string `json:"token" validate:"required,max=4096"`
	Platform string `json:"platform" validate:"required"`
}

type DeviceDTO struct {
	ID         uuid.UUID            `json:"id"`
	StoreID    uuid.UUID            `json:"store_id"`
	Platform   enums.DevicePlatform `json:"platform"`
	LastSeenAt time.Time            `json:"last_seen_at"`
}

// Service manages the push tokens of store staff.
type Service interface {
	Register(ctx context.Context, storeID, userID uuid.UUID, input RegisterInput) (*DeviceDTO, error)
	Unregister(ctx context.Context, userID uuid.UUID, token string) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("device repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Register(ctx context.Context, storeID, userID uuid.UUID, input RegisterInput) (*DeviceDTO, error) {
	if storeID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "active store and user required")
	}
	token := strings.TrimSpace(input.Token)
	if token == "" || len(token) > maxTokenLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	platform, err := enums.ParseDevicePlatform(strings.ToLower(strings.TrimSpace(input.Platform)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid platform")
	}

	device := &models.DeviceToken{
		StoreID:    storeID,
		UserID:     userID,
		Token:      token,
		Platform:   platform,
		LastSeenAt: s.now(),
	}
	if err := s.repo.Upsert(ctx, device); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register device")
	}
	return &DeviceDTO{ID: device.ID, StoreID: storeID, Platform: platform, LastSeenAt: device.LastSeenAt}, nil
}

func (s *service) Unregister(ctx context.Context, userID uuid.UUID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	n, err := s.repo.DeleteForUser(ctx, userID, token)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unregister device")
	}
	if n == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "device not found")
	}
	return nil
}
