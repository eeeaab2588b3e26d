package devices

import (
	"context"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists FCM registration tokens.
type Repository interface {
	Upsert(ctx context.Context, device *models.DeviceToken) error
	DeleteForUser(ctx context.Context, userID uuid.UUID, token string) (int64, error)
	DeleteTokens(ctx context.Context, tokens []string) (int64, error)
	ListForStore(ctx context.Context, storeID uuid.UUID) ([]models.DeviceToken, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Upsert inserts the token or re-binds an existing one to the given store and user.
func (r *repository) Upsert(ctx context.Context, device *models.DeviceToken) error {
	if device.LastSeenAt.IsZero() {
		device.LastSeenAt = time.Now().UTC()
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"store_id", "user_id", "platform", "last_seen_at"}),
		}).
		Create(device).Error
	if err != nil {
		return err
	}
	// on conflict the generated id was discarded; reload the surviving row
	return r.db.WithContext(ctx).Where("token = ?", device.Token).First(device).Error
}

func (r *repository) DeleteForUser(ctx context.Context, userID uuid.UUID, token string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&models.DeviceToken{})
	return result.RowsAffected, result.Error
}

func (r *repository) DeleteTokens(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("token IN ?", tokens).Delete(&models.DeviceToken{})
	return result.RowsAffected, result.Error
}

func (r *repository) ListForStore(ctx context.Context, storeID uuid.UUID) ([]models.DeviceToken, error) {
	var rows []models.DeviceToken
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("last_seen_at DESC").
		Find(&rows).Error
	return rows, err
}
