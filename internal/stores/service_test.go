package stores

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/brewcart/brewcart-backend/pkg/db"
	"github.com/brewcart/brewcart-backend/pkg/db/dbtest"
	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(db.FromGorm(conn), NewRepository(conn), outbox.NewService(outbox.NewRepository(conn), nil))
	require.NoError(t, err)
	return svc, conn
}

func seedStore(t *testing.T, conn *gorm.DB, slug string, active bool) *models.Store {
	t.Helper()
	store := &models.Store{Name: "Roast House", Slug: slug, OwnerID: uuid.New(), IsActive: active}
	require.NoError(t, conn.Create(store).Error)
	return store
}

func TestNewServiceRequiresDeps(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	require.Error(t, err)
}

func TestGetPublicBySlugHidesInactive(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	seedStore(t, conn, "roast-house", true)
	seedStore(t, conn, "closed-shop", false)

	dto, err := svc.GetPublicBySlug(ctx, "Roast-House")
	require.NoError(t, err)
	require.Equal(t, "Roast House", dto.Name)

	_, err = svc.GetPublicBySlug(ctx, "closed-shop")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.GetPublicBySlug(ctx, "nope")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateMyStoreAppliesPatchAndEmits(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	store := seedStore(t, conn, "roast-house", true)
	desc := "old"
	require.NoError(t, conn.Model(store).UpdateColumn("description", desc).Error)

	name := "  Roast House Downtown "
	clear := ""
	email := "hello@roast.test"
	dto, err := svc.UpdateMyStore(ctx, outbox.ActorRef{StoreID: &store.ID, Role: "owner"}, store.ID, UpdateStoreInput{
		Name:         &name,
		Description:  &clear,
		ContactEmail: &email,
	})
	require.NoError(t, err)
	require.Equal(t, "Roast House Downtown", dto.Name)
	require.Nil(t, dto.Description)
	require.Equal(t, email, *dto.ContactEmail)

	var reloaded models.Store
	require.NoError(t, conn.First(&reloaded, "id = ?", store.ID).Error)
	require.Nil(t, reloaded.Description)
	require.Equal(t, "Roast House Downtown", reloaded.Name)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventStoreUpdated, events[0].EventType)

	envelope, _, err := outbox.DecodeEnvelope(events[0].Payload)
	require.NoError(t, err)
	var data payloads.StoreUpdatedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	require.Equal(t, store.ID, data.StoreID)
}

func TestUpdateMyStoreRejectsBlankName(t *testing.T) {
	svc, conn := newTestService(t)
	store := seedStore(t, conn, "roast-house", true)
	blank := "  "
	_, err := svc.UpdateMyStore(context.Background(), outbox.ActorRef{}, store.ID, UpdateStoreInput{Name: &blank})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.UpdateMyStore(context.Background(), outbox.ActorRef{}, uuid.New(), UpdateStoreInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRepositorySetActive(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	store := seedStore(t, conn, "roast-house", true)

	updated, err := repo.SetActive(context.Background(), store.ID, false)
	require.NoError(t, err)
	require.False(t, updated.IsActive)

	_, err = repo.SetActive(context.Background(), uuid.New(), true)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	exists, err := repo.SlugExists(context.Background(), "roast-house")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "bean-there-done-that", Slugify("  Bean There, Done That!! "))
	require.Equal(t, "caf-42", Slugify("Café 42"))
	require.True(t, ValidSlug("bean-there"))
	require.False(t, ValidSlug("-bad"))
	require.False(t, ValidSlug("ab"))
}
