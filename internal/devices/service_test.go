package devices

import (
	"context"
	"testing"

	"github.com/brewcart/brewcart-backend/pkg/db/dbtest"
	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegisterRebindsExistingToken(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	storeA, storeB, user := uuid.New(), uuid.New(), uuid.New()
	first, err := svc.Register(ctx, storeA, user, RegisterInput{Token: "tok-1", Platform: "Android"})
	require.NoError(t, err)
	require.Equal(t, enums.DevicePlatformAndroid, first.Platform)

	second, err := svc.Register(ctx, storeB, user, RegisterInput{Token: " tok-1 ", Platform: "web"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, storeB, second.StoreID)

	var rows []models.DeviceToken
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, storeB, rows[0].StoreID)
	require.Equal(t, enums.DevicePlatformWeb, rows[0].Platform)

	listed, err := repo.ListForStore(ctx, storeA)
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestRegisterValidates(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Register(ctx, uuid.Nil, uuid.New(), RegisterInput{Token: "t", Platform: "ios"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Register(ctx, uuid.New(), uuid.New(), RegisterInput{Token: "  ", Platform: "ios"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Register(ctx, uuid.New(), uuid.New(), RegisterInput{Token: "t", Platform: "blackberry"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUnregisterOnlyOwnTokens(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	ctx := context.Background()

	owner := uuid.New()
	_, err = svc.Register(ctx, uuid.New(), owner, RegisterInput{Token: "tok", Platform: "ios"})
	require.NoError(t, err)

	err = svc.Unregister(ctx, uuid.New(), "tok")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, svc.Unregister(ctx, owner, "tok"))
	err = svc.Unregister(ctx, owner, "tok")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
