package auth

import (
	"context"
	"testing"

	"github.com/brewcart/brewcart-backend/internal/settings"
	"github.com/brewcart/brewcart-backend/pkg/db"
	"github.com/brewcart/brewcart-backend/pkg/db/dbtest"
	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/security"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newRegisterService(t *testing.T) (RegisterService, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	txr := db.FromGorm(conn)
	settingsSvc, err := settings.NewService(settings.ServiceParams{
		Tx:     txr,
		Repo:   settings.NewRepository(conn),
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)
	svc, err := NewRegisterService(RegisterServiceParams{Tx: txr, Settings: settingsSvc, PasswordConfig: testPassword})
	require.NoError(t, err)
	return svc, conn
}

func registerRequest(email, store string) RegisterRequest {
	return RegisterRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  "analytical-engine-1",
		StoreName: store,
	}
}

func TestRegisterCreatesStoreAndOwner(t *testing.T) {
	svc, conn := newRegisterService(t)

	resp, err := svc.Register(context.Background(), registerRequest("Ada@Example.com", "Ada's Coffee & Tea!"))
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", resp.User.Email)
	require.Equal(t, "ada-s-coffee-tea", resp.Store.Slug)
	require.True(t, resp.Store.IsActive)
	require.Equal(t, resp.User.ID, resp.Store.OwnerID)

	var user models.User
	require.NoError(t, conn.First(&user, "id = ?", resp.User.ID).Error)
	ok, err := security.VerifyPassword("analytical-engine-1", user.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	var membership models.StoreMembership
	require.NoError(t, conn.First(&membership, "user_id = ? AND store_id = ?", resp.User.ID, resp.Store.ID).Error)
	require.Equal(t, enums.MemberRoleOwner, membership.Role)

	var row models.StoreSettings
	require.NoError(t, conn.First(&row, "store_id = ?", resp.Store.ID).Error)
	require.Equal(t, settings.DefaultCurrency, row.Currency)
}

func TestRegisterConflicts(t *testing.T) {
	svc, conn := newRegisterService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, registerRequest("ada@example.com", "Roast House"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerRequest("ADA@example.com", "Other Name"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "duplicate email")

	_, err = svc.Register(ctx, registerRequest("grace@example.com", "Roast House"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "duplicate slug")

	var stores int64
	require.NoError(t, conn.Model(&models.Store{}).Count(&stores).Error)
	require.EqualValues(t, 1, stores)
	var users int64
	require.NoError(t, conn.Model(&models.User{}).Count(&users).Error)
	require.EqualValues(t, 1, users)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newRegisterService(t)
	ctx := context.Background()

	weak := registerRequest("weak@example.com", "Weak Store")
	weak.Password = "short"
	_, err := svc.Register(ctx, weak)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	badSlug := registerRequest("slug@example.com", "Slug Store")
	bad := "No Spaces Allowed"
	badSlug.StoreSlug = &bad
	_, err = svc.Register(ctx, badSlug)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	custom := registerRequest("custom@example.com", "Custom Store")
	slug := "my-beans"
	custom.StoreSlug = &slug
	resp, err := svc.Register(ctx, custom)
	require.NoError(t, err)
	require.Equal(t, "my-beans", resp.Store.Slug)
}
