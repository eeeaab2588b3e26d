package support

import (
	"context"
	"testing"

	"github.com/brewcart/brewcart-backend/pkg/db"
	"github.com/brewcart/brewcart-backend/pkg/db/dbtest"
	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/brewcart/brewcart-backend/pkg/enums"
	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/brewcart/brewcart-backend/pkg/outbox"
	"github.com/brewcart/brewcart-backend/pkg/pagination"
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

func seedStore(t *testing.T, conn *gorm.DB, slug string) uuid.UUID {
	t.Helper()
	store := &models.Store{Name: slug, Slug: slug, OwnerID: uuid.New(), IsActive: true}
	require.NoError(t, conn.Create(store).Error)
	return store.ID
}

func contactForm() CreateInput {
	return CreateInput{
		Name:    "Grace",
		Email:   "Grace@Example.com",
		Subject: "Payout question",
		Message: "When do payouts land?",
	}
}

func countEvents(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func TestCreateValidatesAndEmits(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	req, err := svc.Create(ctx, Requester{}, contactForm())
	require.NoError(t, err)
	require.Equal(t, enums.SupportRequestStatusOpen, req.Status)
	require.Equal(t, "grace@example.com", req.Email)
	require.Nil(t, req.StoreID)
	require.EqualValues(t, 1, countEvents(t, conn, enums.EventSupportRequestCreated))

	bad := contactForm()
	bad.Email = "nope"
	bad.Subject = " "
	phone := "abc"
	bad.Phone = &phone
	_, err = svc.Create(ctx, Requester{}, bad)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]any)
	require.Contains(t, details, "email")
	require.Contains(t, details, "subject")
	require.Contains(t, details, "phone")
}

func TestListScopesByStoreAndStatus(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	storeA := seedStore(t, conn, "store-a")
	storeB := seedStore(t, conn, "store-b")

	_, err := svc.Create(ctx, Requester{StoreID: &storeA}, contactForm())
	require.NoError(t, err)
	_, err = svc.Create(ctx, Requester{StoreID: &storeB}, contactForm())
	require.NoError(t, err)
	anon, err := svc.Create(ctx, Requester{}, contactForm())
	require.NoError(t, err)

	page, err := svc.ListForStore(ctx, storeA, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, storeA, *page.Items[0].StoreID)

	all, err := svc.ListAll(ctx, "", pagination.Params{})
	require.NoError(t, err)
	require.Len(t, all.Items, 3)

	_, err = svc.Update(ctx, outbox.ActorRef{Role: string(enums.MemberRoleSuperAdmin)}, anon.ID, UpdateInput{Status: "closed"})
	require.NoError(t, err)
	open, err := svc.ListAll(ctx, "open", pagination.Params{})
	require.NoError(t, err)
	require.Len(t, open.Items, 2)

	_, err = svc.ListAll(ctx, "bogus", pagination.Params{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.ListAll(ctx, "", pagination.Params{Cursor: "%%%"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateTracksResolution(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	storeID := seedStore(t, conn, "store-a")
	actor := outbox.ActorRef{Role: string(enums.MemberRoleSuperAdmin)}

	created, err := svc.Create(ctx, Requester{StoreID: &storeID}, contactForm())
	require.NoError(t, err)

	notes := "  Payouts go out on Fridays. "
	resolved, err := svc.Update(ctx, actor, created.ID, UpdateInput{Status: "resolved", AdminNotes: &notes})
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	require.Equal(t, "Payouts go out on Fridays.", *resolved.AdminNotes)
	require.EqualValues(t, 1, countEvents(t, conn, enums.EventSupportRequestUpdated))

	again, err := svc.Update(ctx, actor, created.ID, UpdateInput{Status: "resolved"})
	require.NoError(t, err)
	require.Equal(t, resolved.ResolvedAt.Unix(), again.ResolvedAt.Unix())
	require.EqualValues(t, 1, countEvents(t, conn, enums.EventSupportRequestUpdated), "no event without a status change")

	reopened, err := svc.Update(ctx, actor, created.ID, UpdateInput{Status: "in_progress"})
	require.NoError(t, err)
	require.Nil(t, reopened.ResolvedAt)
	require.Equal(t, "Payouts go out on Fridays.", *reopened.AdminNotes)

	_, err = svc.Update(ctx, actor, uuid.New(), UpdateInput{Status: "closed"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.Update(ctx, actor, created.ID, UpdateInput{Status: "done"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateAnonymousRequestDoesNotEmit(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, Requester{}, contactForm())
	require.NoError(t, err)
	_, err = svc.Update(ctx, outbox.ActorRef{}, created.ID, UpdateInput{Status: "closed"})
	require.NoError(t, err)
	require.Zero(t, countEvents(t, conn, enums.EventSupportRequestUpdated))
}
