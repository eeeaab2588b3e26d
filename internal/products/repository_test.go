package products

import (
	"context"
	"testing"

	"github.com/brewcart/brewcart-backend/pkg/db/dbtest"
	"github.com/brewcart/brewcart-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDecrementStockIsConditional(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	storeID := uuid.New()
	p := &models.Product{StoreID: storeID, Name: "Beans", PriceCents: 900, Stock: 2, IsActive: true}
	require.NoError(t, conn.Create(p).Error)

	_, ok, err := repo.DecrementStock(ctx, storeID, p.ID, 3)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = repo.DecrementStock(ctx, uuid.New(), p.ID, 1)
	require.NoError(t, err)
	require.False(t, ok)

	left, ok, err := repo.DecrementStock(ctx, storeID, p.ID, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, left)

	require.NoError(t, repo.ReleaseStock(ctx, p.ID, 5))
	reloaded, err := repo.FindByID(ctx, storeID, p.ID)
	require.NoError(t, err)
	require.Equal(t, 5, reloaded.Stock)
}

func TestAdjustStockReturnsRemaining(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	storeID := uuid.New()
	p := &models.Product{StoreID: storeID, Name: "Beans", PriceCents: 900, Stock: 4, IsActive: true}
	require.NoError(t, conn.Create(p).Error)

	left, ok, err := repo.AdjustStock(ctx, storeID, p.ID, 6)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 10, left)

	left, ok, err = repo.AdjustStock(ctx, storeID, p.ID, -11)
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, left)

	left, ok, err = repo.AdjustStock(ctx, storeID, p.ID, -7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, left)
}

func TestFindActiveForCheckoutOrdersByID(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	storeID := uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		p := &models.Product{StoreID: storeID, Name: "P", PriceCents: 100, Stock: 1, IsActive: i != 1}
		require.NoError(t, conn.Create(p).Error)
		ids = append(ids, p.ID)
	}

	rows, err := repo.FindActiveForCheckout(context.Background(), storeID, ids)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Less(t, rows[0].ID.String(), rows[1].ID.String())
}

func TestParsePriceCents(t *testing.T) {
	got, err := ParsePriceCents("price", strPtr(" 3.5 "), nil)
	require.NoError(t, err)
	require.Equal(t, 350, *got)

	got, err = ParsePriceCents("price", nil, nil)
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = ParsePriceCents("price", strPtr("1.999"), nil)
	require.Error(t, err)

	_, err = ParsePriceCents("price", nil, intPtr(-1))
	require.Error(t, err)

	require.Equal(t, "0.05", FormatCents(5))
}
