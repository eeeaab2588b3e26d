package checkout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
)

func TestValidPhone(t *testing.T) {
	for _, ok := range []string{"+15550100200", "555-010-0200", "+44 (20) 7946 0958", " 0612345678 "} {
		require.True(t, ValidPhone(ok), ok)
	}
	for _, bad := range []string{"", "12345", "call me", "+1 555 010 0200 ext 5", "++15550100"} {
		require.False(t, ValidPhone(bad), bad)
	}
}

func TestMergeLinesFoldsDuplicatesAndSorts(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	out, err := MergeLines([]Line{{ProductID: a, Quantity: 1}, {ProductID: b, Quantity: 2}, {ProductID: a, Quantity: 3}}, 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Less(t, out[0].ProductID.String(), out[1].ProductID.String())

	byID := map[uuid.UUID]int{}
	for _, l := range out {
		byID[l.ProductID] = l.Quantity
	}
	require.Equal(t, 4, byID[a])
	require.Equal(t, 2, byID[b])
}

func TestMergeLinesRejectsBadInput(t *testing.T) {
	_, err := MergeLines(nil, 10)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = MergeLines([]Line{{ProductID: uuid.New(), Quantity: 0}}, 10)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]any)
	require.Len(t, details["items"], 1)

	_, err = MergeLines([]Line{{Quantity: 1}}, 10)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = MergeLines([]Line{{ProductID: uuid.New(), Quantity: 1}, {ProductID: uuid.New(), Quantity: 1}}, 1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMergeLinesCapsQuantity(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	out, err := MergeLines([]Line{{ProductID: a, Quantity: MaxLineQuantity}}, 10)
	require.NoError(t, err)
	require.Equal(t, MaxLineQuantity, out[0].Quantity)

	_, err = MergeLines([]Line{{ProductID: b, Quantity: 1}, {ProductID: a, Quantity: MaxLineQuantity + 1}}, 10)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	violations := pkgerrors.As(err).Details().(map[string]any)["items"].([]LineViolation)
	require.Len(t, violations, 1)
	require.Equal(t, 1, violations[0].Index)
	require.Equal(t, a, violations[0].ProductID)

	// Two lines near the int limit must not wrap around to a small positive total.
	maxInt := int(^uint(0) >> 1)
	_, err = MergeLines([]Line{{ProductID: a, Quantity: maxInt}, {ProductID: a, Quantity: maxInt}}, 10)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = MergeLines([]Line{{ProductID: a, Quantity: 6000}, {ProductID: b, Quantity: 1}, {ProductID: a, Quantity: 6000}}, 10)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	violations = pkgerrors.As(err).Details().(map[string]any)["items"].([]LineViolation)
	require.Len(t, violations, 1)
	require.Equal(t, 2, violations[0].Index)
	require.Contains(t, violations[0].Reason, "combined")
}

func TestComputeTotalsRoundsHalfUp(t *testing.T) {
	totals := ComputeTotals(1050, decimal.RequireFromString("8.25"), 300)
	// 1050 * 8.25% = 86.625
	require.Equal(t, 87, totals.TaxCents)
	require.Equal(t, 1050+87+300, totals.TotalCents)

	totals = ComputeTotals(200, decimal.RequireFromString("2.5"), 0)
	// exactly 5.0
	require.Equal(t, 5, totals.TaxCents)

	totals = ComputeTotals(100, decimal.RequireFromString("0.5"), 0)
	// 0.5 rounds up
	require.Equal(t, 1, totals.TaxCents)

	require.Equal(t, 0, ComputeTotals(999, decimal.Zero, 0).TaxCents)
}
