package products

import (
	"strings"

	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParsePriceCents accepts either a decimal amount ("12.50") or an integer cent value.
// When both are set they must agree.
func ParsePriceCents(field string, amount *string, cents *int) (*int, error) {
	if amount == nil && cents == nil {
		return nil, nil
	}

	var fromAmount *int
	if amount != nil {
		d, err := decimal.NewFromString(strings.TrimSpace(*amount))
		if err != nil {
			return nil, invalidPrice(field, "must be a decimal amount")
		}
		if d.Exponent() < -2 {
			return nil, invalidPrice(field, "at most two decimal places")
		}
		v := int(d.Mul(hundred).IntPart())
		fromAmount = &v
	}

	switch {
	case fromAmount != nil && cents != nil && *fromAmount != *cents:
		return nil, invalidPrice(field, "amount and cents disagree")
	case fromAmount == nil:
		fromAmount = cents
	}
	if *fromAmount < 0 {
		return nil, invalidPrice(field, "must be >= 0")
	}
	return fromAmount, nil
}

// FormatCents renders cents as a two-place decimal string.
func FormatCents(cents int) string {
	return decimal.New(int64(cents), -2).StringFixed(2)
}

func invalidPrice(field, reason string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid price").
		WithDetails(map[string]any{field: reason})
}
