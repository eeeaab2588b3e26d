// Package checkout holds the pure rules of a storefront checkout: phone format,
// line merging and order totals.
package checkout

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/brewcart/brewcart-backend/pkg/errors"
)

// MaxLineQuantity caps the units of one product in an order, after duplicates are merged.
const MaxLineQuantity = 10000

var (
	// PhonePattern accepts an optional leading + followed by digits and common separators.
	PhonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ().-]{5,24}$`)
	nonDigits    = regexp.MustCompile(`\D`)
	hundred      = decimal.NewFromInt(100)
)

// ValidPhone reports whether value looks like a dialable number with 7 to 15 digits.
func ValidPhone(value string) bool {
	value = strings.TrimSpace(value)
	if !PhonePattern.MatchString(value) {
		return false
	}
	digits := len(nonDigits.ReplaceAllString(value, ""))
	return digits >= 7 && digits <= 15
}

// Line is one requested product and quantity.
type Line struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// LineViolation points at a rejected input line.
type LineViolation struct {
	Index     int       `json:"index"`
	ProductID uuid.UUID `json:"product_id"`
	Reason    string    `json:"reason"`
}

// MergeLines validates quantities, folds duplicate products together and returns
// the lines in ascending product id order, which is also the stock lock order.
func MergeLines(lines []Line, maxLines int) ([]Line, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	var violations []LineViolation
	merged := make(map[uuid.UUID]int, len(lines))
	for i, line := range lines {
		switch {
		case line.ProductID == uuid.Nil:
			violations = append(violations, LineViolation{Index: i, Reason: "product_id is required"})
		case line.Quantity < 1:
			violations = append(violations, LineViolation{Index: i, ProductID: line.ProductID, Reason: "quantity must be >= 1"})
		case line.Quantity > MaxLineQuantity:
			violations = append(violations, LineViolation{Index: i, ProductID: line.ProductID, Reason: fmt.Sprintf("quantity must be <= %d", MaxLineQuantity)})
		case merged[line.ProductID] > MaxLineQuantity-line.Quantity:
			violations = append(violations, LineViolation{Index: i, ProductID: line.ProductID, Reason: fmt.Sprintf("combined quantity must be <= %d", MaxLineQuantity)})
		default:
			merged[line.ProductID] += line.Quantity
		}
	}
	if len(violations) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order items").
			WithDetails(map[string]any{"items": violations})
	}
	if maxLines > 0 && len(merged) > maxLines {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "at most %d distinct products per order", maxLines)
	}

	out := make([]Line, 0, len(merged))
	for id, qty := range merged {
		out = append(out, Line{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProductID.String() < out[j].ProductID.String()
	})
	return out, nil
}

// Totals is the priced order in minor units.
type Totals struct {
	SubtotalCents    int `json:"subtotal_cents"`
	TaxCents         int `json:"tax_cents"`
	DeliveryFeeCents int `json:"delivery_fee_cents"`
	TotalCents       int `json:"total_cents"`
}

// ComputeTotals applies a percentage tax rate to the subtotal, rounding half away from zero.
func ComputeTotals(subtotalCents int, taxRate decimal.Decimal, deliveryFeeCents int) Totals {
	tax := decimal.NewFromInt(int64(subtotalCents)).Mul(taxRate).Div(hundred).Round(0)
	taxCents := int(tax.IntPart())
	return Totals{
		SubtotalCents:    subtotalCents,
		TaxCents:         taxCents,
		DeliveryFeeCents: deliveryFeeCents,
		TotalCents:       subtotalCents + taxCents + deliveryFeeCents,
	}
}
