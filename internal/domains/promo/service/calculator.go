package service

import (
	"github.com/shopspring/decimal"

	"trailventure-backend/internal/domains/promo/model"
)

// DiscountCalculator turns a promo definition and an order amount into a
// concrete discount.
type DiscountCalculator struct{}

func NewDiscountCalculator() *DiscountCalculator {
	return &DiscountCalculator{}
}

// Calculate computes the discount for a promo against the original amount.
//
// Percentage: raw = amount * value / 100. Fixed: raw = value. Either way
// the result is clamped to min(raw, max_discount_amount, original amount),
// so a capped fixed code never exceeds its cap and the final amount never
// goes negative. Rounded half-up to 2 decimal places.
func (c *DiscountCalculator) Calculate(promo *model.PromoCode, amount decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal

	switch promo.DiscountType {
	case model.DiscountTypePercentage:
		discount = amount.Mul(promo.DiscountValue).Div(decimal.NewFromInt(100))

	case model.DiscountTypeFixed:
		discount = promo.DiscountValue

	default:
		return decimal.Zero
	}

	// The cap applies regardless of discount type.
	if promo.MaxDiscountAmount != nil && discount.GreaterThan(*promo.MaxDiscountAmount) {
		discount = *promo.MaxDiscountAmount
	}
	if discount.GreaterThan(amount) {
		discount = amount
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	return discount.Round(2)
}

// Breakdown carries the intermediate values of a calculation, mostly for
// logging.
type Breakdown struct {
	OriginalAmount decimal.Decimal `json:"original_amount"`
	RawDiscount    decimal.Decimal `json:"raw_discount"`
	FinalDiscount  decimal.Decimal `json:"final_discount"`
	Capped         bool            `json:"capped"`
	CapReason      string          `json:"cap_reason,omitempty"`
}

// CalculateWithBreakdown is Calculate plus the intermediate steps.
func (c *DiscountCalculator) CalculateWithBreakdown(promo *model.PromoCode, amount decimal.Decimal) Breakdown {
	b := Breakdown{OriginalAmount: amount}

	switch promo.DiscountType {
	case model.DiscountTypePercentage:
		b.RawDiscount = amount.Mul(promo.DiscountValue).Div(decimal.NewFromInt(100))
	case model.DiscountTypeFixed:
		b.RawDiscount = promo.DiscountValue
	}

	b.FinalDiscount = b.RawDiscount
	if promo.MaxDiscountAmount != nil && b.FinalDiscount.GreaterThan(*promo.MaxDiscountAmount) {
		b.FinalDiscount = *promo.MaxDiscountAmount
		b.Capped = true
		b.CapReason = "max_discount_amount"
	}
	if b.FinalDiscount.GreaterThan(amount) {
		b.FinalDiscount = amount
		b.Capped = true
		b.CapReason = "exceeds_order_amount"
	}

	b.FinalDiscount = b.FinalDiscount.Round(2)
	return b
}
