package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"trailventure-backend/internal/domains/promo/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCalculate_PercentageDiscount(t *testing.T) {
	calc := NewDiscountCalculator()
	promo := &model.PromoCode{
		DiscountType:  model.DiscountTypePercentage,
		DiscountValue: dec("20"),
	}

	discount := calc.Calculate(promo, dec("400"))
	assert.True(t, dec("80").Equal(discount), "expected 80, got %s", discount)
}

// TestCalculate_PercentageCapped verifies max_discount_amount wins when the
// raw percentage exceeds it: 50% of 500 = 250, capped to 100.
func TestCalculate_PercentageCapped(t *testing.T) {
	calc := NewDiscountCalculator()
	promo := &model.PromoCode{
		DiscountType:      model.DiscountTypePercentage,
		DiscountValue:     dec("50"),
		MaxDiscountAmount: decPtr("100"),
	}

	discount := calc.Calculate(promo, dec("500"))
	assert.True(t, dec("100").Equal(discount), "expected 100, got %s", discount)
}

// TestCalculate_FixedExceedsOrder verifies a fixed discount larger than the
// order clamps to the order amount so the final never goes negative.
func TestCalculate_FixedExceedsOrder(t *testing.T) {
	calc := NewDiscountCalculator()
	promo := &model.PromoCode{
		DiscountType:  model.DiscountTypeFixed,
		DiscountValue: dec("1000"),
	}

	discount := calc.Calculate(promo, dec("300"))
	assert.True(t, dec("300").Equal(discount), "expected 300, got %s", discount)
}

// TestCalculate_FixedCappedByMaxDiscount: max_discount_amount binds fixed
// codes too, not just percentage ones — a fixed 80 with a cap of 50 on a
// 300 order discounts 50.
func TestCalculate_FixedCappedByMaxDiscount(t *testing.T) {
	calc := NewDiscountCalculator()
	promo := &model.PromoCode{
		DiscountType:      model.DiscountTypeFixed,
		DiscountValue:     dec("80"),
		MaxDiscountAmount: decPtr("50"),
	}

	discount := calc.Calculate(promo, dec("300"))
	assert.True(t, dec("50").Equal(discount), "expected 50, got %s", discount)

	b := calc.CalculateWithBreakdown(promo, dec("300"))
	assert.True(t, b.Capped)
	assert.Equal(t, "max_discount_amount", b.CapReason)
	assert.True(t, dec("50").Equal(b.FinalDiscount))
}

func TestCalculate_FixedDiscount(t *testing.T) {
	calc := NewDiscountCalculator()
	promo := &model.PromoCode{
		DiscountType:  model.DiscountTypeFixed,
		DiscountValue: dec("25"),
	}

	discount := calc.Calculate(promo, dec("300"))
	assert.True(t, dec("25").Equal(discount), "expected 25, got %s", discount)
}

// TestCalculate_RoundsHalfUp checks half-up rounding to 2 decimal places:
// 12.5% of 100.10 = 12.5125 rounds to 12.51, 15% of 33.33 = 4.9995 rounds
// to 5.00.
func TestCalculate_RoundsHalfUp(t *testing.T) {
	calc := NewDiscountCalculator()

	promo := &model.PromoCode{
		DiscountType:  model.DiscountTypePercentage,
		DiscountValue: dec("12.5"),
	}
	assert.True(t, dec("12.51").Equal(calc.Calculate(promo, dec("100.10"))))

	promo.DiscountValue = dec("15")
	assert.True(t, dec("5.00").Equal(calc.Calculate(promo, dec("33.33"))))
}

func TestCalculate_UnknownTypeIsZero(t *testing.T) {
	calc := NewDiscountCalculator()
	promo := &model.PromoCode{
		DiscountType:  model.DiscountType("bogus"),
		DiscountValue: dec("20"),
	}

	assert.True(t, calc.Calculate(promo, dec("100")).IsZero())
}

func TestCalculateWithBreakdown_ReportsCap(t *testing.T) {
	calc := NewDiscountCalculator()
	promo := &model.PromoCode{
		DiscountType:      model.DiscountTypePercentage,
		DiscountValue:     dec("50"),
		MaxDiscountAmount: decPtr("100"),
	}

	b := calc.CalculateWithBreakdown(promo, dec("500"))
	assert.True(t, b.Capped)
	assert.Equal(t, "max_discount_amount", b.CapReason)
	assert.True(t, dec("250").Equal(b.RawDiscount))
	assert.True(t, dec("100").Equal(b.FinalDiscount))
}
