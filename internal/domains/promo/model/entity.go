package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType represents valid discount types
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

func (dt DiscountType) IsValid() bool {
	switch dt {
	case DiscountTypePercentage, DiscountTypeFixed:
		return true
	}
	return false
}

func (dt DiscountType) String() string {
	return string(dt)
}

// CodeStatus is the promo code lifecycle. A retired code is rejected by
// validation but its usage history stays queryable.
type CodeStatus string

const (
	CodeStatusActive  CodeStatus = "active"
	CodeStatusRetired CodeStatus = "retired"
)

// PromoCode is a reusable discount definition with eligibility constraints
// and usage limits.
type PromoCode struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	Description *string   `json:"description,omitempty" db:"description"`

	// Discount configuration
	DiscountType      DiscountType     `json:"discount_type" db:"discount_type"`
	DiscountValue     decimal.Decimal  `json:"discount_value" db:"discount_value"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty" db:"max_discount_amount"`
	MinOrderAmount    *decimal.Decimal `json:"min_order_amount,omitempty" db:"min_order_amount"`

	// Usage limits
	UsageLimit     *int `json:"usage_limit,omitempty" db:"usage_limit"`
	UserUsageLimit *int `json:"user_usage_limit,omitempty" db:"user_usage_limit"`
	// UsageCount is denormalized; it only ever changes in the same
	// transaction as the matching usage row write.
	UsageCount int `json:"usage_count" db:"usage_count"`

	// Validity window, inclusive on both ends
	ValidFrom  time.Time `json:"valid_from" db:"valid_from"`
	ValidUntil time.Time `json:"valid_until" db:"valid_until"`

	// Eligibility allow/deny lists; empty means unrestricted
	ApplicableEvents     []string `json:"applicable_events,omitempty" db:"applicable_events"`
	ApplicableCategories []string `json:"applicable_categories,omitempty" db:"applicable_categories"`
	ExcludedEvents       []string `json:"excluded_events,omitempty" db:"excluded_events"`

	// Private-code targeting
	IsPublic    bool        `json:"is_public" db:"is_public"`
	TargetUsers []uuid.UUID `json:"target_users,omitempty" db:"target_users"`

	Status    CodeStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// PromoUsage records one successful application of a code to a booking.
// At most one row exists per booking at any time.
type PromoUsage struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	PromoCodeID    uuid.UUID       `json:"promo_code_id" db:"promo_code_id"`
	UserID         uuid.UUID       `json:"user_id" db:"user_id"`
	BookingID      uuid.UUID       `json:"booking_id" db:"booking_id"`
	OriginalAmount decimal.Decimal `json:"original_amount" db:"original_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount" db:"final_amount"`
	UsedAt         time.Time       `json:"used_at" db:"used_at"`
}

// IsActive reports whether the code is in the active lifecycle state.
func (p *PromoCode) IsActive() bool {
	return p.Status == CodeStatusActive
}

// WithinWindow reports whether now falls inside [ValidFrom, ValidUntil].
func (p *PromoCode) WithinWindow(now time.Time) bool {
	return !now.Before(p.ValidFrom) && !now.After(p.ValidUntil)
}

// IsExhausted reports whether the global usage limit has been reached.
func (p *PromoCode) IsExhausted() bool {
	return p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit
}

// RemainingUses returns the remaining global uses, or nil when unlimited.
func (p *PromoCode) RemainingUses() *int {
	if p.UsageLimit == nil {
		return nil
	}
	remaining := *p.UsageLimit - p.UsageCount
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// IsTargetedAt reports whether a private code names the given user.
func (p *PromoCode) IsTargetedAt(userID uuid.UUID) bool {
	for _, id := range p.TargetUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// NormalizeCode uppercases and trims a raw code string.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
