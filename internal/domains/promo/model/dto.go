package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// Request DTOs
// ============================================================================

// ValidateRequest is a dry-run eligibility check against a cart that has not
// become a booking yet.
type ValidateRequest struct {
	Code           string          `json:"code"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	EventID        string          `json:"event_id,omitempty"`
	EventCategory  string          `json:"event_category,omitempty"`
}

func (r ValidateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.OriginalAmount, validation.By(decimalPositive)),
	)
}

// ApplyRequest applies a code to an existing booking.
type ApplyRequest struct {
	Code string `json:"code"`
}

func (r ApplyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.Length(1, 50)),
	)
}

// CreateCodeRequest creates a new promo code (admin).
type CreateCodeRequest struct {
	Code              string           `json:"code"`
	Description       *string          `json:"description,omitempty"`
	DiscountType      string           `json:"discount_type"`
	DiscountValue     decimal.Decimal  `json:"discount_value"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`
	MinOrderAmount    *decimal.Decimal `json:"min_order_amount,omitempty"`
	UsageLimit        *int             `json:"usage_limit,omitempty"`
	UserUsageLimit    *int             `json:"user_usage_limit,omitempty"`
	ValidFrom         time.Time        `json:"valid_from"`
	ValidUntil        time.Time        `json:"valid_until"`

	ApplicableEvents     []string `json:"applicable_events,omitempty"`
	ApplicableCategories []string `json:"applicable_categories,omitempty"`
	ExcludedEvents       []string `json:"excluded_events,omitempty"`

	IsPublic    *bool       `json:"is_public,omitempty"`
	TargetUsers []uuid.UUID `json:"target_users,omitempty"`
}

func (r CreateCodeRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.Length(3, 50)),
		validation.Field(&r.DiscountType, validation.Required, validation.In("percentage", "fixed")),
		validation.Field(&r.DiscountValue, validation.By(decimalPositive)),
		validation.Field(&r.ValidFrom, validation.Required),
		validation.Field(&r.ValidUntil, validation.Required),
	)
	if err != nil {
		return err
	}
	if r.ValidUntil.Before(r.ValidFrom) {
		return validation.Errors{"valid_until": validation.NewError(
			"validation_window", "must not be before valid_from")}
	}
	if r.DiscountType == string(DiscountTypePercentage) && r.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return validation.Errors{"discount_value": validation.NewError(
			"validation_percentage", "percentage discount cannot exceed 100")}
	}
	if r.UsageLimit != nil && *r.UsageLimit < 1 {
		return validation.Errors{"usage_limit": validation.NewError(
			"validation_limit", "must be at least 1")}
	}
	if r.UserUsageLimit != nil && *r.UserUsageLimit < 1 {
		return validation.Errors{"user_usage_limit": validation.NewError(
			"validation_limit", "must be at least 1")}
	}
	return nil
}

// UpdateCodeRequest partially updates a promo code (admin). Nil fields are
// left unchanged.
type UpdateCodeRequest struct {
	Description       *string          `json:"description,omitempty"`
	DiscountValue     *decimal.Decimal `json:"discount_value,omitempty"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`
	MinOrderAmount    *decimal.Decimal `json:"min_order_amount,omitempty"`
	UsageLimit        *int             `json:"usage_limit,omitempty"`
	UserUsageLimit    *int             `json:"user_usage_limit,omitempty"`
	ValidFrom         *time.Time       `json:"valid_from,omitempty"`
	ValidUntil        *time.Time       `json:"valid_until,omitempty"`

	ApplicableEvents     []string `json:"applicable_events,omitempty"`
	ApplicableCategories []string `json:"applicable_categories,omitempty"`
	ExcludedEvents       []string `json:"excluded_events,omitempty"`

	IsPublic    *bool       `json:"is_public,omitempty"`
	TargetUsers []uuid.UUID `json:"target_users,omitempty"`
}

func (r UpdateCodeRequest) Validate() error {
	if r.DiscountValue != nil && !r.DiscountValue.IsPositive() {
		return validation.Errors{"discount_value": validation.NewError(
			"validation_positive", "must be greater than zero")}
	}
	if r.UsageLimit != nil && *r.UsageLimit < 1 {
		return validation.Errors{"usage_limit": validation.NewError(
			"validation_limit", "must be at least 1")}
	}
	if r.UserUsageLimit != nil && *r.UserUsageLimit < 1 {
		return validation.Errors{"user_usage_limit": validation.NewError(
			"validation_limit", "must be at least 1")}
	}
	return nil
}

// UpdateStatusRequest transitions a code between active and retired (admin).
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (r UpdateStatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.In("active", "retired")),
	)
}

// ListCodesFilter is the admin list query.
type ListCodesFilter struct {
	Status   string `form:"status"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

func (f *ListCodesFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
}

func decimalPositive(value interface{}) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return validation.NewError("validation_decimal", "must be a decimal amount")
	}
	if !d.IsPositive() {
		return validation.NewError("validation_positive", "must be greater than zero")
	}
	return nil
}

// ============================================================================
// Response DTOs
// ============================================================================

// ValidationResult is the outcome of a dry-run validation. When Valid is
// false, RejectionCode holds the first failed rule's stable code.
type ValidationResult struct {
	Valid          bool             `json:"valid"`
	RejectionCode  ErrorCode        `json:"rejection_code,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	Code           string           `json:"code"`
	Description    *string          `json:"description,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`
	FinalAmount    *decimal.Decimal `json:"final_amount,omitempty"`
}

// AppliedDiscount is the booking's pricing after an apply or remove.
type AppliedDiscount struct {
	BookingID      uuid.UUID       `json:"booking_id"`
	Code           string          `json:"code,omitempty"`
	Description    *string         `json:"description,omitempty"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	Savings        decimal.Decimal `json:"savings"`
}

// PromoCodeInfo is the public view of a code; limits and targeting stay
// internal.
type PromoCodeInfo struct {
	Code              string           `json:"code"`
	Description       *string          `json:"description,omitempty"`
	DiscountType      DiscountType     `json:"discount_type"`
	DiscountValue     decimal.Decimal  `json:"discount_value"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`
	MinOrderAmount    *decimal.Decimal `json:"min_order_amount,omitempty"`
	ValidUntil        time.Time        `json:"valid_until"`
}

// PublicInfo projects a PromoCode into its public view.
func (p *PromoCode) PublicInfo() PromoCodeInfo {
	return PromoCodeInfo{
		Code:              p.Code,
		Description:       p.Description,
		DiscountType:      p.DiscountType,
		DiscountValue:     p.DiscountValue,
		MaxDiscountAmount: p.MaxDiscountAmount,
		MinOrderAmount:    p.MinOrderAmount,
		ValidUntil:        p.ValidUntil,
	}
}

// UsageStats is the admin per-code usage summary.
type UsageStats struct {
	PromoCodeID   uuid.UUID       `json:"promo_code_id"`
	Code          string          `json:"code"`
	TotalUses     int             `json:"total_uses"`
	UniqueUsers   int             `json:"unique_users"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	RemainingUses *int            `json:"remaining_uses,omitempty"`
}

// UsageRecord is one entry in a code's usage history (admin).
type UsageRecord struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	BookingID      uuid.UUID       `json:"booking_id"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	UsedAt         time.Time       `json:"used_at"`
}
