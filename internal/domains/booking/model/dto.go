package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// CreateBookingRequest creates a new booking for the authenticated user.
type CreateBookingRequest struct {
	EventID       string          `json:"event_id"`
	EventCategory string          `json:"event_category"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

func (r CreateBookingRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.EventID, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.EventCategory, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.TotalAmount, validation.By(func(value interface{}) error {
			d, ok := value.(decimal.Decimal)
			if !ok || !d.IsPositive() {
				return validation.NewError("validation_positive", "must be greater than zero")
			}
			return nil
		})),
	)
}
