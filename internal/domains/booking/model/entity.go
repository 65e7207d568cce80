package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingStatus represents booking lifecycle states.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is a reservation for an event. TotalAmount is the pre-discount
// price and never changes after creation; DiscountAmount and FinalAmount
// move together with the promo usage ledger.
type Booking struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	EventID       string    `json:"event_id" db:"event_id"`
	EventCategory string    `json:"event_category" db:"event_category"`

	TotalAmount    decimal.Decimal `json:"total_amount" db:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount" db:"final_amount"`

	Status    BookingStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// HasDiscount reports whether a discount is currently reflected in the
// booking amounts.
func (b *Booking) HasDiscount() bool {
	return b.DiscountAmount.IsPositive()
}
