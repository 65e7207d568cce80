package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"trailventure-backend/internal/domains/booking/model"
)

// BookingRepository defines booking data access.
type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]*model.Booking, int, error)
	UpdateAmounts(ctx context.Context, tx pgx.Tx, id uuid.UUID, discount, final decimal.Decimal) error
}
