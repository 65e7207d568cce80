package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"trailventure-backend/internal/domains/promo/model"
)

// PromoRepository defines promo code data access.
type PromoRepository interface {
	// Read operations
	FindByID(ctx context.Context, id uuid.UUID) (*model.PromoCode, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.PromoCode, error)
	FindByCode(ctx context.Context, code string) (*model.PromoCode, error)
	FindByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.PromoCode, error)
	ListPublicActive(ctx context.Context) ([]*model.PromoCode, error)
	ListAdmin(ctx context.Context, filter *model.ListCodesFilter) ([]*model.PromoCode, int, error)
	CountUserUsage(ctx context.Context, promoID, userID uuid.UUID) (int, error)
	CountUserUsageTx(ctx context.Context, tx pgx.Tx, promoID, userID uuid.UUID) (int, error)

	// Write operations
	Create(ctx context.Context, promo *model.PromoCode) error
	Update(ctx context.Context, promo *model.PromoCode) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.CodeStatus) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Usage ledger, transactional
	InsertUsage(ctx context.Context, tx pgx.Tx, usage *model.PromoUsage) error
	FindUsageByBooking(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID) (*model.PromoUsage, error)
	DeleteUsageByBooking(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID) (*model.PromoUsage, error)
	IncrementUsage(ctx context.Context, tx pgx.Tx, promoID uuid.UUID) (bool, error)
	DecrementUsage(ctx context.Context, tx pgx.Tx, promoID uuid.UUID) error

	// Admin reporting
	ListUsageByCode(ctx context.Context, promoID uuid.UUID, page, limit int) ([]*model.PromoUsage, int, error)
	GetUsageStats(ctx context.Context, promoID uuid.UUID) (*model.UsageStats, error)

	// Utility
	CheckCodeExists(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error)
	HasUsage(ctx context.Context, promoID uuid.UUID) (bool, error)
}
