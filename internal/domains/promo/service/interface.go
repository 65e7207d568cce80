package service

import (
	"context"

	"github.com/google/uuid"

	"trailventure-backend/internal/domains/promo/model"
)

// ServiceInterface defines the promo engagement operations.
type ServiceInterface interface {
	// Public operations
	Validate(ctx context.Context, userID uuid.UUID, req *model.ValidateRequest) (*model.ValidationResult, error)
	Apply(ctx context.Context, userID uuid.UUID, isAdmin bool, bookingID uuid.UUID, req *model.ApplyRequest) (*model.AppliedDiscount, error)
	Remove(ctx context.Context, userID uuid.UUID, isAdmin bool, bookingID uuid.UUID) (*model.AppliedDiscount, error)
	ListPublicActive(ctx context.Context) ([]model.PromoCodeInfo, error)

	// Admin operations
	CreateCode(ctx context.Context, req *model.CreateCodeRequest) (*model.PromoCode, error)
	GetCode(ctx context.Context, id uuid.UUID) (*model.PromoCode, error)
	ListCodes(ctx context.Context, filter *model.ListCodesFilter) ([]*model.PromoCode, int, error)
	UpdateCode(ctx context.Context, id uuid.UUID, req *model.UpdateCodeRequest) (*model.PromoCode, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.CodeStatus) error
	DeleteCode(ctx context.Context, id uuid.UUID) error
	GetUsageHistory(ctx context.Context, id uuid.UUID, page, limit int) ([]*model.PromoUsage, int, error)
	GetUsageStats(ctx context.Context, id uuid.UUID) (*model.UsageStats, error)
}
