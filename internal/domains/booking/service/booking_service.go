package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trailventure-backend/internal/domains/booking/model"
	"trailventure-backend/internal/domains/booking/repository"
	promomodel "trailventure-backend/internal/domains/promo/model"
	"trailventure-backend/pkg/logger"
)

// ServiceInterface defines booking business operations.
type ServiceInterface interface {
	Create(ctx context.Context, userID uuid.UUID, req *model.CreateBookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, userID uuid.UUID, isAdmin bool, id uuid.UUID) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]*model.Booking, int, error)
}

type bookingService struct {
	repo repository.BookingRepository
}

func NewBookingService(repo repository.BookingRepository) ServiceInterface {
	return &bookingService{repo: repo}
}

// Create books an event for the user. A new booking starts undiscounted:
// final amount equals total amount.
func (s *bookingService) Create(ctx context.Context, userID uuid.UUID, req *model.CreateBookingRequest) (*model.Booking, error) {
	booking := &model.Booking{
		ID:             uuid.New(),
		UserID:         userID,
		EventID:        req.EventID,
		EventCategory:  req.EventCategory,
		TotalAmount:    req.TotalAmount,
		DiscountAmount: decimal.Zero,
		FinalAmount:    req.TotalAmount,
		Status:         model.BookingStatusPending,
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, err
	}

	logger.Info("Booking created", map[string]interface{}{
		"booking_id": booking.ID.String(),
		"event_id":   booking.EventID,
	})
	return booking, nil
}

// GetByID returns a booking. Non-admin callers only see their own.
func (s *bookingService) GetByID(ctx context.Context, userID uuid.UUID, isAdmin bool, id uuid.UUID) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID && !isAdmin {
		return nil, promomodel.ErrUnauthorized
	}
	return booking, nil
}

func (s *bookingService) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]*model.Booking, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, page, limit)
}
