package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	bookingrepo "trailventure-backend/internal/domains/booking/repository"
	"trailventure-backend/internal/domains/promo/model"
	"trailventure-backend/internal/domains/promo/repository"
	"trailventure-backend/pkg/cache"
	"trailventure-backend/pkg/database"
	"trailventure-backend/pkg/logger"
)

const (
	publicPromosCacheKey = "promos:public"
	publicPromosCacheTTL = 5 * time.Minute
)

// promoService implements ServiceInterface.
type promoService struct {
	repo       repository.PromoRepository
	bookings   bookingrepo.BookingRepository
	tx         database.TxRunner
	cache      cache.Cache
	calculator *DiscountCalculator
}

func NewPromoService(
	repo repository.PromoRepository,
	bookings bookingrepo.BookingRepository,
	tx database.TxRunner,
	c cache.Cache,
) ServiceInterface {
	return &promoService{
		repo:       repo,
		bookings:   bookings,
		tx:         tx,
		cache:      c,
		calculator: NewDiscountCalculator(),
	}
}

// -------------------------------------------------------------------
// VALIDATE (dry run)
// -------------------------------------------------------------------

// Validate checks a code against a prospective order without touching any
// state. Rule rejections come back inside the result, not as errors; only
// infrastructure failures surface as errors.
func (s *promoService) Validate(ctx context.Context, userID uuid.UUID, req *model.ValidateRequest) (*model.ValidationResult, error) {
	code := model.NormalizeCode(req.Code)
	result := &model.ValidationResult{Code: code}

	promo, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		var appErr *model.AppError
		if errors.As(err, &appErr) {
			result.RejectionCode = appErr.Code
			result.Reason = appErr.Message
			return result, nil
		}
		return nil, err
	}

	rc := &ruleContext{
		promo:          promo,
		userID:         userID,
		originalAmount: req.OriginalAmount,
		eventID:        req.EventID,
		eventCategory:  req.EventCategory,
		now:            time.Now(),
		userUsageCount: func(ctx context.Context) (int, error) {
			return s.repo.CountUserUsage(ctx, promo.ID, userID)
		},
	}

	rejection, err := evaluateRules(ctx, rc)
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		result.RejectionCode = rejection.Code
		result.Reason = rejection.Message
		return result, nil
	}

	discount := s.calculator.Calculate(promo, req.OriginalAmount)
	final := req.OriginalAmount.Sub(discount)

	result.Valid = true
	result.Description = promo.Description
	result.DiscountAmount = &discount
	result.FinalAmount = &final
	return result, nil
}

// -------------------------------------------------------------------
// APPLY
// -------------------------------------------------------------------

// Apply attaches a code to a booking. The whole operation runs in one
// transaction: both rows are locked up front (promo first, booking
// second), eligibility is re-checked against the locked state, and the
// usage row, booking amounts and usage counter commit or roll back as a
// unit.
func (s *promoService) Apply(ctx context.Context, userID uuid.UUID, isAdmin bool, bookingID uuid.UUID, req *model.ApplyRequest) (*model.AppliedDiscount, error) {
	code := model.NormalizeCode(req.Code)

	var applied *model.AppliedDiscount
	err := s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		promo, err := s.repo.FindByCodeForUpdate(ctx, tx, code)
		if err != nil {
			return err
		}

		booking, err := s.bookings.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if booking.UserID != userID && !isAdmin {
			return model.ErrUnauthorized
		}

		// One code per booking. The unique index still backs this up if
		// two applies race past the check.
		if _, err := s.repo.FindUsageByBooking(ctx, tx, bookingID); err == nil {
			return model.ErrAlreadyApplied
		} else if !errors.Is(err, model.ErrNoPromoApplied) {
			return err
		}

		rc := &ruleContext{
			promo:          promo,
			userID:         booking.UserID,
			originalAmount: booking.TotalAmount,
			eventID:        booking.EventID,
			eventCategory:  booking.EventCategory,
			now:            time.Now(),
			userUsageCount: func(ctx context.Context) (int, error) {
				return s.repo.CountUserUsageTx(ctx, tx, promo.ID, booking.UserID)
			},
		}
		if rejection, err := evaluateRules(ctx, rc); err != nil {
			return err
		} else if rejection != nil {
			return rejection
		}

		discount := s.calculator.Calculate(promo, booking.TotalAmount)
		final := booking.TotalAmount.Sub(discount)

		usage := &model.PromoUsage{
			ID:             uuid.New(),
			PromoCodeID:    promo.ID,
			UserID:         booking.UserID,
			BookingID:      booking.ID,
			OriginalAmount: booking.TotalAmount,
			DiscountAmount: discount,
			FinalAmount:    final,
		}
		if err := s.repo.InsertUsage(ctx, tx, usage); err != nil {
			return err
		}

		if err := s.bookings.UpdateAmounts(ctx, tx, booking.ID, discount, final); err != nil {
			return err
		}

		// The guarded increment is the last line of defense for the
		// global limit under concurrency.
		ok, err := s.repo.IncrementUsage(ctx, tx, promo.ID)
		if err != nil {
			return err
		}
		if !ok {
			return &model.AppError{
				Code:       model.ErrCodeGlobalLimitExceeded,
				Message:    "promo code has reached its usage limit",
				HTTPStatus: 400,
			}
		}

		applied = &model.AppliedDiscount{
			BookingID:      booking.ID,
			Code:           promo.Code,
			Description:    promo.Description,
			OriginalAmount: booking.TotalAmount,
			DiscountAmount: discount,
			FinalAmount:    final,
			Savings:        discount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Promo code applied", map[string]interface{}{
		"booking_id": bookingID.String(),
		"code":       code,
		"discount":   applied.DiscountAmount.String(),
	})
	return applied, nil
}

// -------------------------------------------------------------------
// REMOVE
// -------------------------------------------------------------------

// Remove detaches whatever code is on the booking and restores the
// original amounts. Removing twice reports NO_PROMO_APPLIED the second
// time; the booking state is unchanged either way.
func (s *promoService) Remove(ctx context.Context, userID uuid.UUID, isAdmin bool, bookingID uuid.UUID) (*model.AppliedDiscount, error) {
	var restored *model.AppliedDiscount
	err := s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		// Peek at the usage row so the promo lock can be taken before the
		// booking lock, the same order Apply uses. An absent row is not
		// reported yet: booking-not-found and ownership errors take
		// precedence over NO_PROMO_APPLIED.
		current, err := s.repo.FindUsageByBooking(ctx, tx, bookingID)
		if err != nil && !errors.Is(err, model.ErrNoPromoApplied) {
			return err
		}
		if current != nil {
			if _, err := s.repo.FindByIDForUpdate(ctx, tx, current.PromoCodeID); err != nil {
				return err
			}
		}

		booking, err := s.bookings.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if booking.UserID != userID && !isAdmin {
			return model.ErrUnauthorized
		}

		usage, err := s.repo.DeleteUsageByBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		if err := s.bookings.UpdateAmounts(ctx, tx, booking.ID, decimal.Zero, booking.TotalAmount); err != nil {
			return err
		}

		if err := s.repo.DecrementUsage(ctx, tx, usage.PromoCodeID); err != nil {
			return err
		}

		restored = &model.AppliedDiscount{
			BookingID:      booking.ID,
			OriginalAmount: booking.TotalAmount,
			DiscountAmount: decimal.Zero,
			FinalAmount:    booking.TotalAmount,
			Savings:        decimal.Zero,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Promo code removed", map[string]interface{}{
		"booking_id": bookingID.String(),
	})
	return restored, nil
}

// -------------------------------------------------------------------
// PUBLIC LISTING
// -------------------------------------------------------------------

func (s *promoService) ListPublicActive(ctx context.Context) ([]model.PromoCodeInfo, error) {
	var cached []model.PromoCodeInfo
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, publicPromosCacheKey, &cached); err != nil {
			logger.Warn("Promo cache read failed", map[string]interface{}{"error": err.Error()})
		} else if hit {
			return cached, nil
		}
	}

	promos, err := s.repo.ListPublicActive(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]model.PromoCodeInfo, 0, len(promos))
	for _, p := range promos {
		infos = append(infos, p.PublicInfo())
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, publicPromosCacheKey, infos, publicPromosCacheTTL); err != nil {
			logger.Warn("Promo cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return infos, nil
}

// -------------------------------------------------------------------
// ADMIN OPERATIONS
// -------------------------------------------------------------------

func (s *promoService) CreateCode(ctx context.Context, req *model.CreateCodeRequest) (*model.PromoCode, error) {
	code := model.NormalizeCode(req.Code)

	exists, err := s.repo.CheckCodeExists(ctx, code, nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &model.AppError{
			Code:       model.ErrCodeDuplicateCode,
			Message:    "a promo code with this code already exists",
			HTTPStatus: 409,
		}
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	promo := &model.PromoCode{
		ID:                   uuid.New(),
		Code:                 code,
		Description:          req.Description,
		DiscountType:         model.DiscountType(req.DiscountType),
		DiscountValue:        req.DiscountValue,
		MaxDiscountAmount:    req.MaxDiscountAmount,
		MinOrderAmount:       req.MinOrderAmount,
		UsageLimit:           req.UsageLimit,
		UserUsageLimit:       req.UserUsageLimit,
		ValidFrom:            req.ValidFrom,
		ValidUntil:           req.ValidUntil,
		ApplicableEvents:     req.ApplicableEvents,
		ApplicableCategories: req.ApplicableCategories,
		ExcludedEvents:       req.ExcludedEvents,
		IsPublic:             isPublic,
		TargetUsers:          req.TargetUsers,
		Status:               model.CodeStatusActive,
	}

	if err := s.repo.Create(ctx, promo); err != nil {
		return nil, err
	}
	s.invalidatePublicCache(ctx)

	logger.Info("Promo code created", map[string]interface{}{
		"id":   promo.ID.String(),
		"code": promo.Code,
	})
	return promo, nil
}

func (s *promoService) GetCode(ctx context.Context, id uuid.UUID) (*model.PromoCode, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *promoService) ListCodes(ctx context.Context, filter *model.ListCodesFilter) ([]*model.PromoCode, int, error) {
	filter.Normalize()
	return s.repo.ListAdmin(ctx, filter)
}

func (s *promoService) UpdateCode(ctx context.Context, id uuid.UUID, req *model.UpdateCodeRequest) (*model.PromoCode, error) {
	promo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		promo.Description = req.Description
	}
	if req.DiscountValue != nil {
		promo.DiscountValue = *req.DiscountValue
	}
	if req.MaxDiscountAmount != nil {
		promo.MaxDiscountAmount = req.MaxDiscountAmount
	}
	if req.MinOrderAmount != nil {
		promo.MinOrderAmount = req.MinOrderAmount
	}
	if req.UsageLimit != nil {
		promo.UsageLimit = req.UsageLimit
	}
	if req.UserUsageLimit != nil {
		promo.UserUsageLimit = req.UserUsageLimit
	}
	if req.ValidFrom != nil {
		promo.ValidFrom = *req.ValidFrom
	}
	if req.ValidUntil != nil {
		promo.ValidUntil = *req.ValidUntil
	}
	if req.ApplicableEvents != nil {
		promo.ApplicableEvents = req.ApplicableEvents
	}
	if req.ApplicableCategories != nil {
		promo.ApplicableCategories = req.ApplicableCategories
	}
	if req.ExcludedEvents != nil {
		promo.ExcludedEvents = req.ExcludedEvents
	}
	if req.IsPublic != nil {
		promo.IsPublic = *req.IsPublic
	}
	if req.TargetUsers != nil {
		promo.TargetUsers = req.TargetUsers
	}

	if promo.ValidUntil.Before(promo.ValidFrom) {
		return nil, &model.AppError{
			Code:       model.ErrCodeValidationFailed,
			Message:    "valid_until must not be before valid_from",
			HTTPStatus: 400,
		}
	}

	if err := s.repo.Update(ctx, promo); err != nil {
		return nil, err
	}
	s.invalidatePublicCache(ctx)
	return promo, nil
}

func (s *promoService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.CodeStatus) error {
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	s.invalidatePublicCache(ctx)

	logger.Info("Promo code status changed", map[string]interface{}{
		"id":     id.String(),
		"status": string(status),
	})
	return nil
}

// DeleteCode hard-deletes a code only while it has no usage history.
// Codes that have been used are retired instead so the ledger stays
// consistent.
func (s *promoService) DeleteCode(ctx context.Context, id uuid.UUID) error {
	used, err := s.repo.HasUsage(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return model.ErrCodeInUseErr
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidatePublicCache(ctx)
	return nil
}

func (s *promoService) GetUsageHistory(ctx context.Context, id uuid.UUID, page, limit int) ([]*model.PromoUsage, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, 0, err
	}
	return s.repo.ListUsageByCode(ctx, id, page, limit)
}

func (s *promoService) GetUsageStats(ctx context.Context, id uuid.UUID) (*model.UsageStats, error) {
	stats, err := s.repo.GetUsageStats(ctx, id)
	if err != nil {
		return nil, err
	}
	promo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stats.RemainingUses = promo.RemainingUses()
	return stats, nil
}

func (s *promoService) invalidatePublicCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, publicPromosCacheKey); err != nil {
		logger.Warn("Promo cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
}
