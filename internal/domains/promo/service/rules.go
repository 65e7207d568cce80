package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trailventure-backend/internal/domains/promo/model"
)

// ruleContext is everything the eligibility chain needs to judge one
// candidate application.
type ruleContext struct {
	promo          *model.PromoCode
	userID         uuid.UUID
	originalAmount decimal.Decimal
	eventID        string
	eventCategory  string
	now            time.Time

	// userUsageCount is called lazily so the query only runs when the
	// cheaper rules have already passed.
	userUsageCount func(ctx context.Context) (int, error)
}

// rule is one named eligibility check. A non-nil AppError rejects the
// candidate; the chain short-circuits on the first rejection.
type rule struct {
	name  string
	check func(ctx context.Context, rc *ruleContext) (*model.AppError, error)
}

// eligibilityRules is the fixed evaluation order. Order matters: a caller
// probing an expired code must see EXPIRED, never a later rule's code.
var eligibilityRules = []rule{
	{"code_active", checkCodeActive},
	{"validity_window", checkValidityWindow},
	{"global_limit", checkGlobalLimit},
	{"user_limit", checkUserLimit},
	{"minimum_order", checkMinimumOrder},
	{"applicable_events", checkApplicableEvents},
	{"applicable_categories", checkApplicableCategories},
	{"excluded_events", checkExcludedEvents},
	{"targeting", checkTargeting},
}

// evaluateRules walks the chain and returns the first rejection, or nil
// when the candidate passes every rule.
func evaluateRules(ctx context.Context, rc *ruleContext) (*model.AppError, error) {
	for _, r := range eligibilityRules {
		rejection, err := r.check(ctx, rc)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.name, err)
		}
		if rejection != nil {
			return rejection, nil
		}
	}
	return nil, nil
}

func checkCodeActive(_ context.Context, rc *ruleContext) (*model.AppError, error) {
	if !rc.promo.IsActive() {
		return model.ErrInvalidCode, nil
	}
	return nil, nil
}

// EXPIRED covers both ends of the window: a code that has not started yet
// rejects the same way as one that has ended.
func checkValidityWindow(_ context.Context, rc *ruleContext) (*model.AppError, error) {
	if !rc.promo.WithinWindow(rc.now) {
		return &model.AppError{
			Code:       model.ErrCodeExpired,
			Message:    "promo code is not valid at this time",
			HTTPStatus: 400,
		}, nil
	}
	return nil, nil
}

func checkGlobalLimit(_ context.Context, rc *ruleContext) (*model.AppError, error) {
	if rc.promo.IsExhausted() {
		return &model.AppError{
			Code:       model.ErrCodeGlobalLimitExceeded,
			Message:    "promo code has reached its usage limit",
			HTTPStatus: 400,
		}, nil
	}
	return nil, nil
}

func checkUserLimit(ctx context.Context, rc *ruleContext) (*model.AppError, error) {
	if rc.promo.UserUsageLimit == nil {
		return nil, nil
	}
	count, err := rc.userUsageCount(ctx)
	if err != nil {
		return nil, err
	}
	if count >= *rc.promo.UserUsageLimit {
		return &model.AppError{
			Code:       model.ErrCodeUserLimitExceeded,
			Message:    "you have already used this promo code the maximum number of times",
			HTTPStatus: 400,
		}, nil
	}
	return nil, nil
}

func checkMinimumOrder(_ context.Context, rc *ruleContext) (*model.AppError, error) {
	if rc.promo.MinOrderAmount != nil && rc.originalAmount.LessThan(*rc.promo.MinOrderAmount) {
		return &model.AppError{
			Code:    model.ErrCodeBelowMinimum,
			Message: "order amount is below the minimum for this promo code",
			Details: map[string]interface{}{
				"min_order_amount": rc.promo.MinOrderAmount,
			},
			HTTPStatus: 400,
		}, nil
	}
	return nil, nil
}

func checkApplicableEvents(_ context.Context, rc *ruleContext) (*model.AppError, error) {
	if len(rc.promo.ApplicableEvents) == 0 {
		return nil, nil
	}
	if !contains(rc.promo.ApplicableEvents, rc.eventID) {
		return &model.AppError{
			Code:       model.ErrCodeEventNotEligible,
			Message:    "promo code does not apply to this event",
			HTTPStatus: 400,
		}, nil
	}
	return nil, nil
}

func checkApplicableCategories(_ context.Context, rc *ruleContext) (*model.AppError, error) {
	if len(rc.promo.ApplicableCategories) == 0 {
		return nil, nil
	}
	if !contains(rc.promo.ApplicableCategories, rc.eventCategory) {
		return &model.AppError{
			Code:       model.ErrCodeCategoryNotEligible,
			Message:    "promo code does not apply to this event category",
			HTTPStatus: 400,
		}, nil
	}
	return nil, nil
}

// The deny list wins over the allow lists.
func checkExcludedEvents(_ context.Context, rc *ruleContext) (*model.AppError, error) {
	if contains(rc.promo.ExcludedEvents, rc.eventID) {
		return &model.AppError{
			Code:       model.ErrCodeEventExcluded,
			Message:    "promo code is excluded for this event",
			HTTPStatus: 400,
		}, nil
	}
	return nil, nil
}

func checkTargeting(_ context.Context, rc *ruleContext) (*model.AppError, error) {
	if rc.promo.IsPublic {
		return nil, nil
	}
	if !rc.promo.IsTargetedAt(rc.userID) {
		return &model.AppError{
			Code:       model.ErrCodeNotTargeted,
			Message:    "promo code is not available for your account",
			HTTPStatus: 400,
		}, nil
	}
	return nil, nil
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
