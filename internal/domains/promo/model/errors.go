package model

type ErrorCode string

const (
	// Eligibility rejections (400)
	ErrCodeInvalidCode         ErrorCode = "INVALID_CODE"
	ErrCodeExpired             ErrorCode = "EXPIRED"
	ErrCodeGlobalLimitExceeded ErrorCode = "GLOBAL_LIMIT_EXCEEDED"
	ErrCodeUserLimitExceeded   ErrorCode = "USER_LIMIT_EXCEEDED"
	ErrCodeBelowMinimum        ErrorCode = "BELOW_MINIMUM"
	ErrCodeEventNotEligible    ErrorCode = "EVENT_NOT_ELIGIBLE"
	ErrCodeCategoryNotEligible ErrorCode = "CATEGORY_NOT_ELIGIBLE"
	ErrCodeEventExcluded       ErrorCode = "EVENT_EXCLUDED"
	ErrCodeNotTargeted         ErrorCode = "NOT_TARGETED"

	// State-conflict rejections (400)
	ErrCodeAlreadyApplied ErrorCode = "ALREADY_APPLIED"
	ErrCodeNoPromoApplied ErrorCode = "NO_PROMO_APPLIED"

	// Authorization / not-found
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"      // 401
	ErrCodeBookingNotFound ErrorCode = "BOOKING_NOT_FOUND" // 404

	// Admin operation errors
	ErrCodeDuplicateCode ErrorCode = "DUPLICATE_CODE" // 409
	ErrCodeCodeNotFound  ErrorCode = "CODE_NOT_FOUND" // 404
	ErrCodeCodeInUse     ErrorCode = "CODE_IN_USE"    // 400

	// Validation errors (400)
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// System errors (500)
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// AppError is a terminal, machine-readable rejection. Code is stable;
// Message is for humans and may change wording.
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Predefined errors for the common rejections that carry no details.
var (
	ErrInvalidCode = &AppError{
		Code:       ErrCodeInvalidCode,
		Message:    "promo code does not exist or is no longer active",
		HTTPStatus: 400,
	}

	ErrAlreadyApplied = &AppError{
		Code:       ErrCodeAlreadyApplied,
		Message:    "a promo code is already applied to this booking",
		HTTPStatus: 400,
	}

	ErrNoPromoApplied = &AppError{
		Code:       ErrCodeNoPromoApplied,
		Message:    "no promo code is applied to this booking",
		HTTPStatus: 404,
	}

	ErrUnauthorized = &AppError{
		Code:       ErrCodeUnauthorized,
		Message:    "you do not have access to this booking",
		HTTPStatus: 401,
	}

	ErrBookingNotFound = &AppError{
		Code:       ErrCodeBookingNotFound,
		Message:    "booking not found",
		HTTPStatus: 404,
	}

	ErrCodeNotFoundErr = &AppError{
		Code:       ErrCodeCodeNotFound,
		Message:    "promo code not found",
		HTTPStatus: 404,
	}

	ErrCodeInUseErr = &AppError{
		Code:       ErrCodeCodeInUse,
		Message:    "promo code has usage history and can only be retired",
		HTTPStatus: 400,
	}

	ErrInternal = &AppError{
		Code:       ErrCodeInternalError,
		Message:    "something went wrong, please try again later",
		HTTPStatus: 500,
	}
)
