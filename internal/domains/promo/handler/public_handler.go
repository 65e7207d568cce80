package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trailventure-backend/internal/domains/promo/model"
	"trailventure-backend/internal/domains/promo/service"
	"trailventure-backend/internal/shared/middleware"
	"trailventure-backend/internal/shared/response"
	"trailventure-backend/pkg/logger"
)

// PublicHandler serves the user-facing promo endpoints.
type PublicHandler struct {
	service service.ServiceInterface
}

func NewPublicHandler(promoService service.ServiceInterface) *PublicHandler {
	return &PublicHandler{service: promoService}
}

// Validate runs a dry-run eligibility check against a prospective order.
//
// @Summary      Validate promo code
// @Tags         promotions
// @Accept       json
// @Produce      json
// @Param        request body model.ValidateRequest true "Validate request"
// @Success      200 {object} response.Response{data=model.ValidationResult}
// @Failure      400 {object} response.Response
// @Router       /v1/promotions/validate [post]
func (h *PublicHandler) Validate(c *gin.Context) {
	var req model.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request", err)
		return
	}

	userID := middleware.UserIDFromContext(c)
	if userID == nil {
		response.Unauthorized(c, "authentication required")
		return
	}

	result, err := h.service.Validate(c.Request.Context(), *userID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ListActive returns the publicly visible active codes.
//
// @Summary      List active promo codes
// @Tags         promotions
// @Produce      json
// @Success      200 {object} response.Response{data=[]model.PromoCodeInfo}
// @Router       /v1/promotions [get]
func (h *PublicHandler) ListActive(c *gin.Context) {
	infos, err := h.service.ListPublicActive(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, infos)
}

// Apply attaches a promo code to a booking.
//
// @Summary      Apply promo code to booking
// @Tags         promotions
// @Accept       json
// @Produce      json
// @Param        id path string true "Booking ID"
// @Param        request body model.ApplyRequest true "Apply request"
// @Success      200 {object} response.Response{data=model.AppliedDiscount}
// @Failure      400 {object} response.Response
// @Failure      403 {object} response.Response
// @Failure      404 {object} response.Response
// @Router       /v1/bookings/{id}/promo [post]
func (h *PublicHandler) Apply(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking id")
		return
	}

	var req model.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request", err)
		return
	}

	userID := middleware.UserIDFromContext(c)
	if userID == nil {
		response.Unauthorized(c, "authentication required")
		return
	}

	applied, err := h.service.Apply(c.Request.Context(), *userID, middleware.IsAdmin(c), bookingID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, applied)
}

// Remove detaches the promo code from a booking and restores its amounts.
//
// @Summary      Remove promo code from booking
// @Tags         promotions
// @Produce      json
// @Param        id path string true "Booking ID"
// @Success      200 {object} response.Response{data=model.AppliedDiscount}
// @Failure      403 {object} response.Response
// @Failure      404 {object} response.Response
// @Router       /v1/bookings/{id}/promo [delete]
func (h *PublicHandler) Remove(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking id")
		return
	}

	userID := middleware.UserIDFromContext(c)
	if userID == nil {
		response.Unauthorized(c, "authentication required")
		return
	}

	restored, err := h.service.Remove(c.Request.Context(), *userID, middleware.IsAdmin(c), bookingID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, restored)
}

// handleError maps service errors to HTTP responses. AppErrors carry their
// own status and stable code; anything else is a 500.
func handleError(c *gin.Context, err error) {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		response.ErrorWithDetails(c, appErr.HTTPStatus, string(appErr.Code), appErr.Message, appErr.Details)
		return
	}

	logger.Error("Unhandled promo error", err)
	response.ErrorResponse(c, http.StatusInternalServerError, string(model.ErrCodeInternalError), "something went wrong, please try again later")
}
