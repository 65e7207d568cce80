package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trailventure-backend/internal/domains/booking/model"
	"trailventure-backend/internal/domains/booking/service"
	promomodel "trailventure-backend/internal/domains/promo/model"
	"trailventure-backend/internal/shared/middleware"
	"trailventure-backend/internal/shared/response"
	"trailventure-backend/pkg/logger"
)

// BookingHandler serves the booking endpoints.
type BookingHandler struct {
	service service.ServiceInterface
}

func NewBookingHandler(bookingService service.ServiceInterface) *BookingHandler {
	return &BookingHandler{service: bookingService}
}

// Create books an event for the authenticated user.
//
// @Summary      Create booking
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        request body model.CreateBookingRequest true "Booking request"
// @Success      201 {object} response.Response{data=model.Booking}
// @Failure      400 {object} response.Response
// @Router       /v1/bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req model.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, string(promomodel.ErrCodeValidationFailed), "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(promomodel.ErrCodeValidationFailed), "invalid request", err)
		return
	}

	userID := middleware.UserIDFromContext(c)
	if userID == nil {
		response.Unauthorized(c, "authentication required")
		return
	}

	booking, err := h.service.Create(c.Request.Context(), *userID, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, booking)
}

// Get returns one booking. Users only see their own; admins see all.
//
// @Summary      Get booking
// @Tags         bookings
// @Produce      json
// @Param        id path string true "Booking ID"
// @Success      200 {object} response.Response{data=model.Booking}
// @Failure      403 {object} response.Response
// @Failure      404 {object} response.Response
// @Router       /v1/bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking id")
		return
	}

	userID := middleware.UserIDFromContext(c)
	if userID == nil {
		response.Unauthorized(c, "authentication required")
		return
	}

	booking, err := h.service.GetByID(c.Request.Context(), *userID, middleware.IsAdmin(c), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, booking)
}

// List returns the authenticated user's bookings.
//
// @Summary      List own bookings
// @Tags         bookings
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(20)
// @Success      200 {object} response.Response{data=[]model.Booking}
// @Router       /v1/bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == nil {
		response.Unauthorized(c, "authentication required")
		return
	}

	page := parseIntQuery(c, "page", 1)
	limit := parseIntQuery(c, "limit", 20)

	bookings, total, err := h.service.ListByUser(c.Request.Context(), *userID, page, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, bookings, response.NewMeta(page, limit, total))
}

func (h *BookingHandler) handleError(c *gin.Context, err error) {
	var appErr *promomodel.AppError
	if errors.As(err, &appErr) {
		response.ErrorWithDetails(c, appErr.HTTPStatus, string(appErr.Code), appErr.Message, appErr.Details)
		return
	}

	logger.Error("Unhandled booking error", err)
	response.ErrorResponse(c, http.StatusInternalServerError, string(promomodel.ErrCodeInternalError), "something went wrong, please try again later")
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
