package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trailventure-backend/internal/domains/promo/model"
	"trailventure-backend/internal/domains/promo/service"
	"trailventure-backend/internal/shared/response"
)

// AdminHandler serves the promo code management endpoints. All routes are
// behind the admin middleware.
type AdminHandler struct {
	service service.ServiceInterface
}

func NewAdminHandler(promoService service.ServiceInterface) *AdminHandler {
	return &AdminHandler{service: promoService}
}

// Create creates a new promo code.
//
// @Summary      Create promo code
// @Tags         admin-promotions
// @Accept       json
// @Produce      json
// @Param        request body model.CreateCodeRequest true "Create request"
// @Success      201 {object} response.Response{data=model.PromoCode}
// @Failure      400 {object} response.Response
// @Failure      409 {object} response.Response
// @Router       /v1/admin/promotions [post]
func (h *AdminHandler) Create(c *gin.Context) {
	var req model.CreateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request", err)
		return
	}

	promo, err := h.service.CreateCode(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, promo)
}

// Get returns one promo code with full details.
//
// @Summary      Get promo code
// @Tags         admin-promotions
// @Produce      json
// @Param        id path string true "Promo code ID"
// @Success      200 {object} response.Response{data=model.PromoCode}
// @Failure      404 {object} response.Response
// @Router       /v1/admin/promotions/{id} [get]
func (h *AdminHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid promo code id")
		return
	}

	promo, err := h.service.GetCode(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, promo)
}

// List returns promo codes with filtering and pagination.
//
// @Summary      List promo codes
// @Tags         admin-promotions
// @Produce      json
// @Param        status query string false "Filter by status (active|retired)"
// @Param        search query string false "Search code or description"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} response.Response{data=[]model.PromoCode}
// @Router       /v1/admin/promotions [get]
func (h *AdminHandler) List(c *gin.Context) {
	var filter model.ListCodesFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}

	promos, total, err := h.service.ListCodes(c.Request.Context(), &filter)
	if err != nil {
		handleError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, promos, response.NewMeta(filter.Page, filter.PageSize, total))
}

// Update partially updates a promo code.
//
// @Summary      Update promo code
// @Tags         admin-promotions
// @Accept       json
// @Produce      json
// @Param        id path string true "Promo code ID"
// @Param        request body model.UpdateCodeRequest true "Update request"
// @Success      200 {object} response.Response{data=model.PromoCode}
// @Failure      400 {object} response.Response
// @Failure      404 {object} response.Response
// @Router       /v1/admin/promotions/{id} [patch]
func (h *AdminHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid promo code id")
		return
	}

	var req model.UpdateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request", err)
		return
	}

	promo, err := h.service.UpdateCode(c.Request.Context(), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, promo)
}

// UpdateStatus activates or retires a promo code.
//
// @Summary      Update promo code status
// @Tags         admin-promotions
// @Accept       json
// @Produce      json
// @Param        id path string true "Promo code ID"
// @Param        request body model.UpdateStatusRequest true "Status request"
// @Success      200 {object} response.Response
// @Failure      404 {object} response.Response
// @Router       /v1/admin/promotions/{id}/status [patch]
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid promo code id")
		return
	}

	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(model.ErrCodeValidationFailed), "invalid request", err)
		return
	}

	if err := h.service.UpdateStatus(c.Request.Context(), id, model.CodeStatus(req.Status)); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"id": id, "status": req.Status})
}

// Delete hard-deletes an unused promo code. Codes with usage history are
// rejected with CODE_IN_USE; retire those instead.
//
// @Summary      Delete promo code
// @Tags         admin-promotions
// @Produce      json
// @Param        id path string true "Promo code ID"
// @Success      200 {object} response.Response
// @Failure      400 {object} response.Response
// @Failure      404 {object} response.Response
// @Router       /v1/admin/promotions/{id} [delete]
func (h *AdminHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid promo code id")
		return
	}

	if err := h.service.DeleteCode(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// UsageHistory returns the usage ledger for one code.
//
// @Summary      Promo code usage history
// @Tags         admin-promotions
// @Produce      json
// @Param        id path string true "Promo code ID"
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(20)
// @Success      200 {object} response.Response{data=[]model.UsageRecord}
// @Failure      404 {object} response.Response
// @Router       /v1/admin/promotions/{id}/usages [get]
func (h *AdminHandler) UsageHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid promo code id")
		return
	}

	page := parseIntQuery(c, "page", 1)
	limit := parseIntQuery(c, "limit", 20)

	usages, total, err := h.service.GetUsageHistory(c.Request.Context(), id, page, limit)
	if err != nil {
		handleError(c, err)
		return
	}

	records := make([]model.UsageRecord, 0, len(usages))
	for _, u := range usages {
		records = append(records, model.UsageRecord{
			ID:             u.ID,
			UserID:         u.UserID,
			BookingID:      u.BookingID,
			OriginalAmount: u.OriginalAmount,
			DiscountAmount: u.DiscountAmount,
			FinalAmount:    u.FinalAmount,
			UsedAt:         u.UsedAt,
		})
	}

	response.SuccessWithMeta(c, http.StatusOK, records, response.NewMeta(page, limit, total))
}

// UsageStats returns the aggregate usage summary for one code.
//
// @Summary      Promo code usage stats
// @Tags         admin-promotions
// @Produce      json
// @Param        id path string true "Promo code ID"
// @Success      200 {object} response.Response{data=model.UsageStats}
// @Failure      404 {object} response.Response
// @Router       /v1/admin/promotions/{id}/stats [get]
func (h *AdminHandler) UsageStats(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid promo code id")
		return
	}

	stats, err := h.service.GetUsageStats(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
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
