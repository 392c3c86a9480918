package booking

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"homecare/internal/domain/user"
	"homecare/internal/middleware"
	"homecare/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create godoc
// @Summary Request a home visit
// @Description Anonymous requests are accepted. A bearer token links the booking to the caller.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body Details true "Visit details"
// @Success 201 {object} Booking
// @Failure 400 {object} map[string]interface{}
// @Router /bookings [post]
func (h *Handler) Create(c *gin.Context) {
	var d Details
	if err := c.ShouldBindJSON(&d); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	b, err := h.service.Create(c.Request.Context(), middleware.UserID(c), d)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, b)
}

// List godoc
// @Summary List bookings
// @Tags Bookings
// @Security BearerAuth
// @Param status query string false "pending, confirmed or cancelled"
// @Param staff_id query string false "Assigned staff id"
// @Router /bookings [get]
func (h *Handler) List(c *gin.Context) {
	limit, offset := paging(c)
	f := Filter{
		Status:  Status(c.Query("status")),
		StaffID: c.Query("staff_id"),
	}

	rows, total, err := h.service.List(c.Request.Context(), f, limit, offset)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": rows, "total": total})
}

func (h *Handler) Mine(c *gin.Context) {
	limit, offset := paging(c)
	rows, total, err := h.service.Mine(c.Request.Context(), middleware.UserID(c), user.Role(middleware.Role(c)), limit, offset)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": rows, "total": total})
}

func (h *Handler) Get(c *gin.Context) {
	b, err := h.service.Authorize(c.Request.Context(), c.Param("id"), middleware.UserID(c), user.Role(middleware.Role(c)))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

type statusRequest struct {
	Status Status `json:"status" binding:"required"`
}

// UpdateStatus godoc
// @Summary Change booking status
// @Description Managers may apply any allowed transition. The requester may only cancel.
// @Tags Bookings
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Failure 400,403,404,409 {object} map[string]interface{}
// @Router /bookings/{id}/status [patch]
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "status is required")
		return
	}

	ctx := c.Request.Context()
	role := user.Role(middleware.Role(c))
	if !role.IsManager() {
		b, err := h.service.Authorize(ctx, c.Param("id"), middleware.UserID(c), role)
		if err != nil {
			response.FromError(c, err)
			return
		}
		if req.Status != StatusCancelled || b.RequesterID == nil || *b.RequesterID != middleware.UserID(c) {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Only the requester may cancel this booking")
			return
		}
	}

	b, err := h.service.SetStatus(ctx, c.Param("id"), req.Status)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Stats returns per-month booking counts for ?year= (defaults to the current year).
func (h *Handler) Stats(c *gin.Context) {
	year := time.Now().UTC().Year()
	if s := c.Query("year"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "year must be a number")
			return
		}
		year = v
	}

	months, err := h.service.MonthlyCounts(c.Request.Context(), year)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"year": year, "months": months})
}

func paging(c *gin.Context) (int, int) {
	limit := 20
	if s := c.Query("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = min(v, 100)
		}
	}
	offset := 0
	if s := c.Query("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
