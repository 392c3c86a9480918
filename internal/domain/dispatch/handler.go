package dispatch

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homecare/internal/middleware"
	"homecare/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type assignRequest struct {
	StaffID string `json:"staffId" binding:"required"`
}

// Assign godoc
// @Summary Assign staff to a booking
// @Description Confirms the booking and notifies the staff member.
// @Tags Bookings
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Failure 400,404,409 {object} map[string]interface{}
// @Router /bookings/{id}/assign [post]
func (h *Handler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "staffId is required")
		return
	}

	b, err := h.service.AssignStaff(c.Request.Context(), c.Param("id"), req.StaffID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func RegisterRoutes(protected *gin.RouterGroup, handler *Handler) {
	protected.POST("/bookings/:id/assign", middleware.ManagersOnly(), handler.Assign)
}
