package navigation

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"homecare/internal/middleware"
	"homecare/internal/pkg/geo"
	"homecare/internal/pkg/response"
)

type Handler struct {
	tracker *Tracker
}

func NewHandler(tracker *Tracker) *Handler {
	return &Handler{tracker: tracker}
}

type startRequest struct {
	BookingID string    `json:"bookingId" binding:"required"`
	Origin    geo.Point `json:"origin"`
}

type originRequest struct {
	Origin geo.Point `json:"origin"`
}

// Start godoc
// @Summary Start navigating to a booking
// @Description Geocodes the booking address and returns route, distance and ETA. Replaces a running session for the same booking.
// @Tags Navigation
// @Security BearerAuth
// @Param request body startRequest true "Booking and current position"
// @Success 201 {object} View
// @Failure 422 {object} map[string]interface{} "address could not be geocoded, details.fallbackUrl is set"
// @Router /navigation/sessions [post]
func (h *Handler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "bookingId and origin are required")
		return
	}

	view, err := h.tracker.Start(c.Request.Context(), 0, middleware.UserID(c), req.BookingID, req.Origin)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, view)
}

func (h *Handler) Get(c *gin.Context) {
	view, err := h.tracker.Get(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	if view.StaffID != middleware.UserID(c) {
		response.FromError(c, ErrNotAssignedStaff)
		return
	}
	response.Success(c, http.StatusOK, view)
}

func (h *Handler) UpdateOrigin(c *gin.Context) {
	var req originRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "origin is required")
		return
	}

	view, err := h.tracker.Update(c.Request.Context(), 0, c.Param("id"), middleware.UserID(c), req.Origin)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

func (h *Handler) End(c *gin.Context) {
	if err := h.tracker.End(c.Param("id"), middleware.UserID(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"ended": true})
}

func (h *Handler) fail(c *gin.Context, err error) {
	var miss *GeocodeMissError
	if errors.As(err, &miss) {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "GEOCODE_FAILED", miss.Error(),
			gin.H{"address": miss.Address, "fallbackUrl": miss.FallbackURL})
		return
	}
	response.FromError(c, err)
}
