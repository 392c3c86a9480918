package signaling

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"homecare/internal/domain/booking"
	"homecare/internal/domain/user"
	"homecare/internal/middleware"
	"homecare/internal/pkg/response"
)

type Mode string

const (
	ModeInAppRelay Mode = "in-app-relay"
	ModeTelLink    Mode = "tel-link"
	ModeNone       Mode = "none"
)

type Capability struct {
	Mode     Mode   `json:"mode"`
	CalleeID string `json:"calleeId,omitempty"`
	TelURI   string `json:"telUri,omitempty"`
}

// Capability decides how caller can reach the other side of booking b: in
// app when the callee has a live connection, a tel: link when only a phone
// number is known, otherwise not at all. b must have its staff resolved.
func (r *Relay) Capability(b *booking.Booking, callerID string) Capability {
	var calleeID, phone string
	if b.AssignedStaffID != nil && *b.AssignedStaffID == callerID {
		if b.RequesterID != nil {
			calleeID = *b.RequesterID
		}
		phone = b.Phone
	} else if b.RequesterID != nil && *b.RequesterID == callerID {
		if b.AssignedStaffID != nil {
			calleeID = *b.AssignedStaffID
		}
		if b.AssignedStaff != nil {
			phone = b.AssignedStaff.Phone
		}
	} else {
		// managers call the requester
		if b.RequesterID != nil {
			calleeID = *b.RequesterID
		}
		phone = b.Phone
	}

	if calleeID != "" && r.presence.Online(calleeID) {
		return Capability{Mode: ModeInAppRelay, CalleeID: calleeID}
	}
	if tel := telURI(phone); tel != "" {
		return Capability{Mode: ModeTelLink, CalleeID: calleeID, TelURI: tel}
	}
	return Capability{Mode: ModeNone, CalleeID: calleeID}
}

func telURI(phone string) string {
	var sb strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '+' && i == 0:
			sb.WriteRune(r)
		}
	}
	digits := strings.TrimPrefix(sb.String(), "+")
	if len(digits) < 3 {
		return ""
	}
	return "tel:" + sb.String()
}

type BookingAccess interface {
	Authorize(ctx context.Context, id, userID string, role user.Role) (*booking.Booking, error)
}

type Handler struct {
	relay    *Relay
	bookings BookingAccess
}

func NewHandler(relay *Relay, bookings BookingAccess) *Handler {
	return &Handler{relay: relay, bookings: bookings}
}

// CallCapability godoc
// @Summary How to call the other side of a booking
// @Tags Calls
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} Capability
// @Router /bookings/{id}/call-capability [get]
func (h *Handler) CallCapability(c *gin.Context) {
	userID := middleware.UserID(c)
	b, err := h.bookings.Authorize(c.Request.Context(), c.Param("id"), userID, user.Role(middleware.Role(c)))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.relay.Capability(b, userID))
}

func RegisterRoutes(protected *gin.RouterGroup, handler *Handler) {
	protected.GET("/bookings/:id/call-capability", handler.CallCapability)
}
