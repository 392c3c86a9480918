package chat

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"homecare/internal/domain/user"
	"homecare/internal/middleware"
	"homecare/internal/pkg/response"
)

type UserLookup interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

type Handler struct {
	service *Service
	users   UserLookup
}

func NewHandler(service *Service, users UserLookup) *Handler {
	return &Handler{service: service, users: users}
}

// GetMessages godoc
// @Summary Booking chat history
// @Description Most recent messages, oldest first.
// @Tags Chat
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param limit query int false "Window size (default and max 100)"
// @Router /bookings/{id}/messages [get]
func (h *Handler) GetMessages(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			limit = v
		}
	}

	msgs, err := h.service.List(c.Request.Context(), c.Param("id"), middleware.UserID(c), user.Role(middleware.Role(c)), limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage godoc
// @Summary Post a chat message
// @Tags Chat
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body SendMessageRequest true "Body and/or media"
// @Router /bookings/{id}/messages [post]
func (h *Handler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	sender, err := h.users.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	msg, err := h.service.Send(ctx, SendInput{
		BookingID:   c.Param("id"),
		SenderID:    sender.ID,
		SenderName:  sender.Name,
		SenderRole:  middleware.Role(c),
		Body:        req.Body,
		MessageType: req.MessageType,
		Media:       req.Media,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, msg)
}

func (h *Handler) MarkRead(c *gin.Context) {
	n, err := h.service.MarkRead(c.Request.Context(), c.Param("id"), middleware.UserID(c), user.Role(middleware.Role(c)))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": n})
}

func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.service.UnreadCount(c.Request.Context(), c.Param("id"), middleware.UserID(c), user.Role(middleware.Role(c)))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unreadCount": n})
}
