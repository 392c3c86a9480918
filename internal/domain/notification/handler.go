package notification

import (
	"net/http"
	"strconv"

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

// GetNotifications godoc
// @Summary List notifications
// @Description Newest first, with the linked booking or null when it no longer exists.
// @Tags Notifications
// @Security BearerAuth
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} ListResponse
// @Router /notifications [get]
func (h *Handler) GetNotifications(c *gin.Context) {
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

	out, err := h.service.List(c.Request.Context(), middleware.UserID(c), limit, offset)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) GetUnreadCount(c *gin.Context) {
	unread, err := h.service.UnreadCount(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unreadCount": unread})
}

func (h *Handler) MarkAsRead(c *gin.Context) {
	n, err := h.service.MarkRead(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, n)
}

func (h *Handler) MarkAllAsRead(c *gin.Context) {
	updated, err := h.service.MarkAllRead(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": updated})
}

// Send godoc
// @Summary Send a notification
// @Description target all notifies every user, one exactly one recipient, some a list of recipients.
// @Tags Notifications
// @Security BearerAuth
// @Param request body SendRequest true "Message and recipients"
// @Router /notifications/send [post]
func (h *Handler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "target and message are required")
		return
	}

	list, err := h.service.Send(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"sent": len(list), "notifications": list})
}
