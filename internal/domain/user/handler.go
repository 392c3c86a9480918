package user

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

// Me returns the caller's directory record.
// @Summary Current user
// @Tags Users
// @Security BearerAuth
// @Success 200 {object} User
// @Router /users/me [get]
func (h *Handler) Me(c *gin.Context) {
	u, err := h.service.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}

// List godoc
// @Summary List users
// @Tags Users
// @Security BearerAuth
// @Param role query string false "owner, admin, staff or user"
// @Router /users [get]
func (h *Handler) List(c *gin.Context) {
	users, err := h.service.List(c.Request.Context(), Role(c.Query("role")))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"users": users})
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	u, err := h.service.Create(c.Request.Context(), Role(middleware.Role(c)), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, u)
}

type setRoleRequest struct {
	Role Role `json:"role" binding:"required"`
}

func (h *Handler) SetRole(c *gin.Context) {
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	u, err := h.service.SetRole(c.Request.Context(), Role(middleware.Role(c)), c.Param("id"), req.Role)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}
