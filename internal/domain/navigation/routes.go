package navigation

import (
	"github.com/gin-gonic/gin"

	"homecare/internal/domain/user"
	"homecare/internal/middleware"
)

func RegisterRoutes(protected *gin.RouterGroup, handler *Handler) {
	nav := protected.Group("/navigation/sessions")
	nav.Use(middleware.RequireRole(string(user.RoleStaff)))
	{
		nav.POST("", handler.Start)
		nav.GET("/:id", handler.Get)
		nav.PATCH("/:id/origin", handler.UpdateOrigin)
		nav.DELETE("/:id", handler.End)
	}
}
