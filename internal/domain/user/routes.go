package user

import (
	"github.com/gin-gonic/gin"

	"homecare/internal/middleware"
)

// RegisterRoutes mounts the user directory on an authenticated group.
func RegisterRoutes(protected *gin.RouterGroup, handler *Handler) {
	users := protected.Group("/users")
	{
		users.GET("/me", handler.Me)

		managed := users.Group("", middleware.ManagersOnly())
		managed.GET("", handler.List)
		managed.POST("", handler.Create)
		managed.PATCH("/:id/role", handler.SetRole)
	}
}
