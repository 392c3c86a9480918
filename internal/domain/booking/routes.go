package booking

import (
	"github.com/gin-gonic/gin"

	"homecare/internal/middleware"
)

// RegisterRoutes mounts booking routes. public must carry OptionalJWTAuth so
// signed-in requesters are linked to their bookings.
func RegisterRoutes(public, protected *gin.RouterGroup, handler *Handler) {
	public.POST("/bookings", handler.Create)

	bookings := protected.Group("/bookings")
	{
		bookings.GET("/mine", handler.Mine)
		bookings.GET("/:id", handler.Get)
		bookings.PATCH("/:id/status", handler.UpdateStatus)

		bookings.GET("", middleware.ManagersOnly(), handler.List)
		bookings.DELETE("/:id", middleware.ManagersOnly(), handler.Delete)
	}

	protected.GET("/admin/stats/bookings", middleware.ManagersOnly(), handler.Stats)
}
