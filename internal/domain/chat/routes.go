package chat

import "github.com/gin-gonic/gin"

func RegisterRoutes(protected *gin.RouterGroup, handler *Handler) {
	messages := protected.Group("/bookings/:id/messages")
	{
		messages.GET("", handler.GetMessages)
		messages.POST("", handler.SendMessage)
		messages.POST("/read", handler.MarkRead)
		messages.GET("/unread-count", handler.UnreadCount)
	}
}
