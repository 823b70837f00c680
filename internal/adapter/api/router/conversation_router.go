package router

import (
	"github.com/labstack/echo/v4"

	"fuddly/internal/adapter/api/handler"
	"fuddly/internal/adapter/api/middleware"
)

func SetupConversationRouter(e *echo.Echo, conversationHandler *handler.ConversationHandler, authMiddleware *middleware.AuthMiddleware, extra ...echo.MiddlewareFunc) {
	conversations := e.Group("/v1/conversations", extra...)
	conversations.Use(authMiddleware.Authenticate)

	conversations.POST("", conversationHandler.CreateConversation)
	conversations.GET("", conversationHandler.ListConversations)
	conversations.GET("/unread", conversationHandler.GetUnreadCount)
	conversations.GET("/:id", conversationHandler.GetConversation)
	conversations.GET("/:id/messages", conversationHandler.GetMessages)
	conversations.PUT("/:id/read", conversationHandler.MarkRead)
}
