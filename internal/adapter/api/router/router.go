package router

import (
	"github.com/labstack/echo/v4"

	"fuddly/internal/adapter/api/handler"
	"fuddly/internal/adapter/api/middleware"
)

type Handlers struct {
	Conversation *handler.ConversationHandler
	WebSocket    *handler.WebSocketHandler
	Health       *handler.HealthHandler
}

// Setup mounts every route. restMiddleware applies to /v1 only.
func Setup(e *echo.Echo, h Handlers, authMiddleware *middleware.AuthMiddleware, restMiddleware ...echo.MiddlewareFunc) {
	SetupHealthRouter(e, h.Health)
	SetupConversationRouter(e, h.Conversation, authMiddleware, restMiddleware...)
	SetupWebSocketRouter(e, h.WebSocket)
}
