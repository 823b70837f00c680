package handler

import (
	"context"
	"net/http"
	"strings"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"fuddly/internal/adapter/api/middleware"
	"fuddly/internal/domain/service"
	ws "fuddly/internal/infrastructure/websocket"
	"fuddly/pkg/errors"
	"fuddly/pkg/logger"
	"fuddly/pkg/response"
)

type WebSocketHandler struct {
	wsManager *ws.Manager
	validator service.TokenValidator
	upgrader  gorillaws.Upgrader
	baseCtx   context.Context
}

// NewWebSocketHandler builds the /ws endpoint. baseCtx bounds the lifetime of
// every accepted connection.
func NewWebSocketHandler(baseCtx context.Context, wsManager *ws.Manager, validator service.TokenValidator, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager: wsManager,
		validator: validator,
		baseCtx:   baseCtx,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// HandleWebSocket authenticates before upgrading; a rejected handshake gets a
// plain 401 and never becomes a socket.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if header := c.Request().Header.Get("Authorization"); header != "" {
		bearer, ok := middleware.BearerToken(header)
		if !ok {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}
		token = bearer
	}

	userID, err := h.validator.Validate(c.Request().Context(), token)
	if err != nil {
		return response.Error(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		logger.Warn("WebSocket: upgrade failed for user %s: %v", userID, err)
		return nil
	}

	h.wsManager.Serve(h.baseCtx, userID, conn)
	return nil
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(origin, "/")] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}
