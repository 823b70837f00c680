package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuddly/internal/adapter/api"
	"fuddly/internal/adapter/api/handler"
	"fuddly/internal/adapter/api/middleware"
	"fuddly/internal/adapter/api/router"
	"fuddly/internal/adapter/repository"
	"fuddly/internal/client"
	"fuddly/internal/client/chatsync"
	"fuddly/internal/domain/entity"
	ws "fuddly/internal/infrastructure/websocket"
	"fuddly/internal/usecase"
	apperrors "fuddly/pkg/errors"
)

type tokens map[string]string

func (t tokens) Validate(ctx context.Context, token string) (string, error) {
	if uid, ok := t[token]; ok {
		return uid, nil
	}
	return "", apperrors.Unauthorized("Invalid or expired token", nil)
}

type catalog struct{}

func (catalog) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	if id != "lamp" {
		return nil, apperrors.NotFound("Product", nil)
	}
	return &entity.Product{ID: "lamp", Title: "Lamp", SellerID: "seller"}, nil
}

type stack struct {
	server   *httptest.Server
	manager  *ws.Manager
	messages *usecase.MessageUseCase
}

func newStack(t *testing.T) *stack {
	t.Helper()

	convRepo := repository.NewMemoryConversationRepository()
	msgRepo := repository.NewMemoryMessageRepository()
	conversations := usecase.NewConversationUseCase(convRepo, msgRepo, catalog{}, nil)
	messages := usecase.NewMessageUseCase(convRepo, msgRepo)
	validator := tokens{"t-buyer": "buyer", "t-seller": "seller"}

	ctx, cancel := context.WithCancel(context.Background())
	manager := ws.NewManager(messages, conversations, ws.Options{})

	e := echo.New()
	e.Validator = api.NewValidator()
	router.Setup(e, router.Handlers{
		Conversation: handler.NewConversationHandler(conversations, messages),
		WebSocket:    handler.NewWebSocketHandler(ctx, manager, validator, []string{"*"}),
		Health:       handler.NewHealthHandler(),
	}, middleware.NewAuthMiddleware(validator))

	server := httptest.NewServer(e)
	t.Cleanup(func() {
		manager.Shutdown()
		server.Close()
		cancel()
	})

	return &stack{server: server, manager: manager, messages: messages}
}

func (s *stack) wsURL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
}

type participant struct {
	api        *client.API
	socket     *client.Socket
	syncer     *chatsync.Syncer
	reconnects int32
}

func (s *stack) connect(t *testing.T, ctx context.Context, user, token string) *participant {
	t.Helper()

	p := &participant{
		api:    client.NewAPI(s.server.URL, token, s.server.Client()),
		socket: client.NewSocket(s.wsURL(), token),
	}
	p.syncer = chatsync.NewSyncer(chatsync.NewStore(user), p.api, p.socket)
	p.socket.SetBackoff(10*time.Millisecond, 50*time.Millisecond)
	p.socket.OnFrame(p.syncer.HandleEvent)
	p.socket.OnReconnect(func(ctx context.Context) error {
		atomic.AddInt32(&p.reconnects, 1)
		return p.syncer.Resync(ctx)
	})

	go func() { _ = p.socket.Run(ctx) }()
	require.Eventually(t, p.socket.Connected, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return s.manager.Connections(user) > 0 }, 2*time.Second, 5*time.Millisecond)
	return p
}

func TestAPI_ConversationLifecycle(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	buyer := client.NewAPI(s.server.URL, "t-buyer", nil)
	seller := client.NewAPI(s.server.URL, "t-seller", nil)

	conv, created, err := buyer.CreateConversation(ctx, "lamp", "buyer", "seller")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := buyer.CreateConversation(ctx, "lamp", "buyer", "seller")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)

	_, _, err = seller.CreateConversation(ctx, "lamp", "buyer", "seller")
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, apperrors.CodeForbidden, apiErr.Code)

	_, _, err = s.messages.Append(ctx, usecase.AppendInput{ConversationID: conv.ID, SenderID: "seller", ReceiverID: "buyer", Text: "Hello"})
	require.NoError(t, err)

	count, err := buyer.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	page, err := buyer.Messages(ctx, conv.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.False(t, page[0].Read)

	marked, err := buyer.MarkRead(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	list, err := buyer.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].UnreadCount)
	assert.Equal(t, "Hello", list[0].LastMessage.Text)

	got, err := seller.Conversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "buyer", got.BuyerID)

	_, err = client.NewAPI(s.server.URL, "forged", nil).ListConversations(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestSocket_LiveDeliveryAndResyncAfterReconnect(t *testing.T) {
	s := newStack(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	buyer := s.connect(t, ctx, "buyer", "t-buyer")
	seller := s.connect(t, ctx, "seller", "t-seller")

	conv, _, err := buyer.api.CreateConversation(ctx, "lamp", "buyer", "seller")
	require.NoError(t, err)
	require.NoError(t, buyer.syncer.LoadConversations(ctx))
	require.NoError(t, seller.syncer.LoadConversations(ctx))

	_, err = buyer.syncer.Send(ctx, conv.ID, "Is it available?")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(seller.syncer.Store().Messages(conv.ID)) == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(buyer.syncer.Store().Messages(conv.ID)) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, seller.syncer.Store().Unread(conv.ID))

	// stored without a push, so only the post-reconnect resync can surface it
	require.NoError(t, seller.syncer.Open(ctx, conv.ID))
	_, _, err = s.messages.Append(ctx, usecase.AppendInput{ConversationID: conv.ID, SenderID: "buyer", ReceiverID: "seller", Text: "sent while you were away"})
	require.NoError(t, err)
	assert.Len(t, seller.syncer.Store().Messages(conv.ID), 1)

	s.manager.Shutdown()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&seller.reconnects) > 0 }, 3*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(seller.syncer.Store().Messages(conv.ID)) == 2 }, 3*time.Second, 5*time.Millisecond)

	msgs := seller.syncer.Store().Messages(conv.ID)
	assert.Equal(t, "sent while you were away", msgs[1].Text)
	assert.Eventually(t, func() bool { return seller.syncer.Store().Unread(conv.ID) == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestSocket_RejectedHandshakeStops(t *testing.T) {
	s := newStack(t)
	socket := client.NewSocket(s.wsURL(), "forged")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := socket.Run(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, socket.Send(ctx, ws.MessageTypePing, nil), client.ErrNotConnected)
}
