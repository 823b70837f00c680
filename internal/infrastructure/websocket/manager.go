package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fuddly/internal/domain/entity"
	"fuddly/internal/infrastructure/bus"
	"fuddly/internal/infrastructure/events"
	"fuddly/internal/infrastructure/ratelimit"
	"fuddly/internal/usecase"
	"fuddly/pkg/logger"
)

const defaultStoreTimeout = 5 * time.Second

type MessageAppender interface {
	Append(ctx context.Context, input usecase.AppendInput) (*entity.Message, bool, error)
}

type ConversationToucher interface {
	Touch(ctx context.Context, conversationID string) error
}

type Options struct {
	// Bus fans deliveries out to other gateway instances. Nil keeps
	// delivery inside this process.
	Bus          bus.Bus
	Publisher    events.Publisher
	Limiter      *ratelimit.RateLimiter
	StoreTimeout time.Duration
}

// Manager tracks live sockets per user and runs the send pipeline.
type Manager struct {
	mu        sync.RWMutex
	addresses map[string]map[*Client]struct{}

	messages      MessageAppender
	conversations ConversationToucher
	bus           bus.Bus
	publisher     events.Publisher
	limiter       *ratelimit.RateLimiter
	storeTimeout  time.Duration
	convLocks     *keyedMutex
	instanceID    string
}

func NewManager(messages MessageAppender, conversations ConversationToucher, opts Options) *Manager {
	if opts.Publisher == nil {
		opts.Publisher = events.NewNoopPublisher()
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}

	return &Manager{
		addresses:     make(map[string]map[*Client]struct{}),
		messages:      messages,
		conversations: conversations,
		bus:           opts.Bus,
		publisher:     opts.Publisher,
		limiter:       opts.Limiter,
		storeTimeout:  opts.StoreTimeout,
		convLocks:     newKeyedMutex(),
		instanceID:    uuid.NewString(),
	}
}

// Start subscribes to the delivery bus, if any.
func (m *Manager) Start(ctx context.Context) error {
	if m.bus == nil {
		return nil
	}
	return m.bus.Subscribe(ctx, func(d bus.Delivery) {
		if d.Origin == m.instanceID {
			return
		}
		m.deliverLocal(d.UserID, d.Frame)
	})
}

// Serve registers an upgraded connection for userID and starts its pumps.
func (m *Manager) Serve(ctx context.Context, userID string, conn *websocket.Conn) *Client {
	client := newClient(userID, conn)
	m.Register(client)

	go client.WritePump()
	go client.ReadPump(ctx, m)

	return client
}

func (m *Manager) Register(c *Client) {
	m.mu.Lock()
	set, ok := m.addresses[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		m.addresses[c.UserID] = set
	}
	set[c] = struct{}{}
	count := len(set)
	m.mu.Unlock()

	logger.Info("WebSocket: client %s registered for user %s (%d connections)", c.ID, c.UserID, count)
}

// Unregister removes c and closes its send channel. Safe to call twice.
func (m *Manager) Unregister(c *Client) {
	m.mu.Lock()
	set, ok := m.addresses[c.UserID]
	if !ok {
		m.mu.Unlock()
		return
	}
	if _, ok := set[c]; !ok {
		m.mu.Unlock()
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(m.addresses, c.UserID)
	}
	close(c.Send)
	m.mu.Unlock()

	logger.Info("WebSocket: client %s unregistered for user %s", c.ID, c.UserID)
}

// Connections reports how many sockets userID holds on this instance.
func (m *Manager) Connections(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.addresses[userID])
}

// SendToUser pushes a frame to every connection of userID, here and on
// other instances.
func (m *Manager) SendToUser(ctx context.Context, userID, frameType string, data interface{}) {
	frame, err := NewFrame(frameType, data)
	if err != nil {
		logger.Error("WebSocket: failed to encode %s frame: %v", frameType, err)
		return
	}

	m.deliverLocal(userID, frame)

	if m.bus == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()
	if err := m.bus.Publish(pubCtx, bus.Delivery{Origin: m.instanceID, UserID: userID, Frame: frame}); err != nil {
		logger.Warn("WebSocket: bus publish for user %s failed: %v", userID, err)
	}
}

func (m *Manager) deliverLocal(userID string, frame []byte) {
	var slow []*Client

	m.mu.RLock()
	for c := range m.addresses[userID] {
		select {
		case c.Send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range slow {
		logger.Warn("WebSocket: client %s send buffer full, dropping connection", c.ID)
		m.Unregister(c)
	}
}

func (m *Manager) sendToClient(c *Client, frameType string, data interface{}) {
	frame, err := NewFrame(frameType, data)
	if err != nil {
		logger.Error("WebSocket: failed to encode %s frame: %v", frameType, err)
		return
	}

	m.mu.RLock()
	_, live := m.addresses[c.UserID][c]
	full := false
	if live {
		select {
		case c.Send <- frame:
		default:
			full = true
		}
	}
	m.mu.RUnlock()

	if full {
		logger.Warn("WebSocket: client %s send buffer full, dropping connection", c.ID)
		m.Unregister(c)
	}
}

func (m *Manager) sendErrorToClient(c *Client, message string) {
	m.sendToClient(c, MessageTypeError, ErrorData{Message: message})
}

// Shutdown closes every connection. Sends already past the rate limit finish
// on their own.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	var all []*Client
	for _, set := range m.addresses {
		for c := range set {
			all = append(all, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range all {
		m.Unregister(c)
	}
}
