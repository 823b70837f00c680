package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	ws "fuddly/internal/infrastructure/websocket"
	"fuddly/pkg/logger"
)

var ErrNotConnected = errors.New("socket not connected")

const writeWait = 10 * time.Second

// Socket keeps one WebSocket to the server open, redialing with capped
// exponential backoff. After every reconnect it calls the reconnect hook so
// the caller can backfill what it missed.
type Socket struct {
	url    string
	token  string
	dialer *websocket.Dialer

	minBackoff time.Duration
	maxBackoff time.Duration

	onFrame     func(ctx context.Context, frame []byte) error
	onReconnect func(ctx context.Context) error

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewSocket(url, token string) *Socket {
	return &Socket{
		url:        url,
		token:      token,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

func (s *Socket) OnFrame(fn func(ctx context.Context, frame []byte) error) {
	s.onFrame = fn
}

func (s *Socket) OnReconnect(fn func(ctx context.Context) error) {
	s.onReconnect = fn
}

// SetBackoff overrides the reconnect delay bounds.
func (s *Socket) SetBackoff(initial, ceiling time.Duration) {
	s.minBackoff = initial
	s.maxBackoff = ceiling
}

// Connected reports whether a connection is currently open.
func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Run dials and reads until ctx is done. A handshake rejected with 401 is
// returned instead of retried.
func (s *Socket) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.minBackoff
	bo.MaxInterval = s.maxBackoff
	bo.Reset()

	connectedBefore := false
	for {
		conn, resp, err := s.dial(ctx)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusUnauthorized {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}

			wait := bo.NextBackOff()
			logger.Warn("Socket: dial failed, retrying in %v: %v", wait, err)
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		bo.Reset()

		s.setConn(conn)
		if connectedBefore && s.onReconnect != nil {
			if err := s.onReconnect(ctx); err != nil {
				logger.Warn("Socket: resync after reconnect failed: %v", err)
			}
		}
		connectedBefore = true

		s.readLoop(ctx, conn)
		s.setConn(nil)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Socket) dial(ctx context.Context) (*websocket.Conn, *http.Response, error) {
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}
	return s.dialer.DialContext(ctx, s.url, header)
}

func (s *Socket) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	defer conn.Close()
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("Socket: connection lost: %v", err)
			}
			return
		}
		if s.onFrame == nil {
			continue
		}
		if err := s.onFrame(ctx, frame); err != nil {
			logger.Warn("Socket: frame handling failed: %v", err)
		}
	}
}

func (s *Socket) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

// Send writes one frame. It fails fast when disconnected; nothing is queued.
func (s *Socket) Send(ctx context.Context, frameType string, data interface{}) error {
	frame, err := ws.NewFrame(frameType, data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = s.conn.SetWriteDeadline(deadline)
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}
