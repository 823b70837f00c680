package websocket

import (
	"context"
	"encoding/json"

	"fuddly/internal/domain/entity"
	"fuddly/internal/usecase"
	"fuddly/pkg/errors"
	"fuddly/pkg/logger"
)

// HandleClientMessage dispatches one inbound frame. Failures are reported to
// the originating connection as error frames; the socket stays open.
func (m *Manager) HandleClientMessage(ctx context.Context, client *Client, messageBytes []byte) {
	var wsMessage WSMessage
	if err := json.Unmarshal(messageBytes, &wsMessage); err != nil {
		logger.Debug("WebSocket: bad frame from client %s: %v", client.ID, err)
		m.sendErrorToClient(client, "Invalid message format")
		return
	}

	switch wsMessage.Type {
	case MessageTypePing:
		m.sendToClient(client, MessageTypePong, PongData{Status: "alive"})

	case MessageTypeSendMessage:
		m.handleSendMessage(ctx, client, wsMessage.Data)

	default:
		logger.Debug("WebSocket: unknown frame type %q from client %s", wsMessage.Type, client.ID)
		m.sendErrorToClient(client, "Unknown message type")
	}
}

func (m *Manager) handleSendMessage(ctx context.Context, client *Client, data json.RawMessage) {
	var payload SendMessageData
	if len(data) == 0 {
		m.sendErrorToClient(client, "Invalid send_message payload")
		return
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		m.sendErrorToClient(client, "Invalid send_message payload")
		return
	}

	if payload.SenderID != client.UserID {
		m.sendErrorToClient(client, "Sender ID mismatch")
		return
	}

	if m.limiter != nil && !m.limiter.Allow(client.UserID) {
		m.sendErrorToClient(client, "Too many messages, slow down")
		return
	}

	if _, _, err := m.persistAndDeliver(ctx, client, payload); err != nil {
		if errors.Is(err, errors.CodeInternal) || !isAppError(err) {
			logger.Error("WebSocket: send_message from %s failed: %v", client.UserID, err)
		}
		m.sendErrorToClient(client, sendFailureMessage(err))
	}
}

// persistAndDeliver holds the conversation lock from append through both
// pushes and the event publish, so pushes and events for a conversation
// follow stored order.
func (m *Manager) persistAndDeliver(ctx context.Context, client *Client, payload SendMessageData) (*entity.Message, bool, error) {
	unlock := m.convLocks.Lock(payload.ConversationID)
	defer unlock()

	storeCtx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	msg, duplicate, err := m.messages.Append(storeCtx, usecase.AppendInput{
		ConversationID:  payload.ConversationID,
		SenderID:        payload.SenderID,
		ReceiverID:      payload.ReceiverID,
		Text:            payload.Text,
		ClientMessageID: payload.ClientMessageID,
	})
	if err != nil {
		return nil, false, err
	}

	if !duplicate {
		touchCtx, cancelTouch := context.WithTimeout(ctx, m.storeTimeout)
		defer cancelTouch()
		if err := m.conversations.Touch(touchCtx, msg.ConversationID); err != nil {
			logger.Warn("WebSocket: failed to touch conversation %s: %v", msg.ConversationID, err)
		}
	}

	m.SendToUser(ctx, msg.ReceiverID, MessageTypeReceiveMessage, msg)
	m.SendToUser(ctx, client.UserID, MessageTypeMessageSent, msg)

	if !duplicate {
		m.publishCreated(ctx, msg)
	}

	return msg, duplicate, nil
}

// publishCreated is best-effort; it outlives a cancelled ctx but not the
// store timeout.
func (m *Manager) publishCreated(ctx context.Context, msg *entity.Message) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.storeTimeout)
	defer cancel()
	if err := m.publisher.PublishMessageCreated(pubCtx, msg); err != nil {
		logger.Warn("WebSocket: failed to publish message %s: %v", msg.ID, err)
	}
}

func isAppError(err error) bool {
	var appErr *errors.AppError
	return errors.As(err, &appErr)
}

func sendFailureMessage(err error) string {
	if isAppError(err) && !errors.Is(err, errors.CodeInternal) {
		return errors.Message(err)
	}
	return "Failed to send message"
}
