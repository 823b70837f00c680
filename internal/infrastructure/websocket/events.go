package websocket

import (
	"encoding/json"
	"time"
)

// Frame types exchanged over the socket.
const (
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
	MessageTypeSendMessage    = "send_message"
	MessageTypeReceiveMessage = "receive_message"
	MessageTypeMessageSent    = "message_sent"
	MessageTypeError          = "error"
)

// WSMessage is the envelope of every frame in both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// SendMessageData is the payload of a send_message frame.
type SendMessageData struct {
	ConversationID  string `json:"conversationId"`
	Text            string `json:"text"`
	SenderID        string `json:"senderId"`
	ReceiverID      string `json:"receiverId"`
	ClientMessageID string `json:"clientMessageId,omitempty"`
}

type ErrorData struct {
	Message string `json:"message"`
}

type PongData struct {
	Status string `json:"status"`
}

// NewFrame marshals data into an envelope stamped with the current time.
func NewFrame(frameType string, data interface{}) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	return json.Marshal(WSMessage{
		Type:      frameType,
		Data:      raw,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}
