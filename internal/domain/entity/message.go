package entity

import "time"

const MaxMessageLength = 4000

type Message struct {
	ID              string    `json:"id" firestore:"id"`
	ConversationID  string    `json:"conversation_id" firestore:"conversationId"`
	SenderID        string    `json:"sender_id" firestore:"senderId"`
	ReceiverID      string    `json:"receiver_id" firestore:"receiverId"`
	Text            string    `json:"text" firestore:"text"`
	Read            bool      `json:"read" firestore:"read"`
	ClientMessageID string    `json:"client_message_id,omitempty" firestore:"clientMessageId,omitempty"`
	CreatedAt       time.Time `json:"created_at" firestore:"createdAt"`
}

// Before orders messages by creation time, then id, so that any two nodes
// sorting the same set agree on the result.
func (m *Message) Before(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}
