package usecase

import (
	"github.com/google/uuid"
)

var (
	conversationNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("fuddly:conversation"))
	messageNamespace      = uuid.NewSHA1(uuid.NameSpaceURL, []byte("fuddly:message"))
)

// ConversationID derives the id of the conversation for a (product, buyer,
// seller) triple. Concurrent get-or-create calls for one triple therefore all
// target the same document.
func ConversationID(productID, buyerID, sellerID string) string {
	return uuid.NewSHA1(conversationNamespace, []byte(productID+"\x00"+buyerID+"\x00"+sellerID)).String()
}

// MessageID returns a random id, or a stable one when the sender supplied an
// idempotency key, so a retried send maps onto the already stored message.
func MessageID(conversationID, senderID, clientMessageID string) string {
	if clientMessageID == "" {
		return uuid.New().String()
	}
	return uuid.NewSHA1(messageNamespace, []byte(conversationID+"\x00"+senderID+"\x00"+clientMessageID)).String()
}
