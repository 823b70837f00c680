package entity

import "time"

// Conversation is the single chat thread between one buyer and one seller
// about one product.
type Conversation struct {
	ID           string    `json:"id" firestore:"id"`
	ProductID    string    `json:"product_id" firestore:"productId"`
	BuyerID      string    `json:"buyer_id" firestore:"buyerId"`
	SellerID     string    `json:"seller_id" firestore:"sellerId"`
	Participants []string  `json:"-" firestore:"participants"`
	CreatedAt    time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt    time.Time `json:"updated_at" firestore:"updatedAt"`
}

// HasParticipant reports whether userID is the buyer or the seller.
func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.BuyerID == userID || c.SellerID == userID)
}

// Counterpart returns the other participant, or "" if userID is not one.
func (c *Conversation) Counterpart(userID string) string {
	switch userID {
	case c.BuyerID:
		return c.SellerID
	case c.SellerID:
		return c.BuyerID
	}
	return ""
}

// ConversationSummary is a conversation as seen by one viewer in their list.
type ConversationSummary struct {
	*Conversation
	LastMessage *Message        `json:"last_message"`
	UnreadCount int             `json:"unread_count"`
	Product     *ProductSummary `json:"product,omitempty"`
	OtherUser   *User           `json:"other_user,omitempty"`
}
