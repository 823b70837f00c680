package chatsync

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuddly/internal/domain/entity"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func message(id string, at int, from, to string) *entity.Message {
	return &entity.Message{
		ID:             id,
		ConversationID: "c1",
		SenderID:       from,
		ReceiverID:     to,
		Text:           "text " + id,
		CreatedAt:      base.Add(time.Duration(at) * time.Second),
	}
}

func summary(id string, updated int, unread int) *entity.ConversationSummary {
	return &entity.ConversationSummary{
		Conversation: &entity.Conversation{
			ID:        id,
			ProductID: "p-" + id,
			BuyerID:   "me",
			SellerID:  "seller",
			UpdatedAt: base.Add(time.Duration(updated) * time.Second),
		},
		UnreadCount: unread,
	}
}

func ids(msgs []entity.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestMerge_OrderIndependentAndDeduplicated(t *testing.T) {
	all := []*entity.Message{
		message("a", 1, "seller", "me"),
		message("b", 2, "me", "seller"),
		message("d", 3, "seller", "me"),
		message("c", 3, "seller", "me"),
		message("e", 4, "me", "seller"),
	}

	reference := NewStore("me")
	reference.ApplyPage("c1", all, 0, 50)
	want := ids(reference.Messages("c1"))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, want)

	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		shuffled := append([]*entity.Message(nil), all...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		s := NewStore("me")
		s.SetConversations([]*entity.ConversationSummary{summary("c1", 0, 0)})
		s.ApplyPage("c1", shuffled[:2], 0, 50)
		for _, m := range shuffled {
			s.ApplyPush(PushReceived, m)
		}
		s.ApplyPage("c1", shuffled[1:], 0, 50)

		assert.Equal(t, want, ids(s.Messages("c1")), "round %d", round)
	}
}

func TestMerge_CapKeepsNewest(t *testing.T) {
	s := NewStore("me")

	var page []*entity.Message
	for i := 0; i < MaxMessagesPerConversation+20; i++ {
		page = append(page, message(fmt.Sprintf("m%04d", i), i, "seller", "me"))
	}
	s.ApplyPage("c1", page, 0, len(page))

	msgs := s.Messages("c1")
	require.Len(t, msgs, MaxMessagesPerConversation)
	assert.Equal(t, "m0020", msgs[0].ID)
	assert.Equal(t, fmt.Sprintf("m%04d", MaxMessagesPerConversation+19), msgs[len(msgs)-1].ID)
}

func TestApplyPage_Pagination(t *testing.T) {
	s := NewStore("me")

	s.ApplyPage("c1", []*entity.Message{message("e", 5, "seller", "me"), message("d", 4, "seller", "me")}, 0, 2)
	assert.Equal(t, PageState{Loaded: true, NextOffset: 2, HasMore: true}, s.Pagination("c1"))

	s.ApplyPage("c1", []*entity.Message{message("c", 3, "seller", "me")}, 2, 2)
	assert.Equal(t, PageState{Loaded: true, NextOffset: 3, HasMore: false}, s.Pagination("c1"))
}

func TestApplyPage_RefreshKeepsDeeperCursor(t *testing.T) {
	s := NewStore("me")
	s.ApplyPage("c1", []*entity.Message{message("d", 4, "seller", "me"), message("c", 3, "seller", "me")}, 0, 2)
	s.ApplyPage("c1", []*entity.Message{message("b", 2, "seller", "me"), message("a", 1, "seller", "me")}, 2, 2)

	// two messages arrived while offline
	s.ApplyPage("c1", []*entity.Message{message("f", 6, "seller", "me"), message("e", 5, "seller", "me")}, 0, 2)

	assert.Equal(t, 6, s.Pagination("c1").NextOffset)
	assert.True(t, s.Pagination("c1").HasMore)
}

func TestApplyPush_UnreadPolicy(t *testing.T) {
	s := NewStore("me")
	s.SetConversations([]*entity.ConversationSummary{summary("c1", 0, 2)})
	s.ApplyPage("c1", []*entity.Message{message("a", 1, "seller", "me")}, 0, 50)

	incoming := message("b", 2, "seller", "me")
	eff := s.ApplyPush(PushReceived, incoming)
	assert.Equal(t, Effect{}, eff)
	assert.Equal(t, 3, s.Unread("c1"))
	assert.Equal(t, 2, s.Pagination("c1").NextOffset)

	// same message again, e.g. a retried push
	s.ApplyPush(PushReceived, incoming)
	assert.Equal(t, 3, s.Unread("c1"))
	assert.Equal(t, 2, s.Pagination("c1").NextOffset)

	// own messages never count
	s.ApplyPush(PushSent, message("c", 3, "me", "seller"))
	assert.Equal(t, 3, s.Unread("c1"))
	assert.Equal(t, 3, s.TotalUnread())

	conv, ok := s.Conversation("c1")
	require.True(t, ok)
	assert.Equal(t, "c", conv.LastMessage.ID)
	assert.True(t, conv.UpdatedAt.Equal(base.Add(3*time.Second)))
}

func TestApplyPush_ActiveConversationStaysRead(t *testing.T) {
	s := NewStore("me")
	s.SetConversations([]*entity.ConversationSummary{summary("c1", 0, 4)})

	eff := s.SetActive("c1")
	assert.Equal(t, Effect{MarkRead: "c1"}, eff)
	assert.Equal(t, 0, s.Unread("c1"))

	eff = s.ApplyPush(PushReceived, message("x", 9, "seller", "me"))
	assert.Equal(t, Effect{MarkRead: "c1"}, eff)
	assert.Equal(t, 0, s.Unread("c1"))

	msgs := s.Messages("c1")
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Read)

	// a server snapshot taken before the markRead landed must not resurrect the badge
	s.SetConversations([]*entity.ConversationSummary{summary("c1", 9, 1)})
	assert.Equal(t, 0, s.Unread("c1"))
}

func TestApplyPush_UnknownConversationAsksForResync(t *testing.T) {
	s := NewStore("me")

	eff := s.ApplyPush(PushReceived, message("a", 1, "seller", "me"))

	assert.True(t, eff.Resync)
	assert.Len(t, s.Messages("c1"), 1)
}

func TestConversations_MostRecentFirst(t *testing.T) {
	s := NewStore("me")
	s.SetConversations([]*entity.ConversationSummary{
		summary("old", 1, 0),
		summary("new", 5, 1),
		summary("mid", 3, 0),
	})

	got := s.Conversations()
	require.Len(t, got, 3)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)
	assert.Equal(t, "old", got[2].ID)

	m := message("z", 10, "seller", "me")
	m.ConversationID = "old"
	s.ApplyPush(PushReceived, m)
	assert.Equal(t, "old", s.Conversations()[0].ID)
}

func TestSubscribe_NotifiedUntilRemoved(t *testing.T) {
	s := NewStore("me")
	calls := 0
	remove := s.Subscribe(func() { calls++ })

	s.SetActive("c1")
	s.ApplyPush(PushReceived, message("a", 1, "seller", "me"))
	assert.Equal(t, 2, calls)

	remove()
	s.SetActive("")
	assert.Equal(t, 2, calls)
}
