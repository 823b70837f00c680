// Package chatsync keeps a client's local view of conversations and messages
// consistent with REST pages and live socket pushes.
package chatsync

import (
	"sort"
	"sync"

	"fuddly/internal/domain/entity"
)

// MaxMessagesPerConversation bounds the local history kept per conversation.
const MaxMessagesPerConversation = 500

type PushKind string

const (
	PushReceived PushKind = "receive_message"
	PushSent     PushKind = "message_sent"
)

// Effect is the follow-up work a state change asks the caller to perform
// against the server.
type Effect struct {
	MarkRead string
	Resync   bool
}

type PageState struct {
	Loaded     bool
	NextOffset int
	HasMore    bool
}

// Store is the client-side state. All mutation goes through its methods;
// listeners run after every change, outside the lock.
type Store struct {
	mu     sync.RWMutex
	userID string
	limit  int

	conversations map[string]*entity.ConversationSummary
	byID          map[string]map[string]*entity.Message
	ordered       map[string][]*entity.Message
	unread        map[string]int
	pages         map[string]PageState
	active        string

	listenerSeq int
	listeners   map[int]func()
}

func NewStore(userID string) *Store {
	return &Store{
		userID:        userID,
		limit:         MaxMessagesPerConversation,
		conversations: make(map[string]*entity.ConversationSummary),
		byID:          make(map[string]map[string]*entity.Message),
		ordered:       make(map[string][]*entity.Message),
		unread:        make(map[string]int),
		pages:         make(map[string]PageState),
		listeners:     make(map[int]func()),
	}
}

func (s *Store) UserID() string {
	return s.userID
}

// Subscribe registers fn to run after each change and returns its remover.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	s.listenerSeq++
	id := s.listenerSeq
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// SetConversations replaces the conversation list and the server's unread
// counts. The active conversation always reads as zero unread.
func (s *Store) SetConversations(summaries []*entity.ConversationSummary) {
	s.mu.Lock()
	s.conversations = make(map[string]*entity.ConversationSummary, len(summaries))
	s.unread = make(map[string]int, len(summaries))
	for _, summary := range summaries {
		if summary == nil || summary.Conversation == nil {
			continue
		}
		cp := copySummary(summary)
		s.conversations[cp.ID] = cp
		s.unread[cp.ID] = cp.UnreadCount
	}
	if s.active != "" {
		s.unread[s.active] = 0
	}
	s.mu.Unlock()

	s.notify()
}

// ApplyPage merges one REST page (any order) and returns how many of its
// messages were not held yet. offset and limit are the values the page was
// requested with.
func (s *Store) ApplyPage(conversationID string, page []*entity.Message, offset, limit int) int {
	s.mu.Lock()
	prev := s.pages[conversationID]
	added := s.merge(conversationID, page)

	next := offset + len(page)
	state := PageState{Loaded: true, NextOffset: next, HasMore: len(page) == limit}
	if prev.Loaded && offset < prev.NextOffset {
		// a refresh of pages already seen: keep the deeper cursor, shifted
		// by whatever was new at the top
		state.HasMore = prev.HasMore
		if shifted := prev.NextOffset + added; shifted > next {
			state.NextOffset = shifted
		}
	}
	s.pages[conversationID] = state

	if conversationID == s.active {
		s.markLocalRead(conversationID)
	}
	s.mu.Unlock()

	s.notify()
	return added
}

// ApplyPush merges one live message.
func (s *Store) ApplyPush(kind PushKind, msg *entity.Message) Effect {
	var eff Effect
	if msg == nil || msg.ConversationID == "" {
		return eff
	}

	s.mu.Lock()
	convID := msg.ConversationID
	added := s.merge(convID, []*entity.Message{msg}) > 0

	if added {
		if state, ok := s.pages[convID]; ok && state.Loaded {
			state.NextOffset++
			s.pages[convID] = state
		}
	}

	summary, known := s.conversations[convID]
	if !known {
		eff.Resync = true
	} else {
		stored := s.byID[convID][msg.ID]
		if stored != nil && (summary.LastMessage == nil || summary.LastMessage.Before(stored)) {
			cp := *stored
			summary.LastMessage = &cp
		}
		if msg.CreatedAt.After(summary.UpdatedAt) {
			summary.UpdatedAt = msg.CreatedAt
		}
	}

	if msg.ReceiverID == s.userID {
		if convID == s.active {
			if s.markLocalRead(convID) > 0 || added {
				eff.MarkRead = convID
			}
			s.unread[convID] = 0
		} else if added {
			s.unread[convID]++
		}
	}
	s.mu.Unlock()

	s.notify()
	return eff
}

// SetActive switches the open conversation; "" closes it.
func (s *Store) SetActive(conversationID string) Effect {
	s.mu.Lock()
	s.active = conversationID
	if conversationID != "" {
		s.unread[conversationID] = 0
		s.markLocalRead(conversationID)
		if summary, ok := s.conversations[conversationID]; ok {
			summary.UnreadCount = 0
		}
	}
	s.mu.Unlock()

	s.notify()
	if conversationID == "" {
		return Effect{}
	}
	return Effect{MarkRead: conversationID}
}

// merge inserts msgs by id, re-sorts and applies the cap. It returns how
// many ids were not present before. Caller holds s.mu.
func (s *Store) merge(conversationID string, msgs []*entity.Message) int {
	set, ok := s.byID[conversationID]
	if !ok {
		set = make(map[string]*entity.Message)
		s.byID[conversationID] = set
	}

	added := 0
	for _, m := range msgs {
		if m == nil || m.ID == "" {
			continue
		}
		cp := *m
		if existing, ok := set[m.ID]; ok {
			// read only moves forward
			cp.Read = cp.Read || existing.Read
		} else {
			added++
		}
		set[m.ID] = &cp
	}

	list := make([]*entity.Message, 0, len(set))
	for _, m := range set {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Before(list[j]) })

	if len(list) > s.limit {
		for _, evicted := range list[:len(list)-s.limit] {
			delete(set, evicted.ID)
		}
		list = list[len(list)-s.limit:]
	}
	s.ordered[conversationID] = list

	return added
}

// markLocalRead flags messages addressed to the local user as read and
// returns how many changed. Caller holds s.mu.
func (s *Store) markLocalRead(conversationID string) int {
	changed := 0
	for _, m := range s.ordered[conversationID] {
		if m.ReceiverID == s.userID && !m.Read {
			m.Read = true
			changed++
		}
	}
	return changed
}

// Messages returns the conversation's messages oldest-first.
func (s *Store) Messages(conversationID string) []entity.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.ordered[conversationID]
	out := make([]entity.Message, len(list))
	for i, m := range list {
		out[i] = *m
	}
	return out
}

// Conversations returns the list ordered by updated_at, most recent first.
func (s *Store) Conversations() []entity.ConversationSummary {
	s.mu.RLock()
	out := make([]entity.ConversationSummary, 0, len(s.conversations))
	for id, summary := range s.conversations {
		cp := copySummary(summary)
		cp.UnreadCount = s.unread[id]
		out = append(out, *cp)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Conversation returns one known conversation.
func (s *Store) Conversation(conversationID string) (entity.ConversationSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.conversations[conversationID]
	if !ok {
		return entity.ConversationSummary{}, false
	}
	cp := copySummary(summary)
	cp.UnreadCount = s.unread[conversationID]
	return *cp, true
}

func (s *Store) Unread(conversationID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread[conversationID]
}

func (s *Store) TotalUnread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, n := range s.unread {
		total += n
	}
	return total
}

func (s *Store) Pagination(conversationID string) PageState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pages[conversationID]
}

func (s *Store) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// LoadedConversations lists conversations with at least one page fetched.
func (s *Store) LoadedConversations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.pages))
	for id, state := range s.pages {
		if state.Loaded {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func copySummary(in *entity.ConversationSummary) *entity.ConversationSummary {
	out := *in
	if in.Conversation != nil {
		conv := *in.Conversation
		out.Conversation = &conv
	}
	if in.LastMessage != nil {
		last := *in.LastMessage
		out.LastMessage = &last
	}
	return &out
}
