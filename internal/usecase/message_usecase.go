package usecase

import (
	"context"
	"strings"
	"unicode/utf8"

	"fuddly/internal/domain/entity"
	"fuddly/internal/domain/repository"
	"fuddly/pkg/errors"
	"fuddly/pkg/utils"
)

const maxClientMessageIDLength = 128

type MessageUseCase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
}

func NewMessageUseCase(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository) *MessageUseCase {
	return &MessageUseCase{
		convRepo: convRepo,
		msgRepo:  msgRepo,
	}
}

type AppendInput struct {
	ConversationID  string
	SenderID        string
	ReceiverID      string
	Text            string
	ClientMessageID string
}

// Append persists a message. When ClientMessageID repeats an earlier send the
// stored message is returned with duplicate=true and nothing is written.
func (uc *MessageUseCase) Append(ctx context.Context, input AppendInput) (*entity.Message, bool, error) {
	if err := validateAppend(input); err != nil {
		return nil, false, err
	}

	conv, err := uc.convRepo.GetByID(ctx, input.ConversationID)
	if err != nil {
		return nil, false, err
	}
	if !conv.HasParticipant(input.SenderID) {
		return nil, false, errors.Forbidden("You are not a participant in this conversation", nil)
	}
	if conv.Counterpart(input.SenderID) != input.ReceiverID {
		return nil, false, errors.Validation("receiverId must be the other participant of the conversation")
	}

	stored, created, err := uc.msgRepo.Create(ctx, &entity.Message{
		ID:              MessageID(conv.ID, input.SenderID, input.ClientMessageID),
		ConversationID:  conv.ID,
		SenderID:        input.SenderID,
		ReceiverID:      input.ReceiverID,
		Text:            input.Text,
		ClientMessageID: input.ClientMessageID,
	})
	if err != nil {
		return nil, false, err
	}

	return stored, !created, nil
}

func validateAppend(input AppendInput) error {
	switch {
	case strings.TrimSpace(input.ConversationID) == "":
		return errors.Validation("conversationId is required")
	case input.SenderID == "" || input.ReceiverID == "":
		return errors.Validation("senderId and receiverId are required")
	case input.SenderID == input.ReceiverID:
		return errors.Validation("Cannot send a message to yourself")
	case strings.TrimSpace(input.Text) == "":
		return errors.Validation("Message text cannot be empty")
	case utf8.RuneCountInString(input.Text) > entity.MaxMessageLength:
		return errors.Validation("Message text is too long")
	case len(input.ClientMessageID) > maxClientMessageIDLength:
		return errors.Validation("clientMessageId is too long")
	}
	return nil
}

// Page returns up to limit messages newest-first, skipping offset.
func (uc *MessageUseCase) Page(ctx context.Context, callerID, conversationID string, limit, offset int) ([]*entity.Message, error) {
	if _, err := authorizeParticipant(ctx, uc.convRepo, callerID, conversationID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = utils.DefaultMessageLimit
	}
	if limit > utils.MaxMessageLimit {
		limit = utils.MaxMessageLimit
	}
	if offset < 0 {
		offset = 0
	}

	return uc.msgRepo.ListByConversation(ctx, conversationID, limit, offset)
}

// MarkRead flags every unread message addressed to the caller in the
// conversation as read and returns how many changed.
func (uc *MessageUseCase) MarkRead(ctx context.Context, callerID, conversationID string) (int, error) {
	if _, err := authorizeParticipant(ctx, uc.convRepo, callerID, conversationID); err != nil {
		return 0, err
	}

	return uc.msgRepo.MarkRead(ctx, conversationID, callerID)
}
