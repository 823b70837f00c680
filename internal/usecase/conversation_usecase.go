package usecase

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"fuddly/internal/domain/entity"
	"fuddly/internal/domain/repository"
	"fuddly/pkg/errors"
	"fuddly/pkg/logger"
)

const summaryConcurrency = 8

type ConversationUseCase struct {
	convRepo    repository.ConversationRepository
	msgRepo     repository.MessageRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	now         func() time.Time
}

// NewConversationUseCase wires the conversation store. userRepo is optional;
// without it list entries carry no counterpart profile.
func NewConversationUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
) *ConversationUseCase {
	return &ConversationUseCase{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type GetOrCreateInput struct {
	ProductID string
	BuyerID   string
	SellerID  string
}

// GetOrCreate returns the conversation for the triple, creating it on first
// contact. created reports whether this call inserted it.
func (uc *ConversationUseCase) GetOrCreate(ctx context.Context, callerID string, input GetOrCreateInput) (*entity.Conversation, bool, error) {
	input.ProductID = strings.TrimSpace(input.ProductID)
	input.BuyerID = strings.TrimSpace(input.BuyerID)
	input.SellerID = strings.TrimSpace(input.SellerID)

	if input.ProductID == "" || input.BuyerID == "" || input.SellerID == "" {
		return nil, false, errors.Validation("productId, buyerId and sellerId are required")
	}
	if callerID != input.BuyerID {
		return nil, false, errors.Forbidden("Only the buyer can start a conversation", nil)
	}
	if input.BuyerID == input.SellerID {
		return nil, false, errors.Integrity("You cannot start a conversation with yourself", nil)
	}

	id := ConversationID(input.ProductID, input.BuyerID, input.SellerID)

	existing, err := uc.convRepo.GetByID(ctx, id)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return nil, false, err
	}

	product, err := uc.productRepo.GetByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, false, errors.Integrity("Product does not exist", err)
		}
		return nil, false, err
	}
	if product.SellerID != input.SellerID {
		logger.Warn("GetOrCreate: seller mismatch for product %s (claimed %s, actual %s)", product.ID, input.SellerID, product.SellerID)
		return nil, false, errors.Integrity("Seller does not own this product", nil)
	}

	conv, created, err := uc.convRepo.Create(ctx, &entity.Conversation{
		ID:        id,
		ProductID: input.ProductID,
		BuyerID:   input.BuyerID,
		SellerID:  input.SellerID,
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		logger.Info("Conversation %s created for product %s (buyer %s, seller %s)", conv.ID, conv.ProductID, conv.BuyerID, conv.SellerID)
	}

	return conv, created, nil
}

// Get returns a conversation the caller takes part in.
func (uc *ConversationUseCase) Get(ctx context.Context, callerID, conversationID string) (*entity.Conversation, error) {
	return authorizeParticipant(ctx, uc.convRepo, callerID, conversationID)
}

// ListForUser returns the caller's conversations, most recently active first,
// each with its last message and the caller's unread count.
func (uc *ConversationUseCase) ListForUser(ctx context.Context, userID string) ([]*entity.ConversationSummary, error) {
	conversations, err := uc.convRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*entity.ConversationSummary, len(conversations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summaryConcurrency)

	for i, conv := range conversations {
		i, conv := i, conv
		g.Go(func() error {
			summary, err := uc.summarize(gctx, userID, conv)
			if err != nil {
				return err
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summaries, nil
}

func (uc *ConversationUseCase) summarize(ctx context.Context, viewerID string, conv *entity.Conversation) (*entity.ConversationSummary, error) {
	last, err := uc.msgRepo.Latest(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	unread, err := uc.msgRepo.CountUnread(ctx, conv.ID, viewerID)
	if err != nil {
		return nil, err
	}

	summary := &entity.ConversationSummary{
		Conversation: conv,
		LastMessage:  last,
		UnreadCount:  unread,
	}

	if product, err := uc.productRepo.GetByID(ctx, conv.ProductID); err == nil {
		summary.Product = product.Summary()
	} else {
		logger.Warn("ListForUser: product %s for conversation %s unavailable: %v", conv.ProductID, conv.ID, err)
	}

	if uc.userRepo != nil {
		if other, err := uc.userRepo.GetByID(ctx, conv.Counterpart(viewerID)); err == nil {
			summary.OtherUser = other
		} else {
			logger.Warn("ListForUser: counterpart of %s in conversation %s unavailable: %v", viewerID, conv.ID, err)
		}
	}

	return summary, nil
}

// Touch records activity on a conversation. Only the gateway calls it, after
// a message has been persisted.
func (uc *ConversationUseCase) Touch(ctx context.Context, conversationID string) error {
	return uc.convRepo.Touch(ctx, conversationID, uc.now())
}

// UnreadTotal counts unread messages addressed to userID across conversations.
func (uc *ConversationUseCase) UnreadTotal(ctx context.Context, userID string) (int, error) {
	return uc.msgRepo.CountUnreadForReceiver(ctx, userID)
}

func authorizeParticipant(ctx context.Context, convRepo repository.ConversationRepository, callerID, conversationID string) (*entity.Conversation, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, errors.Validation("conversation id is required")
	}

	conv, err := convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(callerID) {
		return nil, errors.Forbidden("You are not a participant in this conversation", nil)
	}

	return conv, nil
}
