package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fuddly/internal/domain/entity"
	"fuddly/internal/domain/repository"
	"fuddly/pkg/errors"
)

const conversationsCollection = "conversations"

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) Create(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, bool, error) {
	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	conv.Participants = []string{conv.BuyerID, conv.SellerID}

	ref := r.client.Collection(conversationsCollection).Doc(conv.ID)
	if _, err := ref.Create(ctx, conv); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			existing, getErr := r.GetByID(ctx, conv.ID)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, errors.Internal("Failed to create conversation", err)
	}

	return conv, true, nil
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.client.Collection(conversationsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", nil)
		}
		return nil, errors.Internal("Failed to get conversation", err)
	}

	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	conv.ID = doc.Ref.ID

	return &conv, nil
}

func (r *firestoreConversationRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	docs, err := r.client.Collection(conversationsCollection).
		Where("participants", "array-contains", userID).
		OrderBy("updatedAt", firestore.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to fetch conversations", err)
	}

	conversations := make([]*entity.Conversation, 0, len(docs))
	for _, doc := range docs {
		var conv entity.Conversation
		if err := doc.DataTo(&conv); err != nil {
			return nil, errors.Internal("Failed to parse conversation data", err)
		}
		conv.ID = doc.Ref.ID
		conversations = append(conversations, &conv)
	}

	return conversations, nil
}

func (r *firestoreConversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	ref := r.client.Collection(conversationsCollection).Doc(id)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		current, err := doc.DataAt("updatedAt")
		if err != nil {
			return err
		}
		if ts, ok := current.(time.Time); ok && !at.After(ts) {
			return nil
		}
		return tx.Update(ref, []firestore.Update{{Path: "updatedAt", Value: at}})
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", err)
		}
		return errors.Internal("Failed to update conversation", err)
	}

	return nil
}
