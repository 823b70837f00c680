package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fuddly/internal/domain/entity"
	"fuddly/internal/domain/repository"
	"fuddly/pkg/errors"
)

const messagesCollection = "messages"

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) messages(conversationID string) *firestore.CollectionRef {
	return r.client.Collection(conversationsCollection).Doc(conversationID).Collection(messagesCollection)
}

func (r *firestoreMessageRepository) Create(ctx context.Context, msg *entity.Message) (*entity.Message, bool, error) {
	msg.CreatedAt = time.Now().UTC()
	msg.Read = false

	ref := r.messages(msg.ConversationID).Doc(msg.ID)
	if _, err := ref.Create(ctx, msg); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			doc, getErr := ref.Get(ctx)
			if getErr != nil {
				return nil, false, errors.Internal("Failed to get message", getErr)
			}
			existing, parseErr := decodeMessage(doc)
			if parseErr != nil {
				return nil, false, parseErr
			}
			return existing, false, nil
		}
		return nil, false, errors.Internal("Failed to create message", err)
	}

	return msg, true, nil
}

func (r *firestoreMessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, error) {
	query := r.messages(conversationID).OrderBy("createdAt", firestore.Desc)
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate messages", err)
		}
		msg, err := decodeMessage(doc)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

func (r *firestoreMessageRepository) Latest(ctx context.Context, conversationID string) (*entity.Message, error) {
	messages, err := r.ListByConversation(ctx, conversationID, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return messages[0], nil
}

func (r *firestoreMessageRepository) CountUnread(ctx context.Context, conversationID, receiverID string) (int, error) {
	query := r.messages(conversationID).
		Where("receiverId", "==", receiverID).
		Where("read", "==", false)
	return countQuery(ctx, query)
}

func (r *firestoreMessageRepository) CountUnreadForReceiver(ctx context.Context, receiverID string) (int, error) {
	query := r.client.CollectionGroup(messagesCollection).
		Where("receiverId", "==", receiverID).
		Where("read", "==", false)
	return countQuery(ctx, query)
}

func (r *firestoreMessageRepository) MarkRead(ctx context.Context, conversationID, receiverID string) (int, error) {
	docs, err := r.messages(conversationID).
		Where("receiverId", "==", receiverID).
		Where("read", "==", false).
		Documents(ctx).GetAll()
	if err != nil {
		return 0, errors.Internal("Failed to query unread messages", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(docs))
	for _, doc := range docs {
		job, err := bw.Update(doc.Ref, []firestore.Update{{Path: "read", Value: true}})
		if err != nil {
			bw.End()
			return 0, errors.Internal("Failed to queue read update", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	marked := 0
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return marked, errors.Internal("Failed to mark messages as read", err)
		}
		marked++
	}

	return marked, nil
}

func countQuery(ctx context.Context, query firestore.Query) (int, error) {
	result, err := query.NewAggregationQuery().WithCount("count").Get(ctx)
	if err != nil {
		return 0, errors.Internal("Failed to count messages", err)
	}

	value, ok := result["count"].(*firestorepb.Value)
	if !ok {
		return 0, errors.Internal("Unexpected count result", nil)
	}
	return int(value.GetIntegerValue()), nil
}

func decodeMessage(doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	var msg entity.Message
	if err := doc.DataTo(&msg); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	msg.ID = doc.Ref.ID
	return &msg, nil
}
