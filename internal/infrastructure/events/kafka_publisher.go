package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"fuddly/internal/domain/entity"
)

// producer is the part of sarama.SyncProducer used here.
type producer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

type kafkaPublisher struct {
	producer producer
	topic    string
}

func NewKafkaPublisher(brokers []string, topic string) (Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required")
	}

	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 5
	cfg.Net.MaxOpenRequests = 1

	sync, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return &kafkaPublisher{producer: sync, topic: topic}, nil
}

// PublishMessageCreated keys records by conversation so that one
// conversation's events stay ordered within a partition.
func (p *kafkaPublisher) PublishMessageCreated(ctx context.Context, msg *entity.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(MessageEvent{
		Type:       TypeMessageCreated,
		Message:    msg,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(msg.ConversationID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(TypeMessageCreated)},
			{Key: []byte("receiver-id"), Value: []byte(msg.ReceiverID)},
		},
	})
	return err
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}
