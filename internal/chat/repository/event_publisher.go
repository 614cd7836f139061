package repository

import (
	"context"
	"encoding/json"
	"time"

	"tourism_chat_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
)

// chat event names on the stream
const (
	EventMessageCreated = "chat.message.created"
	EventMessageRead    = "chat.message.read"
)

// ChatEvent record published for offline consumers (push, email digests)
type ChatEvent struct {
	Name           string    `json:"event"`
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId"`
	SenderID       string    `json:"senderId,omitempty"`
	ReaderID       string    `json:"readerId,omitempty"`
	Recipients     []string  `json:"recipients,omitempty"`
	At             time.Time `json:"at"`
}

// EventPublisher definition chat event stream
type EventPublisher interface {
	MessageCreated(ctx context.Context, msg *domain.Message, recipients []string) error
	MessageRead(ctx context.Context, msg *domain.Message, readerID string) error
}

type kafkaEventPublisher struct {
	writer *kafka.Writer
}

// NewKafkaEventPublisher publishes keyed by conversation so one conversation stays ordered
func NewKafkaEventPublisher(w *kafka.Writer) EventPublisher {
	return &kafkaEventPublisher{writer: w}
}

func (p *kafkaEventPublisher) publish(ctx context.Context, ev ChatEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.ConversationID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(ev.Name)},
		},
	})
}

func (p *kafkaEventPublisher) MessageCreated(ctx context.Context, msg *domain.Message, recipients []string) error {
	return p.publish(ctx, ChatEvent{
		Name:           EventMessageCreated,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
		Recipients:     recipients,
		At:             msg.CreatedAt,
	})
}

func (p *kafkaEventPublisher) MessageRead(ctx context.Context, msg *domain.Message, readerID string) error {
	return p.publish(ctx, ChatEvent{
		Name:           EventMessageRead,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
		ReaderID:       readerID,
		At:             time.Now(),
	})
}

type nopEventPublisher struct{}

// NewNopEventPublisher used when no brokers are configured
func NewNopEventPublisher() EventPublisher {
	return nopEventPublisher{}
}

func (nopEventPublisher) MessageCreated(context.Context, *domain.Message, []string) error {
	return nil
}

func (nopEventPublisher) MessageRead(context.Context, *domain.Message, string) error {
	return nil
}
