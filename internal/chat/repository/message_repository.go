package repository

import (
	"context"
	"errors"
	"fmt"

	"tourism_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition chat message storage. Messages are never deleted.
type MessageRepository interface {
	EnsureIndexes(ctx context.Context) error
	CreateMessage(ctx context.Context, msg *domain.Message) error
	FindMessage(ctx context.Context, id string) (*domain.Message, error)
	// UpdateMessageStatus only moves status forward, reports whether it changed
	UpdateMessageStatus(ctx context.Context, id string, status domain.MessageStatus) (bool, error)
	// ListMessages page of a conversation, newest first
	ListMessages(ctx context.Context, conversationID string, page, limit int) ([]domain.Message, error)
	CountMessages(ctx context.Context, conversationID string) (int64, error)
	// MarkConversationRead marks every message not sent by readerID as read
	MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error)
	SaveTranslation(ctx context.Context, id, lang, text string) error
}

const defaultMessageLimit = 50

type chatMessageRepository struct {
	coll *mongo.Collection
}

// NewMongoChatMessageRepository create a MessageRepository
func NewMongoChatMessageRepository(db *mongo.Database) MessageRepository {
	return &chatMessageRepository{
		coll: db.Collection("messages"),
	}
}

func (r *chatMessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

func (r *chatMessageRepository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	_, err := r.coll.InsertOne(ctx, msg)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *chatMessageRepository) FindMessage(ctx context.Context, id string) (*domain.Message, error) {
	var msg domain.Message
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find message: %w", err)
	}
	return &msg, nil
}

func (r *chatMessageRepository) UpdateMessageStatus(ctx context.Context, id string, status domain.MessageStatus) (bool, error) {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": status.Below()},
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return false, fmt.Errorf("update message status: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *chatMessageRepository) ListMessages(ctx context.Context, conversationID string, page, limit int) ([]domain.Message, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultMessageLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, bson.M{"conversationId": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	msgs := []domain.Message{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}
	return msgs, nil
}

func (r *chatMessageRepository) CountMessages(ctx context.Context, conversationID string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"conversationId": conversationID})
}

func (r *chatMessageRepository) MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	filter := bson.M{
		"conversationId": conversationID,
		"senderId":       bson.M{"$ne": readerID},
		"status":         bson.M{"$in": domain.StatusRead.Below()},
	}
	res, err := r.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"status": domain.StatusRead}})
	if err != nil {
		return 0, fmt.Errorf("mark conversation read: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *chatMessageRepository) SaveTranslation(ctx context.Context, id, lang, text string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"translatedMessage." + lang: text}})
	if err != nil {
		return fmt.Errorf("save translation: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}
