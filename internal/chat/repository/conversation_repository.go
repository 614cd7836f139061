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

// ConversationRepository definition booking conversations
type ConversationRepository interface {
	EnsureIndexes(ctx context.Context) error
	// FindConversation returns the conversation only when participantID belongs to it
	FindConversation(ctx context.Context, id, participantID string) (*domain.Conversation, error)
	FindByID(ctx context.Context, id string) (*domain.Conversation, error)
	FindByBooking(ctx context.Context, bookingID string) (*domain.Conversation, error)
	CreateConversation(ctx context.Context, conv *domain.Conversation) error
	// ListForUser newest activity first
	ListForUser(ctx context.Context, userID string) ([]domain.Conversation, error)
	// UpdateConversation applies patch in a single atomic update
	UpdateConversation(ctx context.Context, id string, patch domain.ConversationPatch) error
}

type conversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &conversationRepository{
		coll: db.Collection("conversations"),
	}
}

// EnsureIndexes one conversation per booking, participant lookups sorted by activity
func (r *conversationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "bookingId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "participants.userId", Value: 1}, {Key: "updatedAt", Value: -1}},
		},
	})
	return err
}

func (r *conversationRepository) findOne(ctx context.Context, filter bson.M) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, filter).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return &conv, nil
}

func (r *conversationRepository) FindConversation(ctx context.Context, id, participantID string) (*domain.Conversation, error) {
	return r.findOne(ctx, bson.M{"_id": id, "participants.userId": participantID})
}

func (r *conversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *conversationRepository) FindByBooking(ctx context.Context, bookingID string) (*domain.Conversation, error) {
	return r.findOne(ctx, bson.M{"bookingId": bookingID})
}

func (r *conversationRepository) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	_, err := r.coll.InsertOne(ctx, conv)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrConversationExists
	}
	return err
}

func (r *conversationRepository) ListForUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"participants.userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	convs := []domain.Conversation{}
	if err := cur.All(ctx, &convs); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}
	return convs, nil
}

func (r *conversationRepository) UpdateConversation(ctx context.Context, id string, patch domain.ConversationPatch) error {
	update := conversationUpdate(patch)
	if len(update) == 0 {
		return nil
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

// conversationUpdate translates a patch into $set/$inc so concurrent senders
// never overwrite each other's unread counters.
func conversationUpdate(patch domain.ConversationPatch) bson.M {
	set := bson.M{}
	inc := bson.M{}
	if patch.LastMessageID != "" {
		set["lastMessage"] = patch.LastMessageID
	}
	if !patch.UpdatedAt.IsZero() {
		set["updatedAt"] = patch.UpdatedAt
	}
	for _, uid := range patch.ResetUnread {
		set["unreadCount."+uid] = 0
	}
	for _, uid := range patch.IncrementUnread {
		inc["unreadCount."+uid] = 1
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	return update
}
