package app

import (
	"context"
	"io"
	"time"

	"tourism_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockConversationRepository Mock ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

// EnsureIndexes mock
func (m *MockConversationRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// FindConversation mock find conversation of a participant
func (m *MockConversationRepository) FindConversation(ctx context.Context, id, participantID string) (*domain.Conversation, error) {
	args := m.Called(ctx, id, participantID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByID mock
func (m *MockConversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByBooking mock
func (m *MockConversationRepository) FindByBooking(ctx context.Context, bookingID string) (*domain.Conversation, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateConversation mock
func (m *MockConversationRepository) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

// ListForUser mock
func (m *MockConversationRepository) ListForUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateConversation mock
func (m *MockConversationRepository) UpdateConversation(ctx context.Context, id string, patch domain.ConversationPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// EnsureIndexes mock
func (m *MockMessageRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// CreateMessage mock
func (m *MockMessageRepository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindMessage mock
func (m *MockMessageRepository) FindMessage(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateMessageStatus mock
func (m *MockMessageRepository) UpdateMessageStatus(ctx context.Context, id string, status domain.MessageStatus) (bool, error) {
	args := m.Called(ctx, id, status)
	return args.Bool(0), args.Error(1)
}

// ListMessages mock
func (m *MockMessageRepository) ListMessages(ctx context.Context, conversationID string, page, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID, page, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// CountMessages mock
func (m *MockMessageRepository) CountMessages(ctx context.Context, conversationID string) (int64, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).(int64), args.Error(1)
}

// MarkConversationRead mock
func (m *MockMessageRepository) MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	args := m.Called(ctx, conversationID, readerID)
	return args.Get(0).(int64), args.Error(1)
}

// SaveTranslation mock
func (m *MockMessageRepository) SaveTranslation(ctx context.Context, id, lang, text string) error {
	args := m.Called(ctx, id, lang, text)
	return args.Error(0)
}

// MockUserRepository Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

// FindUser mock
func (m *MockUserRepository) FindUser(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindUsers mock
func (m *MockUserRepository) FindUsers(ctx context.Context, ids []string) ([]domain.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdatePresence mock
func (m *MockUserRepository) UpdatePresence(ctx context.Context, id string, online bool, at time.Time) error {
	args := m.Called(ctx, id, online, at)
	return args.Error(0)
}

// MockBookingRepository Mock BookingRepository
type MockBookingRepository struct {
	mock.Mock
}

// FindBooking mock
func (m *MockBookingRepository) FindBooking(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockEventPublisher Mock EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

// MessageCreated mock
func (m *MockEventPublisher) MessageCreated(ctx context.Context, msg *domain.Message, recipients []string) error {
	args := m.Called(ctx, msg, recipients)
	return args.Error(0)
}

// MessageRead mock
func (m *MockEventPublisher) MessageRead(ctx context.Context, msg *domain.Message, readerID string) error {
	args := m.Called(ctx, msg, readerID)
	return args.Error(0)
}

// MockAttachmentRepository Mock AttachmentRepository
type MockAttachmentRepository struct {
	mock.Mock
}

// Save mock, drains r so callers see a full read
func (m *MockAttachmentRepository) Save(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(ctx, objectName, body, size, contentType)
	return args.String(0), args.Error(1)
}

// MockPresenceCache Mock database.RedisRepository[domain.Presence]
type MockPresenceCache struct {
	mock.Mock
}

// Set mock
func (m *MockPresenceCache) Set(ctx context.Context, key string, value domain.Presence, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

// Get mock
func (m *MockPresenceCache) Get(ctx context.Context, key string) (domain.Presence, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.Presence), args.Error(1)
}

// Del mock
func (m *MockPresenceCache) Del(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// GetTTL mock
func (m *MockPresenceCache) GetTTL(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

// ExtendTTL mock
func (m *MockPresenceCache) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}
