package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"tourism_chat_service/internal/chat/domain"
	"tourism_chat_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetNewNop()
}

type messageFixture struct {
	convRepo *MockConversationRepository
	msgRepo  *MockMessageRepository
	userRepo *MockUserRepository
	events   *MockEventPublisher
	registry *ConnectionRegistry
	subs     *SubscriptionTable
	uc       *SendMessageUseCase
}

func newMessageFixture() *messageFixture {
	f := &messageFixture{
		convRepo: new(MockConversationRepository),
		msgRepo:  new(MockMessageRepository),
		userRepo: new(MockUserRepository),
		events:   new(MockEventPublisher),
		registry: NewConnectionRegistry(),
		subs:     NewSubscriptionTable(),
	}
	f.uc = NewSendMessageUseCase(f.convRepo, f.msgRepo, f.userRepo, f.events, NewBroadcaster(f.registry, f.subs), StubTranslator{})
	return f
}

func (f *messageFixture) online(userID string, conversations ...string) *Client {
	c := NewClient(userID, newFakeConn(), 8)
	f.registry.Register(userID, c)
	for _, conv := range conversations {
		f.subs.Join(conv, userID)
	}
	return c
}

func testConversation(id string, users ...string) *domain.Conversation {
	conv := &domain.Conversation{ID: id, UnreadCount: map[string]int{}}
	for _, u := range users {
		conv.Participants = append(conv.Participants, domain.Participant{UserID: u, Role: domain.RoleTourist})
	}
	return conv
}

func TestSendMessageUseCase_Execute(t *testing.T) {
	ctx := context.Background()
	convID := uuid.New().String()
	f := newMessageFixture()
	conv := testConversation(convID, "alice", "bob", "carol")

	f.convRepo.On("FindConversation", ctx, convID, "alice").Return(conv, nil)
	f.msgRepo.On("CreateMessage", ctx, mock.MatchedBy(func(m *domain.Message) bool {
		return m.Status == domain.StatusSent && m.MessageType == domain.MessageTypeText && m.Body == "Hello"
	})).Return(nil)
	f.convRepo.On("UpdateConversation", ctx, convID, mock.MatchedBy(func(p domain.ConversationPatch) bool {
		return assert.ElementsMatch(t, []string{"bob", "carol"}, p.IncrementUnread) && p.LastMessageID != ""
	})).Return(nil)
	f.userRepo.On("FindUser", ctx, "alice").Return(&domain.User{ID: "alice", Name: "Alice", Role: domain.RoleHost}, nil)
	f.events.On("MessageCreated", ctx, mock.Anything, []string{"bob", "carol"}).Return(nil)

	alice := f.online("alice", convID)
	bob := f.online("bob", convID)
	carol := f.online("carol")

	view, err := f.uc.Execute(ctx, "alice", domain.SendMessageFrame{ConversationID: convID, Message: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", view.SenderName)
	assert.Equal(t, domain.RoleHost, view.SenderRole)
	assert.Equal(t, domain.StatusSent, view.Status)

	for _, c := range []*Client{alice, bob} {
		frames := drain(t, c)
		require.Len(t, frames, 1)
		assert.Equal(t, domain.EventNewMessage, frames[0].Type)
		assert.Equal(t, view.ID, frames[0].Message.ID)
	}
	assert.Empty(t, drain(t, carol), "not subscribed")

	f.convRepo.AssertExpectations(t)
	f.msgRepo.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestSendMessageUseCase_ExecuteImageInferred(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture()
	conv := testConversation("c1", "alice", "bob")
	attachments := []domain.Attachment{{URL: "http://cdn/a.png", Type: domain.AttachmentImage, Name: "a.png", Size: 10}}

	f.convRepo.On("FindConversation", ctx, "c1", "alice").Return(conv, nil)
	f.msgRepo.On("CreateMessage", ctx, mock.MatchedBy(func(m *domain.Message) bool {
		return m.MessageType == domain.MessageTypeImage && len(m.Attachments) == 1
	})).Return(nil)
	f.convRepo.On("UpdateConversation", ctx, "c1", mock.Anything).Return(nil)
	f.userRepo.On("FindUser", ctx, "alice").Return(nil, domain.ErrUserNotFound)
	f.events.On("MessageCreated", ctx, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	view, err := f.uc.Execute(ctx, "alice", domain.SendMessageFrame{ConversationID: "c1", Attachments: attachments})
	require.NoError(t, err)
	assert.Equal(t, domain.MessageTypeImage, view.MessageType)
	assert.Empty(t, view.SenderName)
}

func TestSendMessageUseCase_ExecuteRejected(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		f := newMessageFixture()
		_, err := f.uc.Execute(ctx, "alice", domain.SendMessageFrame{ConversationID: "c1", Message: "   "})
		assert.ErrorIs(t, err, domain.ErrEmptyMessage)
		f.convRepo.AssertNotCalled(t, "FindConversation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing conversation id", func(t *testing.T) {
		f := newMessageFixture()
		_, err := f.uc.Execute(ctx, "alice", domain.SendMessageFrame{Message: "hi"})
		assert.Error(t, err)
	})

	t.Run("not a participant", func(t *testing.T) {
		f := newMessageFixture()
		bob := f.online("bob", "c1")
		f.convRepo.On("FindConversation", ctx, "c1", "mallory").Return(nil, domain.ErrConversationNotFound)

		_, err := f.uc.Execute(ctx, "mallory", domain.SendMessageFrame{ConversationID: "c1", Message: "hi"})
		assert.ErrorIs(t, err, domain.ErrConversationNotFound)
		f.msgRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
		assert.Empty(t, drain(t, bob))
	})

	t.Run("store failure broadcasts nothing", func(t *testing.T) {
		f := newMessageFixture()
		bob := f.online("bob", "c1")
		f.convRepo.On("FindConversation", ctx, "c1", "alice").Return(testConversation("c1", "alice", "bob"), nil)
		f.msgRepo.On("CreateMessage", ctx, mock.Anything).Return(errors.New("mongo down"))

		_, err := f.uc.Execute(ctx, "alice", domain.SendMessageFrame{ConversationID: "c1", Message: "hi"})
		assert.Error(t, err)
		f.convRepo.AssertNotCalled(t, "UpdateConversation", mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, drain(t, bob))
	})
}

func TestSendMessageUseCase_MarkRead(t *testing.T) {
	ctx := context.Background()
	msg := &domain.Message{ID: "m1", ConversationID: "c1", SenderID: "alice", Status: domain.StatusDelivered}

	t.Run("notifies only the sender", func(t *testing.T) {
		f := newMessageFixture()
		alice := f.online("alice", "c1")
		carol := f.online("carol", "c1")
		f.msgRepo.On("FindMessage", ctx, "m1").Return(msg, nil)
		f.convRepo.On("FindConversation", ctx, "c1", "bob").Return(testConversation("c1", "alice", "bob", "carol"), nil)
		f.msgRepo.On("UpdateMessageStatus", ctx, "m1", domain.StatusRead).Return(true, nil).Once()
		f.convRepo.On("UpdateConversation", ctx, "c1", domain.ConversationPatch{ResetUnread: []string{"bob"}}).Return(nil)
		f.events.On("MessageRead", ctx, msg, "bob").Return(nil)

		require.NoError(t, f.uc.MarkRead(ctx, "bob", "m1"))

		frames := drain(t, alice)
		require.Len(t, frames, 1)
		assert.Equal(t, domain.StatusEvent("m1", domain.StatusRead), frames[0])
		assert.Empty(t, drain(t, carol))

		// second read is a no-op
		f.msgRepo.On("UpdateMessageStatus", ctx, "m1", domain.StatusRead).Return(false, nil).Once()
		require.NoError(t, f.uc.MarkRead(ctx, "bob", "m1"))
		assert.Empty(t, drain(t, alice))
		f.events.AssertNumberOfCalls(t, "MessageRead", 1)
	})

	t.Run("own message", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindMessage", ctx, "m1").Return(msg, nil)
		require.NoError(t, f.uc.MarkRead(ctx, "alice", "m1"))
		f.msgRepo.AssertNotCalled(t, "UpdateMessageStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("outsider", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindMessage", ctx, "m1").Return(msg, nil)
		f.convRepo.On("FindConversation", ctx, "c1", "mallory").Return(nil, domain.ErrConversationNotFound)
		assert.ErrorIs(t, f.uc.MarkRead(ctx, "mallory", "m1"), domain.ErrNotParticipant)
	})

	t.Run("unknown message", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindMessage", ctx, "nope").Return(nil, domain.ErrMessageNotFound)
		assert.ErrorIs(t, f.uc.MarkRead(ctx, "bob", "nope"), domain.ErrMessageNotFound)
	})
}

func TestSendMessageUseCase_MarkDelivered(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture()
	alice := f.online("alice")
	f.msgRepo.On("FindMessage", ctx, "m1").Return(&domain.Message{ID: "m1", SenderID: "alice", Status: domain.StatusSent}, nil)
	f.msgRepo.On("UpdateMessageStatus", ctx, "m1", domain.StatusDelivered).Return(true, nil).Once()
	f.msgRepo.On("UpdateMessageStatus", ctx, "m1", domain.StatusDelivered).Return(false, nil).Once()

	require.NoError(t, f.uc.MarkDelivered(ctx, "m1"))
	require.NoError(t, f.uc.MarkDelivered(ctx, "m1"))

	frames := drain(t, alice)
	require.Len(t, frames, 1)
	assert.Equal(t, domain.StatusDelivered, frames[0].Status)
}

func TestSendMessageUseCase_Typing(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture()
	alice := f.online("alice", "c1")
	bob := f.online("bob", "c1")
	f.userRepo.On("FindUser", ctx, "alice").Return(&domain.User{ID: "alice", Name: "Alice"}, nil)

	require.NoError(t, f.uc.Typing(ctx, "alice", domain.TypingFrame{ConversationID: "c1", IsTyping: true}))

	assert.Empty(t, drain(t, alice))
	frames := drain(t, bob)
	require.Len(t, frames, 1)
	assert.Equal(t, domain.Typing{ConversationID: "c1", UserID: "alice", UserName: "Alice", IsTyping: true}, *frames[0].Typing)

	f.userRepo.On("FindUser", ctx, "ghost").Return(nil, domain.ErrUserNotFound)
	assert.ErrorIs(t, f.uc.Typing(ctx, "ghost", domain.TypingFrame{ConversationID: "c1"}), domain.ErrUserNotFound)
	assert.Empty(t, drain(t, bob))
}

func TestSendMessageUseCase_Translate(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture()
	f.convRepo.On("FindConversation", ctx, "c1", "bob").Return(testConversation("c1", "alice", "bob"), nil)
	f.convRepo.On("FindConversation", ctx, "c1", "mallory").Return(nil, domain.ErrConversationNotFound)
	f.msgRepo.On("FindMessage", ctx, "m1").Return(&domain.Message{ID: "m1", ConversationID: "c1", Body: "hola", TranslatedBody: map[string]string{"en": "hello"}}, nil)
	f.msgRepo.On("FindMessage", ctx, "m2").Return(&domain.Message{ID: "m2", ConversationID: "c1", Body: "hola"}, nil)
	f.msgRepo.On("SaveTranslation", ctx, "m2", "fr", "[Translated to fr] hola").Return(nil)

	text, err := f.uc.Translate(ctx, "bob", "m1", "en")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	text, err = f.uc.Translate(ctx, "bob", "m2", "fr")
	require.NoError(t, err)
	assert.Equal(t, "[Translated to fr] hola", text)

	_, err = f.uc.Translate(ctx, "bob", "m2", "")
	assert.ErrorIs(t, err, domain.ErrMissingLanguage)

	_, err = f.uc.Translate(ctx, "mallory", "m2", "de")
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
	f.msgRepo.AssertNotCalled(t, "SaveTranslation", ctx, "m2", "de", mock.Anything)
	f.msgRepo.AssertExpectations(t)
}

func TestSendMessageUseCase_ConcurrentSendsKeepCounters(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addUser("alice", "Alice", domain.RoleTourist)
	store.addUser("bob", "Bob", domain.RoleHost)
	store.addConversation("c1", "alice", "bob", "carol")
	registry := NewConnectionRegistry()
	uc := NewSendMessageUseCase(store, store, store, nil, NewBroadcaster(registry, NewSubscriptionTable()), nil)

	const perSender = 25
	var wg sync.WaitGroup
	for _, sender := range []string{"alice", "bob"} {
		for i := 0; i < perSender; i++ {
			wg.Add(1)
			go func(sender string, i int) {
				defer wg.Done()
				_, err := uc.Execute(ctx, sender, domain.SendMessageFrame{ConversationID: "c1", Message: fmt.Sprintf("%s-%d", sender, i)})
				assert.NoError(t, err)
			}(sender, i)
		}
	}
	wg.Wait()

	conv := store.conversation("c1")
	assert.Equal(t, perSender, conv.UnreadCount["alice"])
	assert.Equal(t, perSender, conv.UnreadCount["bob"])
	assert.Equal(t, 2*perSender, conv.UnreadCount["carol"])
	assert.Equal(t, store.lastMessageID(), conv.LastMessageID)
	assert.WithinDuration(t, time.Now(), conv.UpdatedAt, time.Minute)
}
