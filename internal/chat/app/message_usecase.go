package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tourism_chat_service/internal/chat/domain"
	"tourism_chat_service/internal/chat/repository"
	"tourism_chat_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// SendMessageUseCase message pipeline shared by the websocket and REST surfaces
type SendMessageUseCase struct {
	convRepo    repository.ConversationRepository
	msgRepo     repository.MessageRepository
	userRepo    repository.UserRepository
	events      repository.EventPublisher
	broadcaster *Broadcaster
	translator  Translator
	locks       *keyedMutex
	now         func() time.Time
}

// NewSendMessageUseCase init create message use case
func NewSendMessageUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	events repository.EventPublisher,
	broadcaster *Broadcaster,
	translator Translator,
) *SendMessageUseCase {
	if events == nil {
		events = repository.NewNopEventPublisher()
	}
	if translator == nil {
		translator = StubTranslator{}
	}
	return &SendMessageUseCase{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		userRepo:    userRepo,
		events:      events,
		broadcaster: broadcaster,
		translator:  translator,
		locks:       newKeyedMutex(),
		now:         time.Now,
	}
}

// Execute stores a message from senderID and broadcasts new_message to the
// conversation subscribers. Nothing is broadcast unless both the message and
// the conversation update were persisted.
func (uc *SendMessageUseCase) Execute(ctx context.Context, senderID string, frame domain.SendMessageFrame) (*domain.MessageView, error) {
	if err := domain.Validate(frame); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	if strings.TrimSpace(frame.Message) == "" && len(frame.Attachments) == 0 {
		return nil, domain.ErrEmptyMessage
	}

	conv, err := uc.convRepo.FindConversation(ctx, frame.ConversationID, senderID)
	if err != nil {
		return nil, err
	}

	msg, err := uc.persist(ctx, conv, senderID, frame)
	if err != nil {
		return nil, err
	}

	sender, err := uc.userRepo.FindUser(ctx, senderID)
	if err != nil {
		logger.Log.Warn("sender lookup failed", zap.String("userID", senderID), zap.Error(err))
	}
	view := domain.NewMessageView(msg, sender)

	uc.broadcaster.BroadcastToConversation(conv.ID, domain.NewMessageEvent(view))

	recipients := lo.Without(conv.ParticipantIDs(), senderID)
	if err := uc.events.MessageCreated(ctx, msg, recipients); err != nil {
		logger.Log.Warn("publish message created", zap.String("messageID", msg.ID), zap.Error(err))
	}
	return &view, nil
}

// persist writes the message and patches the conversation while holding the
// conversation lock so lastMessage follows creation order.
func (uc *SendMessageUseCase) persist(ctx context.Context, conv *domain.Conversation, senderID string, frame domain.SendMessageFrame) (*domain.Message, error) {
	unlock := uc.locks.Lock(conv.ID)
	defer unlock()

	now := uc.now()
	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		Body:           frame.Message,
		MessageType:    domain.InferMessageType(frame.MessageType, frame.Attachments),
		Attachments:    frame.Attachments,
		Status:         domain.StatusSent,
		ReplyTo:        frame.ReplyTo,
		CreatedAt:      now,
	}
	if err := uc.msgRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := uc.convRepo.UpdateConversation(ctx, conv.ID, domain.NewMessagePatch(conv, senderID, msg.ID, now)); err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkDelivered advances messageID to delivered and tells its sender.
// Messages already delivered or read are left alone.
func (uc *SendMessageUseCase) MarkDelivered(ctx context.Context, messageID string) error {
	msg, err := uc.msgRepo.FindMessage(ctx, messageID)
	if err != nil {
		return err
	}
	changed, err := uc.msgRepo.UpdateMessageStatus(ctx, messageID, domain.StatusDelivered)
	if err != nil {
		return err
	}
	if changed {
		uc.broadcaster.SendToUser(msg.SenderID, domain.StatusEvent(messageID, domain.StatusDelivered))
	}
	return nil
}

// MarkRead marks messageID read on behalf of readerID and notifies only the
// original sender. Repeated calls are no-ops.
func (uc *SendMessageUseCase) MarkRead(ctx context.Context, readerID, messageID string) error {
	if err := domain.Validate(domain.ReadFrame{MessageID: messageID}); err != nil {
		return fmt.Errorf("invalid read: %w", err)
	}
	msg, err := uc.msgRepo.FindMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID == readerID {
		return nil
	}
	if err := uc.requireParticipant(ctx, msg.ConversationID, readerID); err != nil {
		return err
	}

	changed, err := uc.msgRepo.UpdateMessageStatus(ctx, messageID, domain.StatusRead)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	if err := uc.convRepo.UpdateConversation(ctx, msg.ConversationID, domain.ConversationPatch{ResetUnread: []string{readerID}}); err != nil {
		logger.Log.Warn("reset unread failed", zap.String("conversationID", msg.ConversationID), zap.Error(err))
	}
	uc.broadcaster.SendToUser(msg.SenderID, domain.StatusEvent(messageID, domain.StatusRead))
	if err := uc.events.MessageRead(ctx, msg, readerID); err != nil {
		logger.Log.Warn("publish message read", zap.String("messageID", msg.ID), zap.Error(err))
	}
	return nil
}

// Typing relays typing state to the other subscribers. Unknown users are dropped.
func (uc *SendMessageUseCase) Typing(ctx context.Context, userID string, frame domain.TypingFrame) error {
	if err := domain.Validate(frame); err != nil {
		return fmt.Errorf("invalid typing: %w", err)
	}
	user, err := uc.userRepo.FindUser(ctx, userID)
	if err != nil {
		return err
	}
	uc.broadcaster.BroadcastToConversation(frame.ConversationID, domain.TypingEvent(domain.Typing{
		ConversationID: frame.ConversationID,
		UserID:         userID,
		UserName:       user.Name,
		IsTyping:       frame.IsTyping,
	}), userID)
	return nil
}

// Translate returns the cached translation or asks the translator and caches it,
// for a caller who takes part in the message's conversation.
func (uc *SendMessageUseCase) Translate(ctx context.Context, userID, messageID, targetLanguage string) (string, error) {
	if strings.TrimSpace(targetLanguage) == "" {
		return "", domain.ErrMissingLanguage
	}
	msg, err := uc.msgRepo.FindMessage(ctx, messageID)
	if err != nil {
		return "", err
	}
	if err := uc.requireParticipant(ctx, msg.ConversationID, userID); err != nil {
		return "", err
	}
	if cached, ok := msg.TranslatedBody[targetLanguage]; ok && cached != "" {
		return cached, nil
	}

	text, err := uc.translator.Translate(ctx, msg.Body, targetLanguage)
	if err != nil {
		return "", err
	}
	if err := uc.msgRepo.SaveTranslation(ctx, messageID, targetLanguage, text); err != nil {
		return "", err
	}
	return text, nil
}

func (uc *SendMessageUseCase) requireParticipant(ctx context.Context, conversationID, userID string) error {
	if _, err := uc.convRepo.FindConversation(ctx, conversationID, userID); err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			return domain.ErrNotParticipant
		}
		return err
	}
	return nil
}
