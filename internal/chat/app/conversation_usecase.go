package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourism_chat_service/internal/chat/domain"
	"tourism_chat_service/internal/chat/repository"
	"tourism_chat_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// CreateConversationRequest body of POST /conversations
type CreateConversationRequest struct {
	BookingID      string   `json:"bookingId" validate:"required"`
	ParticipantIDs []string `json:"participantIds" validate:"required,min=1,dive,required"`
}

// ParticipantView participant with profile and live presence
type ParticipantView struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Avatar   string                 `json:"avatar"`
	Role     domain.ParticipantRole `json:"role"`
	IsOnline bool                   `json:"isOnline"`
	LastSeen time.Time              `json:"lastSeen"`
}

// ConversationView conversation as listed to a participant
type ConversationView struct {
	ID             string              `json:"id"`
	BookingID      string              `json:"bookingId"`
	Participants   []ParticipantView   `json:"participants"`
	LastMessage    *domain.MessageView `json:"lastMessage"`
	UnreadCount    map[string]int      `json:"unreadCount"`
	IsActive       bool                `json:"isActive"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
	BookingDetails *domain.Booking     `json:"bookingDetails,omitempty"`
}

const (
	maxHistoryLimit = 100
	maxHistoryPage  = 100_000
)

// HistoryMessage message in a history page
type HistoryMessage struct {
	domain.MessageView
	TranslatedMessage map[string]string `json:"translatedMessage,omitempty"`
	IsEdited          bool              `json:"isEdited"`
	EditedAt          *time.Time        `json:"editedAt,omitempty"`
}

// HistoryPage one page of a conversation, oldest first
type HistoryPage struct {
	Messages []HistoryMessage `json:"messages"`
	HasMore  bool             `json:"hasMore"`
	Total    int64            `json:"total"`
}

// ConversationUseCase REST side of conversations
type ConversationUseCase struct {
	convRepo    repository.ConversationRepository
	msgRepo     repository.MessageRepository
	userRepo    repository.UserRepository
	bookingRepo repository.BookingRepository
	presence    *PresenceTracker
	pageSize    int
	now         func() time.Time
}

// NewConversationUseCase create ConversationUseCase
func NewConversationUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	bookingRepo repository.BookingRepository,
	presence *PresenceTracker,
	pageSize int,
) *ConversationUseCase {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &ConversationUseCase{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		userRepo:    userRepo,
		bookingRepo: bookingRepo,
		presence:    presence,
		pageSize:    pageSize,
		now:         time.Now,
	}
}

// List conversations of userID, most recently active first
func (uc *ConversationUseCase) List(ctx context.Context, userID string) ([]ConversationView, error) {
	convs, err := uc.convRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := lo.Uniq(lo.FlatMap(convs, func(c domain.Conversation, _ int) []string { return c.ParticipantIDs() }))
	users, err := uc.userRepo.FindUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(users, func(u domain.User) string { return u.ID })

	views := make([]ConversationView, 0, len(convs))
	for i := range convs {
		conv := &convs[i]
		view := ConversationView{
			ID:          conv.ID,
			BookingID:   conv.BookingID,
			UnreadCount: conv.UnreadCount,
			IsActive:    conv.IsActive,
			CreatedAt:   conv.CreatedAt,
			UpdatedAt:   conv.UpdatedAt,
		}
		for _, p := range conv.Participants {
			u := byID[p.UserID]
			view.Participants = append(view.Participants, ParticipantView{
				ID:       p.UserID,
				Name:     lo.Ternary(u.Name != "", u.Name, "Unknown"),
				Avatar:   u.Avatar,
				Role:     p.Role,
				IsOnline: uc.isOnline(ctx, p.UserID),
				LastSeen: p.LastSeen,
			})
		}
		if conv.LastMessageID != "" {
			if msg, err := uc.msgRepo.FindMessage(ctx, conv.LastMessageID); err == nil {
				sender, ok := byID[msg.SenderID]
				v := domain.NewMessageView(msg, lo.Ternary(ok, &sender, nil))
				view.LastMessage = &v
			}
		}
		if uc.bookingRepo != nil {
			if b, err := uc.bookingRepo.FindBooking(ctx, conv.BookingID); err == nil {
				view.BookingDetails = b
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (uc *ConversationUseCase) isOnline(ctx context.Context, userID string) bool {
	if uc.presence == nil {
		return false
	}
	return uc.presence.IsOnline(ctx, userID)
}

// Create opens the conversation of a booking. The caller always ends up a participant.
func (uc *ConversationUseCase) Create(ctx context.Context, callerID string, req CreateConversationRequest) (*domain.Conversation, error) {
	if err := domain.Validate(req); err != nil {
		return nil, fmt.Errorf("invalid conversation: %w", err)
	}
	if _, err := uc.bookingRepo.FindBooking(ctx, req.BookingID); err != nil {
		return nil, err
	}
	if _, err := uc.convRepo.FindByBooking(ctx, req.BookingID); err == nil {
		return nil, domain.ErrConversationExists
	} else if !errors.Is(err, domain.ErrConversationNotFound) {
		return nil, err
	}

	ids := lo.Uniq(append(append([]string{}, req.ParticipantIDs...), callerID))
	users, err := uc.userRepo.FindUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(users, func(u domain.User) string { return u.ID })

	now := uc.now()
	conv := &domain.Conversation{
		ID:          uuid.New().String(),
		BookingID:   req.BookingID,
		UnreadCount: make(map[string]int, len(ids)),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, id := range ids {
		u, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrUserNotFound)
		}
		conv.Participants = append(conv.Participants, domain.Participant{
			UserID:   id,
			Role:     lo.Ternary(u.Role != "", u.Role, domain.RoleTourist),
			JoinedAt: now,
			LastSeen: now,
		})
		conv.UnreadCount[id] = 0
	}

	if err := uc.convRepo.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	logger.Log.Info("conversation created", zap.String("conversationID", conv.ID), zap.String("bookingID", conv.BookingID))
	return conv, nil
}

// History returns page of the conversation in chronological order, marks the
// other participants' messages read and clears the caller's unread count.
func (uc *ConversationUseCase) History(ctx context.Context, userID, conversationID string, page, limit int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if page > maxHistoryPage {
		return nil, domain.ErrInvalidPage
	}
	if limit < 1 {
		limit = uc.pageSize
	}
	limit = min(limit, maxHistoryLimit)

	conv, err := uc.convRepo.FindConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	msgs, err := uc.msgRepo.ListMessages(ctx, conv.ID, page, limit)
	if err != nil {
		return nil, err
	}
	total, err := uc.msgRepo.CountMessages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	senderIDs := lo.Uniq(lo.Map(msgs, func(m domain.Message, _ int) string { return m.SenderID }))
	users, err := uc.userRepo.FindUsers(ctx, senderIDs)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(users, func(u domain.User) string { return u.ID })

	out := make([]HistoryMessage, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		m := &msgs[i]
		sender, ok := byID[m.SenderID]
		out = append(out, HistoryMessage{
			MessageView:       domain.NewMessageView(m, lo.Ternary(ok, &sender, nil)),
			TranslatedMessage: m.TranslatedBody,
			IsEdited:          m.IsEdited,
			EditedAt:          m.EditedAt,
		})
	}

	if _, err := uc.msgRepo.MarkConversationRead(ctx, conv.ID, userID); err != nil {
		return nil, err
	}
	if err := uc.convRepo.UpdateConversation(ctx, conv.ID, domain.ConversationPatch{ResetUnread: []string{userID}}); err != nil {
		return nil, err
	}

	return &HistoryPage{
		Messages: out,
		HasMore:  int64((page-1)*limit+len(msgs)) < total,
		Total:    total,
	}, nil
}
