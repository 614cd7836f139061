package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"tourism_chat_service/internal/chat/domain"
	"tourism_chat_service/internal/chat/repository"
	"tourism_chat_service/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// TokenVerifier resolves a token to the user id it was issued for
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// SessionConfig per connection timings
type SessionConfig struct {
	DeliveryDelay time.Duration
	PingInterval  time.Duration
	SendBuffer    int
}

// ChatWebsocketHandler owns the realtime session lifecycle
type ChatWebsocketHandler struct {
	registry    *ConnectionRegistry
	subs        *SubscriptionTable
	broadcaster *Broadcaster
	presence    *PresenceTracker
	messageUC   *SendMessageUseCase
	users       repository.UserRepository
	verifier    TokenVerifier
	cfg         SessionConfig
	// lifecycle serializes connect and disconnect bookkeeping per user
	lifecycle *keyedMutex
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	registry *ConnectionRegistry,
	subs *SubscriptionTable,
	broadcaster *Broadcaster,
	presence *PresenceTracker,
	messageUC *SendMessageUseCase,
	users repository.UserRepository,
	verifier TokenVerifier,
	cfg SessionConfig,
) *ChatWebsocketHandler {
	if cfg.DeliveryDelay <= 0 {
		cfg.DeliveryDelay = time.Second
	}
	return &ChatWebsocketHandler{
		registry:    registry,
		subs:        subs,
		broadcaster: broadcaster,
		presence:    presence,
		messageUC:   messageUC,
		users:       users,
		verifier:    verifier,
		cfg:         cfg,
		lifecycle:   newKeyedMutex(),
	}
}

// session state bound to one connection
type session struct {
	userID string
	client *Client

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
	closed bool
}

// schedule runs fn after d unless the session closes first
func (s *session) schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()
		fn()
	})
	s.timers[t] = struct{}{}
}

// stop cancels pending timers; callbacks already running finish
func (s *session) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

func (s *session) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// HandleConnection is the websocket entry point. It returns once the
// connection is closed and cleaned up.
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn SocketConn, token string) {
	defer conn.Close()

	if token == "" {
		closeWebSocketConnection(conn, domain.CloseAuthRequired)
		return
	}

	userID, err := h.verifier.Verify(token)
	if err != nil {
		logger.Log.Info("websocket token rejected", zap.Error(err))
		closeWebSocketConnection(conn, domain.CloseUserNotFound)
		return
	}

	if _, err := h.users.FindUser(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			closeWebSocketConnection(conn, domain.CloseUserNotFound)
		} else {
			logger.Log.Error("websocket user lookup failed", zap.String("userID", userID), zap.Error(err))
			closeWebSocketConnection(conn, domain.CloseConnectionError)
		}
		return
	}

	client := NewClient(userID, conn, h.cfg.SendBuffer)
	go client.writeLoop(h.cfg.PingInterval)

	h.activate(ctx, userID, client)
	logger.Log.Info("websocket connected", zap.String("userID", userID))

	sess := &session{userID: userID, client: client, timers: make(map[*time.Timer]struct{})}
	defer h.cleanup(ctx, sess)

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("websocket closed by client", zap.String("userID", userID))
			} else {
				logger.Log.Info("websocket read ended", zap.String("userID", userID), zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		h.dispatch(ctx, sess, data)
	}
}

// activate registers client and marks userID online. It shares the per-user
// lock with cleanup so an old session going offline cannot interleave with a
// reconnect.
func (h *ChatWebsocketHandler) activate(ctx context.Context, userID string, client *Client) {
	unlock := h.lifecycle.Lock(userID)
	defer unlock()

	if prev := h.registry.Register(userID, client); prev != nil {
		logger.Log.Info("websocket replaced previous connection", zap.String("userID", userID))
	}
	if err := h.presence.SetOnline(ctx, userID, time.Now()); err != nil {
		logger.Log.Error("set online failed", zap.String("userID", userID), zap.Error(err))
	}
}

// cleanup only touches shared state while this connection is still the
// registered one, so a stale socket closing after a reconnect changes nothing.
func (h *ChatWebsocketHandler) cleanup(ctx context.Context, sess *session) {
	sess.stop()
	sess.client.Close()
	sess.client.Wait()

	unlock := h.lifecycle.Lock(sess.userID)
	defer unlock()

	if !h.registry.UnregisterIf(sess.userID, sess.client) {
		logger.Log.Info("websocket stale connection closed", zap.String("userID", sess.userID))
		return
	}

	left := h.subs.RemoveEverywhere(sess.userID)
	if err := h.presence.SetOffline(ctx, sess.userID, time.Now()); err != nil {
		logger.Log.Error("set offline failed", zap.String("userID", sess.userID), zap.Error(err))
	}
	for _, conversationID := range left {
		h.broadcaster.BroadcastToConversation(conversationID, domain.OnlineStatusEvent(sess.userID, false), sess.userID)
	}
	logger.Log.Info("websocket disconnected", zap.String("userID", sess.userID))
}

// dispatch handles one frame. Malformed or unauthorized frames are logged and dropped.
func (h *ChatWebsocketHandler) dispatch(ctx context.Context, sess *session, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("websocket frame panic", zap.String("userID", sess.userID), zap.String("panic", fmt.Sprint(r)))
		}
	}()

	var req domain.WSRequest
	if err := json.Unmarshal(data, &req); err != nil {
		logger.Log.Warn("websocket malformed frame", zap.String("userID", sess.userID), zap.Error(err))
		return
	}

	userID := sess.userID
	var err error
	switch req.Type {
	case domain.JoinConversation:
		err = h.join(req.Conversation(), userID)

	case domain.LeaveConversation:
		frame := req.Conversation()
		if err = domain.Validate(frame); err == nil {
			h.subs.Leave(frame.ConversationID, userID)
		}

	case domain.SendMessage:
		var view *domain.MessageView
		view, err = h.messageUC.Execute(ctx, userID, req.Send())
		if err == nil {
			messageID := view.ID
			sess.schedule(h.cfg.DeliveryDelay, func() {
				if err := h.messageUC.MarkDelivered(ctx, messageID); err != nil {
					logger.Log.Warn("mark delivered failed", zap.String("messageID", messageID), zap.Error(err))
				}
			})
		}

	case domain.TypingIndicator:
		err = h.messageUC.Typing(ctx, userID, req.Typing())

	case domain.MarkAsRead:
		frame := req.Read()
		if err = domain.Validate(frame); err == nil {
			err = h.messageUC.MarkRead(ctx, userID, frame.MessageID)
		}

	default:
		logger.Log.Warn("websocket unknown frame type", zap.String("userID", userID), zap.String("type", string(req.Type)))
		return
	}

	if err != nil {
		logger.Log.Warn("websocket frame dropped",
			zap.String("userID", userID),
			zap.String("type", string(req.Type)),
			zap.Error(err),
		)
	}
}

func (h *ChatWebsocketHandler) join(frame domain.ConversationFrame, userID string) error {
	if err := domain.Validate(frame); err != nil {
		return err
	}
	h.subs.Join(frame.ConversationID, userID)
	h.broadcaster.BroadcastToConversation(frame.ConversationID, domain.OnlineStatusEvent(userID, true), userID)
	logger.Log.Debug("joined conversation", zap.String("userID", userID), zap.String("conversationID", frame.ConversationID))
	return nil
}

func closeWebSocketConnection(conn SocketConn, code int) {
	if err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, domain.CloseText(code))); err != nil {
		logger.Log.Warn("failed to send close frame", zap.Int("code", code), zap.Error(err))
	}
}
