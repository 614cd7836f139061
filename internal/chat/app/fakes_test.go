package app

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"tourism_chat_service/internal/chat/domain"

	"github.com/gofiber/websocket/v2"
	"github.com/samber/lo"
)

// memStore in-memory conversations, messages and users
type memStore struct {
	mu       sync.Mutex
	convs    map[string]*domain.Conversation
	msgs     map[string]*domain.Message
	order    []string
	users    map[string]*domain.User
	presence map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		convs:    map[string]*domain.Conversation{},
		msgs:     map[string]*domain.Message{},
		users:    map[string]*domain.User{},
		presence: map[string]bool{},
	}
}

func (s *memStore) addUser(id, name string, role domain.ParticipantRole) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &domain.User{ID: id, Name: name, Role: role}
}

func (s *memStore) addConversation(id string, userIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := &domain.Conversation{ID: id, BookingID: "booking-" + id, UnreadCount: map[string]int{}, IsActive: true}
	for _, u := range userIDs {
		conv.Participants = append(conv.Participants, domain.Participant{UserID: u, Role: domain.RoleTourist})
		conv.UnreadCount[u] = 0
	}
	s.convs[id] = conv
}

func (s *memStore) conversation(id string) domain.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *s.convs[id]
	c.UnreadCount = lo.Assign(c.UnreadCount)
	return c
}

func (s *memStore) message(id string) domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.msgs[id]
}

func (s *memStore) lastMessageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return ""
	}
	return s.order[len(s.order)-1]
}

func (s *memStore) isOnline(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence[id]
}

func (s *memStore) EnsureIndexes(context.Context) error { return nil }

func (s *memStore) FindConversation(_ context.Context, id, participantID string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok || !c.HasParticipant(participantID) {
		return nil, domain.ErrConversationNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) FindByID(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) FindByBooking(_ context.Context, bookingID string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.convs {
		if c.BookingID == bookingID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrConversationNotFound
}

func (s *memStore) CreateConversation(_ context.Context, conv *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.convs {
		if c.BookingID == conv.BookingID {
			return domain.ErrConversationExists
		}
	}
	cp := *conv
	s.convs[conv.ID] = &cp
	return nil
}

func (s *memStore) ListForUser(_ context.Context, userID string) ([]domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Conversation{}
	for _, c := range s.convs {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *memStore) UpdateConversation(_ context.Context, id string, patch domain.ConversationPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return domain.ErrConversationNotFound
	}
	if patch.LastMessageID != "" {
		c.LastMessageID = patch.LastMessageID
	}
	if !patch.UpdatedAt.IsZero() {
		c.UpdatedAt = patch.UpdatedAt
	}
	for _, u := range patch.ResetUnread {
		c.UnreadCount[u] = 0
	}
	for _, u := range patch.IncrementUnread {
		c.UnreadCount[u]++
	}
	return nil
}

func (s *memStore) CreateMessage(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *msg
	s.msgs[msg.ID] = &cp
	s.order = append(s.order, msg.ID)
	return nil
}

func (s *memStore) FindMessage(_ context.Context, id string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) UpdateMessageStatus(_ context.Context, id string, status domain.MessageStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return false, domain.ErrMessageNotFound
	}
	if !m.Status.CanAdvanceTo(status) {
		return false, nil
	}
	m.Status = status
	return true, nil
}

func (s *memStore) ListMessages(_ context.Context, conversationID string, page, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []domain.Message
	for i := len(s.order) - 1; i >= 0; i-- {
		if m := s.msgs[s.order[i]]; m.ConversationID == conversationID {
			all = append(all, *m)
		}
	}
	return lo.Subset(all, (page-1)*limit, uint(limit)), nil
}

func (s *memStore) CountMessages(_ context.Context, conversationID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(lo.CountBy(lo.Values(s.msgs), func(m *domain.Message) bool { return m.ConversationID == conversationID })), nil
}

func (s *memStore) MarkConversationRead(_ context.Context, conversationID, readerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.msgs {
		if m.ConversationID == conversationID && m.SenderID != readerID && m.Status != domain.StatusRead {
			m.Status = domain.StatusRead
			n++
		}
	}
	return n, nil
}

func (s *memStore) SaveTranslation(_ context.Context, id, lang, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return domain.ErrMessageNotFound
	}
	if m.TranslatedBody == nil {
		m.TranslatedBody = map[string]string{}
	}
	m.TranslatedBody[lang] = text
	return nil
}

func (s *memStore) FindUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) FindUsers(_ context.Context, ids []string) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.User{}
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *memStore) UpdatePresence(_ context.Context, id string, online bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presence[id] = online
	if u, ok := s.users[id]; ok {
		u.IsOnline = online
		u.LastSeen = at
	}
	return nil
}

// fakeConn scripted websocket connection
type fakeConn struct {
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once

	mu      sync.Mutex
	written []domain.WSResponse
	closeCd int
	pings   int
	failPng bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16), closed: make(chan struct{})}
}

var errConnClosed = errors.New("use of closed connection")

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case b := <-f.inbound:
		return websocket.TextMessage, b, nil
	case <-f.closed:
		return 0, nil, errConnClosed
	}
}

func (f *fakeConn) WriteMessage(mt int, data []byte) error {
	select {
	case <-f.closed:
		return errConnClosed
	default:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if mt == websocket.CloseMessage {
		if len(data) >= 2 {
			f.closeCd = int(data[0])<<8 | int(data[1])
		}
		return nil
	}
	var resp domain.WSResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return err
	}
	f.written = append(f.written, resp)
	return nil
}

func (f *fakeConn) WriteControl(mt int, _ []byte, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if mt == websocket.PingMessage {
		f.pings++
		if f.failPng {
			return errConnClosed
		}
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) send(v interface{}) {
	b, _ := json.Marshal(v)
	f.inbound <- b
}

func (f *fakeConn) frames() []domain.WSResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.WSResponse(nil), f.written...)
}

func (f *fakeConn) framesOf(t domain.WSEvent) []domain.WSResponse {
	return lo.Filter(f.frames(), func(r domain.WSResponse, _ int) bool { return r.Type == t })
}

func (f *fakeConn) closeCode() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCd
}

func (f *fakeConn) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// staticVerifier maps tokens to user ids
type staticVerifier struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (v *staticVerifier) add(token, userID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens[token] = userID
}

func (v *staticVerifier) Verify(token string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if id, ok := v.tokens[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

// chatHarness wires the realtime stack on a memStore
type chatHarness struct {
	store       *memStore
	registry    *ConnectionRegistry
	subs        *SubscriptionTable
	broadcaster *Broadcaster
	presence    *PresenceTracker
	messageUC   *SendMessageUseCase
	handler     *ChatWebsocketHandler
	verifier    *staticVerifier
}

func newChatHarness(delay time.Duration) *chatHarness {
	store := newMemStore()
	registry := NewConnectionRegistry()
	subs := NewSubscriptionTable()
	broadcaster := NewBroadcaster(registry, subs)
	presence := NewPresenceTracker(store, nil, time.Hour)
	messageUC := NewSendMessageUseCase(store, store, store, nil, broadcaster, nil)
	verifier := &staticVerifier{tokens: map[string]string{}}
	handler := NewChatWebsocketHandler(registry, subs, broadcaster, presence, messageUC, store, verifier, SessionConfig{
		DeliveryDelay: delay,
		SendBuffer:    32,
	})
	return &chatHarness{
		store:       store,
		registry:    registry,
		subs:        subs,
		broadcaster: broadcaster,
		presence:    presence,
		messageUC:   messageUC,
		handler:     handler,
		verifier:    verifier,
	}
}

// connect registers the token of userID and runs a session on a fake conn
func (h *chatHarness) connect(userID string) (*fakeConn, <-chan struct{}) {
	h.verifier.add("tok-"+userID, userID)
	conn := newFakeConn()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.handler.HandleConnection(context.Background(), conn, "tok-"+userID)
	}()
	return conn, done
}
