package domain

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// close codes sent before the server drops a connection during authentication
const (
	CloseConnectionError  = 4000
	CloseAuthRequired     = 4001
	CloseUserNotFound     = 4004
	closeTextConnError    = "Connection error"
	closeTextAuthRequired = "Authentication required"
	closeTextUserNotFound = "User not found"
)

// CloseText reason phrase for a close code
func CloseText(code int) string {
	switch code {
	case CloseAuthRequired:
		return closeTextAuthRequired
	case CloseUserNotFound:
		return closeTextUserNotFound
	default:
		return closeTextConnError
	}
}

// WSAction inbound frame type
type WSAction string

const (
	// JoinConversation subscribe to live events of a conversation
	JoinConversation WSAction = "join_conversation"
	// LeaveConversation unsubscribe
	LeaveConversation WSAction = "leave_conversation"
	// SendMessage persist and broadcast a message
	SendMessage WSAction = "send_message"
	// TypingIndicator relay typing state
	TypingIndicator WSAction = "typing_indicator"
	// MarkAsRead mark one message read
	MarkAsRead WSAction = "mark_as_read"
)

// WSEvent outbound frame type
type WSEvent string

const (
	// EventNewMessage a message was stored in a subscribed conversation
	EventNewMessage WSEvent = "new_message"
	// EventMessageStatus status change of a message the receiver sent
	EventMessageStatus WSEvent = "message_status_update"
	// EventTyping typing state of another participant
	EventTyping WSEvent = "typing_indicator"
	// EventOnlineStatus presence change of another participant
	EventOnlineStatus WSEvent = "user_online_status"
)

// WSRequest inbound frame. Fields are flat and only the ones used by Type are set.
type WSRequest struct {
	Type           WSAction     `json:"type"`
	ConversationID string       `json:"conversationId,omitempty"`
	Message        string       `json:"message,omitempty"`
	MessageType    MessageType  `json:"messageType,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	ReplyTo        string       `json:"replyTo,omitempty"`
	IsTyping       bool         `json:"isTyping,omitempty"`
	MessageID      string       `json:"messageId,omitempty"`
}

// ConversationFrame payload of join/leave
type ConversationFrame struct {
	ConversationID string `validate:"required"`
}

// SendMessageFrame payload of send_message
type SendMessageFrame struct {
	ConversationID string       `validate:"required"`
	Message        string       `validate:"max=10000"`
	MessageType    MessageType  `validate:"omitempty,oneof=text image file location booking_update system"`
	Attachments    []Attachment `validate:"omitempty,max=10,dive"`
	ReplyTo        string
}

// TypingFrame payload of typing_indicator
type TypingFrame struct {
	ConversationID string `validate:"required"`
	IsTyping       bool
}

// ReadFrame payload of mark_as_read
type ReadFrame struct {
	MessageID string `validate:"required"`
}

var validate = validator.New()

// Validate runs the struct tag rules of any frame or request body.
func Validate(v interface{}) error {
	return validate.Struct(v)
}

// Conversation frame for join/leave
func (r WSRequest) Conversation() ConversationFrame {
	return ConversationFrame{ConversationID: r.ConversationID}
}

// Send frame for send_message
func (r WSRequest) Send() SendMessageFrame {
	return SendMessageFrame{
		ConversationID: r.ConversationID,
		Message:        r.Message,
		MessageType:    r.MessageType,
		Attachments:    r.Attachments,
		ReplyTo:        r.ReplyTo,
	}
}

// Typing frame for typing_indicator
func (r WSRequest) Typing() TypingFrame {
	return TypingFrame{ConversationID: r.ConversationID, IsTyping: r.IsTyping}
}

// Read frame for mark_as_read
func (r WSRequest) Read() ReadFrame {
	return ReadFrame{MessageID: r.MessageID}
}

// MessageView message as pushed to clients, enriched with sender info
type MessageView struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversationId"`
	SenderID       string          `json:"senderId"`
	SenderName     string          `json:"senderName"`
	SenderAvatar   string          `json:"senderAvatar"`
	SenderRole     ParticipantRole `json:"senderRole"`
	Message        string          `json:"message"`
	MessageType    MessageType     `json:"messageType"`
	Attachments    []Attachment    `json:"attachments"`
	ReplyTo        string          `json:"replyTo,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	Status         MessageStatus   `json:"status"`
}

// NewMessageView joins a stored message with its sender
func NewMessageView(m *Message, sender *User) MessageView {
	v := MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Message:        m.Body,
		MessageType:    m.MessageType,
		Attachments:    m.Attachments,
		ReplyTo:        m.ReplyTo,
		Timestamp:      m.CreatedAt,
		Status:         m.Status,
	}
	if v.Attachments == nil {
		v.Attachments = []Attachment{}
	}
	if sender != nil {
		v.SenderName = sender.Name
		v.SenderAvatar = sender.Avatar
		v.SenderRole = sender.Role
	}
	return v
}

// Typing typing state relayed to co-subscribers
type Typing struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName"`
	IsTyping       bool   `json:"isTyping"`
}

// WSResponse outbound frame
type WSResponse struct {
	Type      WSEvent       `json:"type"`
	Message   *MessageView  `json:"message,omitempty"`
	MessageID string        `json:"messageId,omitempty"`
	Status    MessageStatus `json:"status,omitempty"`
	Typing    *Typing       `json:"typing,omitempty"`
	UserID    string        `json:"userId,omitempty"`
	IsOnline  *bool         `json:"isOnline,omitempty"`
}

// NewMessageEvent new_message frame
func NewMessageEvent(v MessageView) WSResponse {
	return WSResponse{Type: EventNewMessage, Message: &v}
}

// StatusEvent message_status_update frame
func StatusEvent(messageID string, status MessageStatus) WSResponse {
	return WSResponse{Type: EventMessageStatus, MessageID: messageID, Status: status}
}

// TypingEvent typing_indicator frame
func TypingEvent(t Typing) WSResponse {
	return WSResponse{Type: EventTyping, Typing: &t}
}

// OnlineStatusEvent user_online_status frame
func OnlineStatusEvent(userID string, online bool) WSResponse {
	return WSResponse{Type: EventOnlineStatus, UserID: userID, IsOnline: &online}
}
