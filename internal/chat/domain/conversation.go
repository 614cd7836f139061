package domain

import (
	"time"

	"github.com/samber/lo"
)

// ParticipantRole role of a user inside a booking conversation
type ParticipantRole string

const (
	// RoleTourist the traveller who booked
	RoleTourist ParticipantRole = "tourist"
	// RoleHost the experience host
	RoleHost ParticipantRole = "host"
	// RoleAdmin platform staff
	RoleAdmin ParticipantRole = "admin"
)

// Participant member of a conversation
type Participant struct {
	UserID   string          `bson:"userId" json:"userId"`
	Role     ParticipantRole `bson:"role" json:"role"`
	JoinedAt time.Time       `bson:"joinedAt" json:"joinedAt"`
	LastSeen time.Time       `bson:"lastSeen" json:"lastSeen"`
}

// Conversation thread tied to exactly one booking
type Conversation struct {
	ID            string         `bson:"_id" json:"id"`
	BookingID     string         `bson:"bookingId" json:"bookingId"`
	Participants  []Participant  `bson:"participants" json:"participants"`
	LastMessageID string         `bson:"lastMessage,omitempty" json:"lastMessageId,omitempty"`
	UnreadCount   map[string]int `bson:"unreadCount" json:"unreadCount"`
	IsActive      bool           `bson:"isActive" json:"isActive"`
	CreatedAt     time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// HasParticipant reports whether userID is a member
func (c *Conversation) HasParticipant(userID string) bool {
	return lo.ContainsBy(c.Participants, func(p Participant) bool { return p.UserID == userID })
}

// ParticipantIDs member ids in join order
func (c *Conversation) ParticipantIDs() []string {
	return lo.Map(c.Participants, func(p Participant, _ int) string { return p.UserID })
}

// ConversationPatch partial update applied atomically to one conversation.
// IncrementUnread and ResetUnread must not share user ids.
type ConversationPatch struct {
	LastMessageID   string
	UpdatedAt       time.Time
	IncrementUnread []string
	ResetUnread     []string
}

// NewMessagePatch builds the update for a message sent by senderID: every other
// participant gets one more unread message.
func NewMessagePatch(conv *Conversation, senderID, messageID string, at time.Time) ConversationPatch {
	return ConversationPatch{
		LastMessageID:   messageID,
		UpdatedAt:       at,
		IncrementUnread: lo.Without(conv.ParticipantIDs(), senderID),
	}
}
