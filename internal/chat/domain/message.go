package domain

import "time"

// MessageType kind of content carried by a message
type MessageType string

const (
	// MessageTypeText plain text
	MessageTypeText MessageType = "text"
	// MessageTypeImage image attachment
	MessageTypeImage MessageType = "image"
	// MessageTypeFile file attachment
	MessageTypeFile MessageType = "file"
	// MessageTypeLocation shared location
	MessageTypeLocation MessageType = "location"
	// MessageTypeBookingUpdate booking lifecycle notice
	MessageTypeBookingUpdate MessageType = "booking_update"
	// MessageTypeSystem platform generated
	MessageTypeSystem MessageType = "system"
)

// Valid reports whether t is a known message type
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeLocation,
		MessageTypeBookingUpdate, MessageTypeSystem:
		return true
	}
	return false
}

// MessageStatus delivery state of a message
type MessageStatus string

const (
	// StatusSending accepted by the client, not yet stored
	StatusSending MessageStatus = "sending"
	// StatusSent stored
	StatusSent MessageStatus = "sent"
	// StatusDelivered handed to recipients
	StatusDelivered MessageStatus = "delivered"
	// StatusRead seen by a recipient
	StatusRead MessageStatus = "read"
)

var statusRank = map[MessageStatus]int{
	StatusSending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// Rank position along sending→sent→delivered→read, -1 when unknown
func (s MessageStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// CanAdvanceTo reports whether moving from s to next keeps the status monotonic
// and actually changes it.
func (s MessageStatus) CanAdvanceTo(next MessageStatus) bool {
	return next.Rank() > s.Rank()
}

// Below returns every status ranked lower than s.
func (s MessageStatus) Below() []MessageStatus {
	var out []MessageStatus
	for st, r := range statusRank {
		if r < s.Rank() {
			out = append(out, st)
		}
	}
	return out
}

// AttachmentType kind of uploaded file
type AttachmentType string

const (
	// AttachmentImage image/*
	AttachmentImage AttachmentType = "image"
	// AttachmentFile anything else
	AttachmentFile AttachmentType = "file"
)

// Attachment uploaded file referenced by a message
type Attachment struct {
	URL  string         `bson:"url" json:"url" validate:"required,url"`
	Type AttachmentType `bson:"type" json:"type" validate:"required,oneof=image file"`
	Name string         `bson:"name" json:"name"`
	Size int64          `bson:"size" json:"size" validate:"gte=0"`
}

// Message stored chat message
type Message struct {
	ID             string            `bson:"_id" json:"id"`
	ConversationID string            `bson:"conversationId" json:"conversationId"`
	SenderID       string            `bson:"senderId" json:"senderId"`
	Body           string            `bson:"message" json:"message"`
	MessageType    MessageType       `bson:"messageType" json:"messageType"`
	Attachments    []Attachment      `bson:"attachments,omitempty" json:"attachments,omitempty"`
	Status         MessageStatus     `bson:"status" json:"status"`
	TranslatedBody map[string]string `bson:"translatedMessage,omitempty" json:"translatedMessage,omitempty"`
	IsEdited       bool              `bson:"isEdited" json:"isEdited"`
	EditedAt       *time.Time        `bson:"editedAt,omitempty" json:"editedAt,omitempty"`
	ReplyTo        string            `bson:"replyTo,omitempty" json:"replyTo,omitempty"`
	CreatedAt      time.Time         `bson:"createdAt" json:"timestamp"`
}

// InferMessageType picks the type for a new message: an explicit valid type
// wins, otherwise image when attachments are present, else text.
func InferMessageType(requested MessageType, attachments []Attachment) MessageType {
	if requested.Valid() {
		return requested
	}
	if len(attachments) > 0 {
		return MessageTypeImage
	}
	return MessageTypeText
}
