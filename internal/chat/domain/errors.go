package domain

import "errors"

var (
	// ErrConversationNotFound conversation missing or caller not a participant
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrConversationExists a conversation is already open for the booking
	ErrConversationExists = errors.New("conversation already exists for this booking")
	// ErrMessageNotFound message missing
	ErrMessageNotFound = errors.New("message not found")
	// ErrUserNotFound user missing
	ErrUserNotFound = errors.New("user not found")
	// ErrBookingNotFound booking missing
	ErrBookingNotFound = errors.New("booking not found")
	// ErrEmptyMessage neither body nor attachments
	ErrEmptyMessage = errors.New("message or attachments are required")
	// ErrNotParticipant caller is not part of the conversation
	ErrNotParticipant = errors.New("user is not a participant of the conversation")
	// ErrUnsupportedFile upload type not allowed
	ErrUnsupportedFile = errors.New("invalid file type, only images, PDFs and documents are allowed")
	// ErrFileTooLarge upload over the size limit
	ErrFileTooLarge = errors.New("file too large")
	// ErrMissingLanguage translate without target
	ErrMissingLanguage = errors.New("target language is required")
	// ErrInvalidPage history page beyond the supported range
	ErrInvalidPage = errors.New("page out of range")
)
