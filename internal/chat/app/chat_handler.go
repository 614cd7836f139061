package app

import (
	"errors"
	"strconv"

	"tourism_chat_service/internal/chat/domain"
	"tourism_chat_service/pkg/logger"
	"tourism_chat_service/pkg/middlewares"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHandler REST surface of the chat
type ChatHandler struct {
	convUC    *ConversationUseCase
	messageUC *SendMessageUseCase
	uploadUC  *UploadUseCase
}

// NewChatHandler create ChatHandler
func NewChatHandler(convUC *ConversationUseCase, messageUC *SendMessageUseCase, uploadUC *UploadUseCase) *ChatHandler {
	return &ChatHandler{convUC: convUC, messageUC: messageUC, uploadUC: uploadUC}
}

// ListConversations conversations of the caller
// @Summary List conversations
// @Tags Chat
// @Produce json
// @Success 200 {array} ConversationView
// @Router /api/chat/conversations [get]
func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	views, err := h.convUC.List(c.UserContext(), middlewares.UserID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(views)
}

// CreateConversation open the conversation of a booking
// @Summary Create conversation
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body CreateConversationRequest true "booking and participants"
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/chat/conversations [post]
func (h *ChatHandler) CreateConversation(c *fiber.Ctx) error {
	var req CreateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Booking ID and participant IDs are required"})
	}
	conv, err := h.convUC.Create(c.UserContext(), middlewares.UserID(c), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": conv.ID})
}

// GetMessages history page of a conversation
// @Summary Conversation history
// @Tags Chat
// @Produce json
// @Param id path string true "conversation id"
// @Param page query int false "page, from 1"
// @Param limit query int false "page size"
// @Success 200 {object} HistoryPage
// @Failure 404 {object} map[string]string
// @Router /api/chat/conversations/{id}/messages [get]
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	history, err := h.convUC.History(c.UserContext(), middlewares.UserID(c), c.Params("id"), page, limit)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(history)
}

// SendMessage same pipeline as the websocket send_message
// @Summary Send message
// @Tags Chat
// @Accept json
// @Produce json
// @Param id path string true "conversation id"
// @Success 201 {object} domain.MessageView
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/chat/conversations/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	type request struct {
		Message     string              `json:"message"`
		MessageType domain.MessageType  `json:"messageType"`
		Attachments []domain.Attachment `json:"attachments"`
		ReplyTo     string              `json:"replyTo"`
	}
	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	view, err := h.messageUC.Execute(c.UserContext(), middlewares.UserID(c), domain.SendMessageFrame{
		ConversationID: c.Params("id"),
		Message:        req.Message,
		MessageType:    req.MessageType,
		Attachments:    req.Attachments,
		ReplyTo:        req.ReplyTo,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// Upload store one attachment
// @Summary Upload attachment
// @Tags Chat
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "attachment"
// @Success 200 {object} domain.Attachment
// @Failure 400 {object} map[string]string
// @Failure 413 {object} map[string]string
// @Router /api/chat/upload [post]
func (h *ChatHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file uploaded"})
	}
	if fh.Size > h.uploadUC.MaxBytes() {
		return errorResponse(c, domain.ErrFileTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return errorResponse(c, err)
	}
	defer f.Close()

	att, err := h.uploadUC.Upload(c.UserContext(), fh.Filename, fh.Size, f)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(att)
}

// Translate message into targetLanguage
// @Summary Translate message
// @Tags Chat
// @Accept json
// @Produce json
// @Param id path string true "message id"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/chat/messages/{id}/translate [post]
func (h *ChatHandler) Translate(c *fiber.Ctx) error {
	type request struct {
		TargetLanguage string `json:"targetLanguage"`
	}
	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	text, err := h.messageUC.Translate(c.UserContext(), middlewares.UserID(c), c.Params("id"), req.TargetLanguage)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"translatedText": text})
}

func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs),
		errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrUnsupportedFile),
		errors.Is(err, domain.ErrMissingLanguage),
		errors.Is(err, domain.ErrInvalidPage):
		status = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotParticipant):
		status = fiber.StatusForbidden
	case errors.Is(err, domain.ErrConversationNotFound),
		errors.Is(err, domain.ErrMessageNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrBookingNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrConversationExists):
		status = fiber.StatusConflict
	case errors.Is(err, domain.ErrFileTooLarge):
		status = fiber.StatusRequestEntityTooLarge
	}

	if status == fiber.StatusInternalServerError {
		logger.Log.Error("chat request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": "Server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
