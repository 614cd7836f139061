package router

import (
	"context"

	"tourism_chat_service/internal/api/handlers"
	"tourism_chat_service/internal/chat/app"
	"tourism_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes chat websocket, REST group and shared endpoints
// @title Tourism Chat Service API
// @version 1.0
// @BasePath /
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler, chatHandler *app.ChatHandler) {
	r.Get("/", handlers.ConnectCheck)
	r.Post("/debug", handlers.DebugLogFlag)

	// the token travels as a query parameter; the handler closes with a
	// 4001/4004 code instead of answering the upgrade with 401
	r.Use("/chat", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/chat", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c, c.Query(middlewares.QueryToken))
	}))

	api := r.Group("/api/chat", middlewares.JWTMiddleware())
	api.Get("/conversations", chatHandler.ListConversations)
	api.Post("/conversations", chatHandler.CreateConversation)
	api.Get("/conversations/:id/messages", chatHandler.GetMessages)
	api.Post("/conversations/:id/messages", chatHandler.SendMessage)
	api.Post("/upload", chatHandler.Upload)
	api.Post("/messages/:id/translate", chatHandler.Translate)
}
