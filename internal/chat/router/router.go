package router

import (
	"community_chat_service/internal/chat/app"
	"community_chat_service/pkg/logger"
	"community_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RegisterRoutes 注册聊天相关的路由
// @title Community Chat Service API
// @version 1.0
// @description Conversations, ephemeral direct messages, usage quota and booking notices
// @host localhost:8080
// @BasePath /
func RegisterRoutes(r *fiber.App, chatHandler *app.ChatHandler, chatWebsocket *app.ChatWebsocketHandler) {
	r.Get("/", ConnectCheck)
	r.Post("/debug", middlewares.JWTMiddleware(), DebugLogFlag)
	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := r.Group("/api/v1", middlewares.JWTMiddleware())
	api.Get("/usage", chatHandler.GetUsage)

	conv := api.Group("/conversations")
	conv.Get("/", chatHandler.ListConversations)
	conv.Post("/open", chatHandler.OpenConversation)
	conv.Get("/:id/messages", chatHandler.GetMessages)
	conv.Post("/:id/messages", chatHandler.SendMessage)
	conv.Post("/:id/accept", chatHandler.AcceptRequest)
	conv.Post("/:id/reject", chatHandler.RejectRequest)
	conv.Post("/:id/read", chatHandler.MarkRead)
	conv.Post("/:id/bookings", chatHandler.InjectBooking)
	conv.Post("/:id/inbound", chatHandler.DeliverInbound)

	r.Use("/ws", middlewares.JWTMiddleware(), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws", websocket.New(chatWebsocket.HandleConnection))
}

// ConnectCheck check service start
// @Summary Check chat service status
// @Tags Shared
// @Success 200 {string} string "chat service start!"
// @Router / [get]
func ConnectCheck(c *fiber.Ctx) error {
	return c.SendString("chat service start!")
}

// DebugLogFlag toggle debug log flag
// @Summary Toggle Debug Log Flag
// @Tags Shared
// @Param status query bool true "Debug status"
// @Success 200 {string} string "debug mode updated"
// @Router /debug [post]
func DebugLogFlag(c *fiber.Ctx) error {
	status := c.QueryBool("status", false)
	logger.Log.Info("debug", zap.Bool("status", status))
	logger.Log.SetDebugMode(status)
	return c.JSON(fiber.Map{"debug": status})
}
