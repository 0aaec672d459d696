package app

import (
	"errors"

	accountdomain "community_chat_service/internal/account/domain"
	"community_chat_service/internal/chat/domain"
	"community_chat_service/pkg/logger"
	"community_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHandler 处理聊天相关的 HTTP 请求
type ChatHandler struct {
	roomUC    *RoomUseCase
	messageUC *MessageUseCase
	bookingUC *BookingUseCase
	gate      *QuotaGate
}

// NewChatHandler create ChatHandler
func NewChatHandler(roomUC *RoomUseCase, messageUC *MessageUseCase, bookingUC *BookingUseCase, gate *QuotaGate) *ChatHandler {
	return &ChatHandler{
		roomUC:    roomUC,
		messageUC: messageUC,
		bookingUC: bookingUC,
		gate:      gate,
	}
}

// OpenRequest body of POST /conversations/open
type OpenRequest struct {
	RoomID string            `json:"room_id"`
	Hints  *domain.OpenHints `json:"hints,omitempty"`
}

// SendRequest body of message sends
type SendRequest struct {
	Content string `json:"content"`
}

// ErrorResponse error body
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Upsell bool   `json:"upsell,omitempty"`
}

func actorOf(c *fiber.Ctx) Actor {
	return Actor{ID: middlewares.MemberID(c), Role: accountdomain.Role(middlewares.Role(c))}
}

func fail(c *fiber.Ctx, err error) error {
	status, code := ErrorCode(err)
	if status == fiber.StatusInternalServerError {
		logger.Log.Error("chat api", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(ErrorResponse{
		Error:  err.Error(),
		Code:   code,
		Upsell: errors.Is(err, domain.ErrQuotaExceeded),
	})
}

func badRequest(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request", Code: "bad_request"})
}

// ListConversations godoc
// @Summary List conversations
// @Description Conversations of the caller, most recent activity first
// @Tags Chat
// @Produce json
// @Param kind query string false "business_inquiry | marketplace | direct_message | all"
// @Success 200 {array} domain.ChatRoom
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/conversations [get]
func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	rooms, err := h.roomUC.List(c.UserContext(), middlewares.MemberID(c), c.Query("kind"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(rooms)
}

// OpenConversation godoc
// @Summary Open a conversation
// @Description Returns the stored conversation or creates it from hints
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body OpenRequest true "room id and hints"
// @Success 200 {object} domain.ChatRoom
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/conversations/open [post]
func (h *ChatHandler) OpenConversation(c *fiber.Ctx) error {
	var req OpenRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}
	room, err := h.roomUC.Open(c.UserContext(), middlewares.MemberID(c), req.RoomID, req.Hints)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(room)
}

// GetMessages godoc
// @Summary Conversation messages
// @Description Visible messages in insertion order, expired ones are never returned
// @Tags Chat
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {array} domain.ChatMessage
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/conversations/{id}/messages [get]
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if _, err := h.roomUC.Get(ctx, middlewares.MemberID(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	msgs, err := h.messageUC.Snapshot(ctx, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(msgs)
}

// SendMessage godoc
// @Summary Send a message
// @Description Metered business accounts are limited per period; 402 carries upsell=true
// @Tags Chat
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param request body SendRequest true "draft"
// @Success 201 {object} domain.ChatMessage
// @Failure 400 {object} ErrorResponse
// @Failure 402 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/conversations/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req SendRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}
	msg, err := h.messageUC.TrySend(c.UserContext(), actorOf(c), c.Params("id"), req.Content)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// AcceptRequest godoc
// @Summary Accept a chat request
// @Tags Chat
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} domain.ChatRoom
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/conversations/{id}/accept [post]
func (h *ChatHandler) AcceptRequest(c *fiber.Ctx) error {
	room, err := h.roomUC.Accept(c.UserContext(), middlewares.MemberID(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(room)
}

// RejectRequest godoc
// @Summary Reject a chat request
// @Tags Chat
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} domain.ChatRoom
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/conversations/{id}/reject [post]
func (h *ChatHandler) RejectRequest(c *fiber.Ctx) error {
	room, err := h.roomUC.Reject(c.UserContext(), middlewares.MemberID(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(room)
}

// MarkRead godoc
// @Summary Mark a conversation read
// @Tags Chat
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} domain.ChatRoom
// @Router /api/v1/conversations/{id}/read [post]
func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	room, err := h.roomUC.MarkRead(c.UserContext(), middlewares.MemberID(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(room)
}

// InjectBooking godoc
// @Summary Add a booking notice
// @Description No-op when a notice for the same date and time is already shown
// @Tags Chat
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param request body domain.BookingPayload true "booking"
// @Success 201 {object} domain.ChatMessage "injected"
// @Success 200 {object} domain.ChatMessage "already present"
// @Router /api/v1/conversations/{id}/bookings [post]
func (h *ChatHandler) InjectBooking(c *fiber.Ctx) error {
	var req domain.BookingPayload
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}
	ctx := c.UserContext()
	if _, err := h.roomUC.Get(ctx, middlewares.MemberID(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	msg, injected, err := h.bookingUC.Inject(ctx, c.Params("id"), req)
	if err != nil {
		return fail(c, err)
	}
	if injected {
		return c.Status(fiber.StatusCreated).JSON(msg)
	}
	return c.JSON(msg)
}

// DeliverInbound godoc
// @Summary Deliver a counterpart message
// @Description Inbound message from the other side, never metered
// @Tags Chat
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param request body SendRequest true "message"
// @Success 201 {object} domain.ChatMessage
// @Router /api/v1/conversations/{id}/inbound [post]
func (h *ChatHandler) DeliverInbound(c *fiber.Ctx) error {
	var req SendRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}
	ctx := c.UserContext()
	if _, err := h.roomUC.Get(ctx, middlewares.MemberID(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	msg, err := h.messageUC.Deliver(ctx, c.Params("id"), req.Content)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GetUsage godoc
// @Summary Current message usage
// @Tags Chat
// @Produce json
// @Success 200 {object} UsageStatus
// @Router /api/v1/usage [get]
func (h *ChatHandler) GetUsage(c *fiber.Ctx) error {
	status, err := h.gate.Usage(c.UserContext(), actorOf(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(status)
}
