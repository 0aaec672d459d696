package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	accountdomain "community_chat_service/internal/account/domain"
	"community_chat_service/internal/chat/domain"
	"community_chat_service/internal/chat/repository"
	"community_chat_service/pkg/logger"
	"community_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// wsWriter the write side of a websocket connection
type wsWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// ChatWebsocketHandler 可包含所有需要的 UseCase
type ChatWebsocketHandler struct {
	roomUC    *RoomUseCase
	messageUC *MessageUseCase
	bookingUC *BookingUseCase
	sweeper   *ExpirySweeper
	pubsub    repository.PubSub

	pingInterval time.Duration
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	roomUC *RoomUseCase,
	messageUC *MessageUseCase,
	bookingUC *BookingUseCase,
	sweeper *ExpirySweeper,
	pubsub repository.PubSub,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		roomUC:       roomUC,
		messageUC:    messageUC,
		bookingUC:    bookingUC,
		sweeper:      sweeper,
		pubsub:       pubsub,
		pingInterval: time.Minute,
	}
}

// wsSession state of one connection: the rooms it has entered and their release funcs
type wsSession struct {
	actor  Actor
	ctx    context.Context
	writer wsWriter

	writeMu sync.Mutex
	mu      sync.Mutex
	views   map[string]func()
}

func newWSSession(ctx context.Context, actor Actor, w wsWriter) *wsSession {
	return &wsSession{actor: actor, ctx: ctx, writer: w, views: make(map[string]func())}
}

// send - 發送 JSON 給前端
func (s *wsSession) send(resp domain.WSResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Error("websocket encode", zap.Error(err))
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.writer.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Debug("websocket write", zap.String("member_id", s.actor.ID), zap.Error(err))
	}
}

func (s *wsSession) setView(roomID string, release func()) {
	s.mu.Lock()
	old := s.views[roomID]
	s.views[roomID] = release
	s.mu.Unlock()
	if old != nil {
		old()
	}
}

func (s *wsSession) hasView(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.views[roomID]
	return ok
}

func (s *wsSession) release(roomID string) {
	s.mu.Lock()
	release := s.views[roomID]
	delete(s.views, roomID)
	s.mu.Unlock()
	if release != nil {
		release()
	}
}

func (s *wsSession) releaseAll() {
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]func())
	s.mu.Unlock()
	for _, release := range views {
		release()
	}
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(conn *websocket.Conn) {
	memberID, _ := conn.Locals(middlewares.TokenMemberID).(string)
	role, _ := conn.Locals(middlewares.TokenRole).(string)
	logger.Log.Info("websocket connected", zap.String("member_id", memberID))

	ctx, cancel := context.WithCancel(context.Background())
	session := newWSSession(ctx, Actor{ID: memberID, Role: accountdomain.Role(role)}, conn)

	defer func() {
		// 關閉連線時釋放所有 sweeper 與訂閱
		session.releaseAll()
		cancel()
		conn.Close()
		logger.Log.Info("websocket close", zap.String("member_id", memberID))
	}()

	conn.SetPongHandler(func(appData string) error {
		logger.Log.Debug("Received PONG", zap.String("member_id", memberID))
		return nil
	})

	// 定期發送 Ping
	go func() {
		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				session.writeMu.Lock()
				err := conn.WriteMessage(websocket.PingMessage, []byte("ping"))
				session.writeMu.Unlock()
				if err != nil {
					logger.Log.Debug("ping error", zap.String("member_id", memberID), zap.Error(err))
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Debug("connection closed", zap.String("member_id", memberID))
			} else {
				//直接斷線 1006
				logger.Log.Warn("websocket read error", zap.String("member_id", memberID), zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			session.send(domain.WSResponse{Action: "error", Error: "unsupported message type", Code: "bad_request"})
			continue
		}
		h.handleText(session, message)
	}
}

func (h *ChatWebsocketHandler) handleText(s *wsSession, raw []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.send(domain.WSResponse{Action: "error", Error: "invalid json", Code: "bad_request"})
		return
	}
	s.send(h.dispatch(s, req))
}

func (h *ChatWebsocketHandler) dispatch(s *wsSession, req domain.WSRequest) domain.WSResponse {
	ctx := s.ctx
	resp := domain.WSResponse{Action: req.Action, Payload: map[string]interface{}{}}
	var err error

	switch domain.Action(req.Action) {
	case domain.ListRooms:
		var rooms []*domain.ChatRoom
		if rooms, err = h.roomUC.List(ctx, s.actor.ID, req.Kind); err == nil {
			resp.Payload["rooms"] = rooms
		}

	case domain.OpenRoom:
		var room *domain.ChatRoom
		if room, err = h.roomUC.Open(ctx, s.actor.ID, req.RoomID, req.Hints); err == nil {
			resp.Payload["room"] = room
		}

	//進入聊天室: 訂閱 room channel，direct message 另外掛上 sweeper
	case domain.EnterRoom:
		var (
			room *domain.ChatRoom
			msgs []domain.ChatMessage
		)
		if room, msgs, err = h.enter(s, req.RoomID); err == nil {
			resp.Payload["room"] = room
			resp.Payload["messages"] = msgs
		}

	case domain.LeaveRoom:
		s.release(req.RoomID)
		resp.Payload["room_id"] = req.RoomID

	case domain.AcceptRequest:
		var room *domain.ChatRoom
		if room, err = h.roomUC.Accept(ctx, s.actor.ID, req.RoomID); err == nil {
			resp.Payload["room"] = room
			// 變成 active 後才需要 sweeper
			if s.hasView(req.RoomID) {
				if _, _, err = h.enter(s, req.RoomID); err != nil {
					logger.Log.Warn("remount view", zap.String("room_id", req.RoomID), zap.Error(err))
					err = nil
				}
			}
		}

	case domain.RejectRequest:
		var room *domain.ChatRoom
		if room, err = h.roomUC.Reject(ctx, s.actor.ID, req.RoomID); err == nil {
			resp.Payload["room"] = room
		}

	case domain.SendMessage:
		var msg *domain.ChatMessage
		if msg, err = h.messageUC.TrySend(ctx, s.actor, req.RoomID, req.Content); err == nil {
			resp.Payload["message"] = msg
		}

	case domain.ReadMessage:
		var room *domain.ChatRoom
		if room, err = h.roomUC.MarkRead(ctx, s.actor.ID, req.RoomID); err == nil {
			resp.Payload["room"] = room
		}

	case domain.InjectBooking:
		err = h.injectBooking(ctx, s.actor, req, resp.Payload)

	default:
		resp.Error = "unknown action"
		resp.Code = "unknown_action"
		return resp
	}

	if err != nil {
		_, code := ErrorCode(err)
		resp.Error = err.Error()
		resp.Code = code
		if errors.Is(err, domain.ErrQuotaExceeded) {
			resp.Payload["upsell"] = true
		}
		logger.Log.Debug("websocket action failed",
			zap.String("member_id", s.actor.ID), zap.String("action", req.Action), zap.Error(err))
		return resp
	}
	resp.Success = true
	return resp
}

func (h *ChatWebsocketHandler) injectBooking(ctx context.Context, actor Actor, req domain.WSRequest, payload map[string]interface{}) error {
	if req.Booking == nil {
		return domain.ErrInvalidBooking
	}
	if _, err := h.roomUC.Get(ctx, actor.ID, req.RoomID); err != nil {
		return err
	}
	msg, injected, err := h.bookingUC.Inject(ctx, req.RoomID, *req.Booking)
	if err != nil {
		return err
	}
	payload["message"] = msg
	payload["injected"] = injected
	return nil
}

// enter mount the room view on the session, replacing an earlier view of the same room
func (h *ChatWebsocketHandler) enter(s *wsSession, roomID string) (*domain.ChatRoom, []domain.ChatMessage, error) {
	room, err := h.roomUC.Get(s.ctx, s.actor.ID, roomID)
	if err != nil {
		return nil, nil, err
	}

	viewCtx, cancel := context.WithCancel(s.ctx)
	if h.pubsub != nil {
		err := h.pubsub.Subscribe(viewCtx, domain.RoomChannel(roomID), func(event domain.RoomEvent) {
			if event.Message == nil {
				return
			}
			s.send(domain.WSResponse{
				Action:  string(domain.NotifyMessage),
				Success: true,
				Payload: map[string]interface{}{"room_id": event.RoomID, "message": event.Message},
			})
		})
		if err != nil {
			cancel()
			return nil, nil, err
		}
	}

	stop := h.sweeper.Watch(viewCtx, room, func(removed []string) {
		s.send(domain.WSResponse{
			Action:  string(domain.MessagesExpired),
			Success: true,
			Payload: map[string]interface{}{"room_id": roomID, "removed": removed},
		})
	})
	s.setView(roomID, func() {
		stop()
		cancel()
	})

	msgs, err := h.messageUC.Snapshot(s.ctx, roomID)
	if err != nil {
		s.release(roomID)
		return nil, nil, err
	}
	return room, msgs, nil
}
