package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"community_chat_service/internal/chat/domain"
	"community_chat_service/internal/chat/repository"
	"community_chat_service/pkg/logger"
	"community_chat_service/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EchoReply body of the canned counterpart reply when echo is enabled
const EchoReply = "Thanks for your message! We will get back to you shortly."

// MessageUseCase 訊息寫入、讀取與送出
type MessageUseCase struct {
	roomRepo repository.RoomRepository
	msgRepo  repository.MessageRepository
	pub      repository.Publisher
	gate     *QuotaGate
	locks    *roomLocks

	ttl       time.Duration
	echoDelay time.Duration
	now       func() time.Time
}

// MessageOption optional MessageUseCase setting
type MessageOption func(*MessageUseCase)

// WithClock replace time.Now
func WithClock(now func() time.Time) MessageOption {
	return func(uc *MessageUseCase) { uc.now = now }
}

// WithEcho deliver EchoReply as the counterpart delay after every successful send
func WithEcho(delay time.Duration) MessageOption {
	return func(uc *MessageUseCase) { uc.echoDelay = delay }
}

// NewMessageUseCase ttl is the lifetime of messages created in active direct-message rooms
func NewMessageUseCase(
	roomRepo repository.RoomRepository,
	msgRepo repository.MessageRepository,
	pub repository.Publisher,
	gate *QuotaGate,
	ttl time.Duration,
	opts ...MessageOption,
) *MessageUseCase {
	uc := &MessageUseCase{
		roomRepo: roomRepo,
		msgRepo:  msgRepo,
		pub:      pub,
		gate:     gate,
		locks:    newRoomLocks(),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Append store msg in roomID and refresh the room summary
func (uc *MessageUseCase) Append(ctx context.Context, roomID string, msg domain.ChatMessage) (*domain.ChatMessage, error) {
	unlock := uc.locks.lock(roomID)
	defer unlock()

	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return uc.appendLocked(ctx, room, msg)
}

// appendLocked caller holds the room lock; room is written back with its new summary.
// When that write fails the stored message is removed again and the summary fields are restored.
func (uc *MessageUseCase) appendLocked(ctx context.Context, room *domain.ChatRoom, msg domain.ChatMessage) (*domain.ChatMessage, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	now := uc.now().UTC()

	msg.ID = id.String()
	msg.RoomID = room.ID
	msg.CreatedAt = now
	msg.ExpiresAt = nil
	if msg.Type == "" {
		msg.Type = domain.MessageText
	}
	if room.IsEphemeral() {
		exp := now.Add(uc.ttl)
		msg.ExpiresAt = &exp
	}

	if err := uc.msgRepo.AppendMessage(ctx, &msg); err != nil {
		return nil, err
	}

	prev := *room
	room.ApplyMessage(&msg)
	if err := uc.roomRepo.UpdateRoom(ctx, room); err != nil {
		// 摘要沒寫入就撤回訊息，log 與 room 保持一致
		*room = prev
		if derr := uc.msgRepo.DeleteMessage(context.WithoutCancel(ctx), room.ID, msg.ID); derr != nil {
			logger.Log.Error("rollback appended message",
				zap.String("room_id", room.ID), zap.String("message_id", msg.ID), zap.Error(derr))
		}
		return nil, fmt.Errorf("update room summary: %w", err)
	}

	metrics.MessagesAppended.WithLabelValues(string(room.Kind), string(msg.Type)).Inc()
	uc.publish(ctx, domain.RoomEvent{Action: domain.NotifyMessage, RoomID: room.ID, Message: &msg})
	return &msg, nil
}

func (uc *MessageUseCase) publish(ctx context.Context, event domain.RoomEvent) {
	if uc.pub == nil {
		return
	}
	if err := uc.pub.Publish(ctx, domain.RoomChannel(event.RoomID), event); err != nil {
		logger.Log.Warn("publish room event", zap.String("room_id", event.RoomID), zap.Error(err))
	}
}

// Snapshot visible messages of roomID in Seq order
func (uc *MessageUseCase) Snapshot(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	if _, err := uc.roomRepo.FindByID(ctx, roomID); err != nil {
		return nil, err
	}
	return uc.msgRepo.FindMessages(ctx, roomID, uc.now().UTC())
}

// TrySend the actor's own outbound message, gated by room state and quota
func (uc *MessageUseCase) TrySend(ctx context.Context, actor Actor, roomID, draft string) (*domain.ChatMessage, error) {
	body := strings.TrimSpace(draft)
	if body == "" {
		metrics.SendsBlocked.WithLabelValues("empty_draft").Inc()
		return nil, domain.ErrEmptyDraft
	}

	msg, err := uc.sendLocked(ctx, actor, roomID, body)
	if err != nil {
		return nil, err
	}

	if uc.echoDelay > 0 {
		uc.scheduleEcho(roomID)
	}
	return msg, nil
}

func (uc *MessageUseCase) sendLocked(ctx context.Context, actor Actor, roomID, body string) (*domain.ChatMessage, error) {
	unlock := uc.locks.lock(roomID)
	defer unlock()

	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.OwnerID != actor.ID {
		return nil, fmt.Errorf("room %s: %w", roomID, domain.ErrNotFound)
	}
	if err := room.CanSend(); err != nil {
		metrics.SendsBlocked.WithLabelValues("not_active").Inc()
		return nil, err
	}

	release := func() {}
	if uc.gate != nil {
		release, err = uc.gate.Reserve(ctx, actor, roomID)
		if err != nil {
			return nil, err
		}
	}

	msg, err := uc.appendLocked(ctx, room, domain.ChatMessage{
		Sender: domain.SenderSelf,
		Type:   domain.MessageText,
		Body:   body,
	})
	if err != nil {
		// 沒送出就不計次
		release()
		return nil, err
	}
	return msg, nil
}

// Deliver inbound counterpart message, never metered
func (uc *MessageUseCase) Deliver(ctx context.Context, roomID, body string) (*domain.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.ErrEmptyDraft
	}

	unlock := uc.locks.lock(roomID)
	defer unlock()

	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	// pending 時對方仍可補充訊息
	if room.State == domain.RoomRejected {
		return nil, fmt.Errorf("room %s is rejected: %w", roomID, domain.ErrNotActive)
	}
	return uc.appendLocked(ctx, room, domain.ChatMessage{
		Sender: domain.SenderCounterpart,
		Type:   domain.MessageText,
		Body:   body,
	})
}

func (uc *MessageUseCase) scheduleEcho(roomID string) {
	time.AfterFunc(uc.echoDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := uc.Deliver(ctx, roomID, EchoReply); err != nil && !errors.Is(err, domain.ErrNotActive) {
			logger.Log.Warn("echo reply", zap.String("room_id", roomID), zap.Error(err))
		}
	})
}
