package app

import (
	"context"
	"errors"
	"fmt"

	"community_chat_service/internal/chat/domain"
	"community_chat_service/internal/chat/repository"
	"community_chat_service/pkg/logger"
	"community_chat_service/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AcceptNotice body of the system notice appended when a request is accepted
const AcceptNotice = "Chat request accepted"

// RoomUseCase - 對話列表、開啟與狀態轉換
type RoomUseCase struct {
	roomRepo repository.RoomRepository
	messages *MessageUseCase
	booking  *BookingUseCase
}

// NewRoomUseCase init room use case, booking may be nil
func NewRoomUseCase(r repository.RoomRepository, messages *MessageUseCase, booking *BookingUseCase) *RoomUseCase {
	return &RoomUseCase{
		roomRepo: r,
		messages: messages,
		booking:  booking,
	}
}

// ParseKind "" and "all" mean no filter
func ParseKind(kind string) (domain.RoomKind, error) {
	if kind == "" || kind == "all" {
		return "", nil
	}
	k := domain.RoomKind(kind)
	if !k.Valid() {
		return "", fmt.Errorf("kind %q: %w", kind, domain.ErrInvalidKind)
	}
	return k, nil
}

// List rooms of ownerID, most recent activity first
func (uc *RoomUseCase) List(ctx context.Context, ownerID, kind string) ([]*domain.ChatRoom, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	return uc.roomRepo.ListRooms(ctx, ownerID, k)
}

// Get room owned by ownerID
func (uc *RoomUseCase) Get(ctx context.Context, ownerID, roomID string) (*domain.ChatRoom, error) {
	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.OwnerID != ownerID {
		return nil, fmt.Errorf("room %s: %w", roomID, domain.ErrNotFound)
	}
	return room, nil
}

// Open return the stored room or create it from hints. Without a counterpart in hints an
// unknown id is ErrNotFound. A booking carried by hints is injected after opening, rejected rooms are returned as is.
func (uc *RoomUseCase) Open(ctx context.Context, ownerID, roomID string, hints *domain.OpenHints) (*domain.ChatRoom, error) {
	room, err := uc.openOrCreate(ctx, ownerID, roomID, hints)
	if err != nil {
		return nil, err
	}

	if hints != nil && hints.Booking != nil && uc.booking != nil && room.State != domain.RoomRejected {
		if _, _, err := uc.booking.Inject(ctx, room.ID, *hints.Booking); err != nil {
			return nil, err
		}
		// summary 已更新
		return uc.roomRepo.FindByID(ctx, room.ID)
	}
	return room, nil
}

func (uc *RoomUseCase) openOrCreate(ctx context.Context, ownerID, roomID string, hints *domain.OpenHints) (*domain.ChatRoom, error) {
	if roomID != "" {
		room, err := uc.Get(ctx, ownerID, roomID)
		if err == nil || !errors.Is(err, domain.ErrNotFound) {
			return room, err
		}
	}

	if hints == nil || hints.CounterpartID == "" {
		return nil, fmt.Errorf("room %s: %w", roomID, domain.ErrNotFound)
	}

	kind := hints.Kind
	if kind == "" {
		kind = domain.RoomKindDirectMessage
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("kind %q: %w", kind, domain.ErrInvalidKind)
	}
	if roomID == "" {
		roomID = uuid.NewString()
	}

	now := uc.messages.now().UTC()
	room := &domain.ChatRoom{
		ID:               roomID,
		OwnerID:          ownerID,
		Kind:             kind,
		ParticipantRef:   hints.CounterpartID,
		ParticipantName:  hints.CounterpartName,
		ParticipantImage: hints.CounterpartImage,
		State:            domain.InitialState(kind, hints.IsNewRequest),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := uc.roomRepo.CreateRoom(ctx, room)
	if errors.Is(err, domain.ErrAlreadyExists) {
		// 同時開啟同一個 id，以已存在的為準
		return uc.Get(ctx, ownerID, roomID)
	}
	if err != nil {
		return nil, err
	}

	logger.Log.Info("room created",
		zap.String("room_id", room.ID),
		zap.String("owner_id", ownerID),
		zap.String("kind", string(kind)),
		zap.String("state", string(room.State)))
	return room, nil
}

// Accept pending -> active and announce it in the room
func (uc *RoomUseCase) Accept(ctx context.Context, ownerID, roomID string) (*domain.ChatRoom, error) {
	unlock := uc.messages.locks.lock(roomID)
	defer unlock()

	room, err := uc.Get(ctx, ownerID, roomID)
	if err != nil {
		return nil, err
	}
	if err := room.Accept(); err != nil {
		return nil, err
	}

	// notice 與新狀態一起寫回
	if _, err := uc.messages.appendLocked(ctx, room, domain.ChatMessage{
		Sender: domain.SenderSystem,
		Type:   domain.MessageSystemNotice,
		Body:   AcceptNotice,
	}); err != nil {
		return nil, err
	}

	metrics.RoomTransitions.WithLabelValues(string(domain.RoomActive)).Inc()
	return room, nil
}

// Reject pending -> rejected, terminal
func (uc *RoomUseCase) Reject(ctx context.Context, ownerID, roomID string) (*domain.ChatRoom, error) {
	unlock := uc.messages.locks.lock(roomID)
	defer unlock()

	room, err := uc.Get(ctx, ownerID, roomID)
	if err != nil {
		return nil, err
	}
	if err := room.Reject(); err != nil {
		return nil, err
	}
	room.UpdatedAt = uc.messages.now().UTC()
	if err := uc.roomRepo.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}

	metrics.RoomTransitions.WithLabelValues(string(domain.RoomRejected)).Inc()
	return room, nil
}

// MarkRead reset the unread counter
func (uc *RoomUseCase) MarkRead(ctx context.Context, ownerID, roomID string) (*domain.ChatRoom, error) {
	unlock := uc.messages.locks.lock(roomID)
	defer unlock()

	room, err := uc.Get(ctx, ownerID, roomID)
	if err != nil {
		return nil, err
	}
	if room.UnreadCount == 0 {
		return room, nil
	}
	room.UnreadCount = 0
	if err := uc.roomRepo.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}
