package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"community_chat_service/internal/chat/domain"
)

type memoryRoomRepository struct {
	mu    sync.RWMutex
	rooms map[string]domain.ChatRoom
}

// NewMemoryRoomRepository in-process RoomRepository, used by storage=memory and tests
func NewMemoryRoomRepository() RoomRepository {
	return &memoryRoomRepository{rooms: make(map[string]domain.ChatRoom)}
}

func (r *memoryRoomRepository) CreateRoom(_ context.Context, room *domain.ChatRoom) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[room.ID]; ok {
		return fmt.Errorf("room %s: %w", room.ID, domain.ErrAlreadyExists)
	}
	r.rooms[room.ID] = *room
	return nil
}

func (r *memoryRoomRepository) FindByID(_ context.Context, roomID string) (*domain.ChatRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, domain.ErrNotFound)
	}
	return &room, nil
}

func (r *memoryRoomRepository) ListRooms(_ context.Context, ownerID string, kind domain.RoomKind) ([]*domain.ChatRoom, error) {
	r.mu.RLock()
	rooms := make([]*domain.ChatRoom, 0, len(r.rooms))
	for _, room := range r.rooms {
		if room.OwnerID != ownerID || (kind != "" && room.Kind != kind) {
			continue
		}
		room := room
		rooms = append(rooms, &room)
	}
	r.mu.RUnlock()

	sort.SliceStable(rooms, func(i, j int) bool {
		if !rooms[i].LastMessageAt.Equal(rooms[j].LastMessageAt) {
			return rooms[i].LastMessageAt.After(rooms[j].LastMessageAt)
		}
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
		}
		return rooms[i].ID < rooms[j].ID
	})
	return rooms, nil
}

func (r *memoryRoomRepository) UpdateRoom(_ context.Context, room *domain.ChatRoom) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[room.ID]; !ok {
		return fmt.Errorf("room %s: %w", room.ID, domain.ErrNotFound)
	}
	r.rooms[room.ID] = *room
	return nil
}

type roomLog struct {
	seq      int64
	messages []domain.ChatMessage
}

type memoryMessageRepository struct {
	mu   sync.RWMutex
	logs map[string]*roomLog
}

// NewMemoryMessageRepository in-process MessageRepository, expired messages are filtered on read
func NewMemoryMessageRepository() MessageRepository {
	return &memoryMessageRepository{logs: make(map[string]*roomLog)}
}

func (r *memoryMessageRepository) AppendMessage(_ context.Context, msg *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log, ok := r.logs[msg.RoomID]
	if !ok {
		log = &roomLog{}
		r.logs[msg.RoomID] = log
	}

	if msg.Type == domain.MessageBookingNotice && msg.Booking != nil {
		for i := range log.messages {
			m := &log.messages[i]
			if m.Type == domain.MessageBookingNotice && m.Booking != nil &&
				m.Booking.SameSlot(*msg.Booking) && !m.Expired(msg.CreatedAt) {
				return fmt.Errorf("booking %s %s: %w", msg.Booking.Date, msg.Booking.Time, domain.ErrDuplicateBooking)
			}
		}
	}

	log.seq++
	msg.Seq = log.seq
	log.messages = append(log.messages, *msg)
	return nil
}

func (r *memoryMessageRepository) FindMessages(_ context.Context, roomID string, now time.Time) ([]domain.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	log, ok := r.logs[roomID]
	if !ok {
		return []domain.ChatMessage{}, nil
	}
	// append 順序即 seq 順序
	return domain.FilterExpired(log.messages, now), nil
}

func (r *memoryMessageRepository) FindBooking(_ context.Context, roomID string, slot domain.BookingPayload, now time.Time) (*domain.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if log, ok := r.logs[roomID]; ok {
		for _, m := range log.messages {
			if m.Type == domain.MessageBookingNotice && m.Booking != nil && m.Booking.SameSlot(slot) && !m.Expired(now) {
				return &m, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryMessageRepository) DeleteExpired(_ context.Context, roomID string, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log, ok := r.logs[roomID]
	if !ok {
		return nil, nil
	}

	var removed []string
	kept := log.messages[:0]
	for _, m := range log.messages {
		if m.Expired(now) {
			removed = append(removed, m.ID)
			continue
		}
		kept = append(kept, m)
	}
	log.messages = kept
	return removed, nil
}

func (r *memoryMessageRepository) DeleteMessage(_ context.Context, roomID, msgID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	log, ok := r.logs[roomID]
	if !ok {
		return nil
	}
	for i := range log.messages {
		if log.messages[i].ID == msgID {
			log.messages = append(log.messages[:i], log.messages[i+1:]...)
			return nil
		}
	}
	return nil
}
