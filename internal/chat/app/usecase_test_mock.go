package app

import (
	"context"
	"time"

	accountdomain "community_chat_service/internal/account/domain"
	"community_chat_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
)

// MockRoomRepository Mock RoomRepository
type MockRoomRepository struct {
	mock.Mock
}

// CreateRoom moke create room
func (m *MockRoomRepository) CreateRoom(ctx context.Context, room *domain.ChatRoom) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

// FindByID moke find room by room id
func (m *MockRoomRepository) FindByID(ctx context.Context, roomID string) (*domain.ChatRoom, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.ChatRoom), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListRooms moke list rooms
func (m *MockRoomRepository) ListRooms(ctx context.Context, ownerID string, kind domain.RoomKind) ([]*domain.ChatRoom, error) {
	args := m.Called(ctx, ownerID, kind)
	if args.Get(0) != nil {
		return args.Get(0).([]*domain.ChatRoom), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateRoom moke update room
func (m *MockRoomRepository) UpdateRoom(ctx context.Context, room *domain.ChatRoom) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// AppendMessage moke append
func (m *MockMessageRepository) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindMessages moke snapshot
func (m *MockMessageRepository) FindMessages(ctx context.Context, roomID string, now time.Time) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, roomID, now)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindBooking moke booking lookup
func (m *MockMessageRepository) FindBooking(ctx context.Context, roomID string, slot domain.BookingPayload, now time.Time) (*domain.ChatMessage, error) {
	args := m.Called(ctx, roomID, slot, now)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// DeleteExpired moke sweep
func (m *MockMessageRepository) DeleteExpired(ctx context.Context, roomID string, now time.Time) ([]string, error) {
	args := m.Called(ctx, roomID, now)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// DeleteMessage moke rollback
func (m *MockMessageRepository) DeleteMessage(ctx context.Context, roomID, msgID string) error {
	args := m.Called(ctx, roomID, msgID)
	return args.Error(0)
}

// MockAccountLookup Mock AccountLookup
type MockAccountLookup struct {
	mock.Mock
}

// GetAccount moke account lookup
func (m *MockAccountLookup) GetAccount(ctx context.Context, accountID string) (*accountdomain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) != nil {
		return args.Get(0).(*accountdomain.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockUpsellPublisher Mock UpsellPublisher
type MockUpsellPublisher struct {
	mock.Mock
}

// PublishUpsell moke publish
func (m *MockUpsellPublisher) PublishUpsell(ctx context.Context, event UpsellEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockMessageReader Mock kafka MessageReader
type MockMessageReader struct {
	mock.Mock
}

// FetchMessage moke fetch
func (m *MockMessageReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).(kafka.Message), args.Error(1)
}

// CommitMessages moke commit
func (m *MockMessageReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

// Close moke close
func (m *MockMessageReader) Close() error {
	args := m.Called()
	return args.Error(0)
}
