package app

import (
	"context"
	"sync"
	"testing"
	"time"

	accountapp "community_chat_service/internal/account/app"
	"community_chat_service/internal/chat/domain"
	"community_chat_service/internal/chat/repository"
	"community_chat_service/pkg/logger"

	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetNewNop()
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	clock *fakeClock
	rooms repository.RoomRepository
	msgs  repository.MessageRepository
	usage repository.UsageRepository
	pub   *repository.LocalPubSub

	gate      *QuotaGate
	messageUC *MessageUseCase
	roomUC    *RoomUseCase
	bookingUC *BookingUseCase
	sweeper   *ExpirySweeper
}

type fixtureOpts struct {
	accounts accountapp.AccountLookup
	upsell   UpsellPublisher
	limit    int64
	msgs     repository.MessageRepository
	rooms    repository.RoomRepository
}

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, o fixtureOpts) *fixture {
	t.Helper()
	f := &fixture{
		clock: &fakeClock{t: t0},
		rooms: o.rooms,
		msgs:  o.msgs,
		usage: repository.NewMemoryUsageRepository(),
		pub:   repository.NewLocalPubSub(),
	}
	if f.rooms == nil {
		f.rooms = repository.NewMemoryRoomRepository()
	}
	if f.msgs == nil {
		f.msgs = repository.NewMemoryMessageRepository()
	}
	f.gate = NewQuotaGate(f.usage, o.accounts, o.upsell, o.limit, domain.CalendarMonth)
	f.gate.now = f.clock.Now
	f.messageUC = NewMessageUseCase(f.rooms, f.msgs, f.pub, f.gate, 24*time.Hour, WithClock(f.clock.Now))
	f.bookingUC = NewBookingUseCase(f.messageUC, f.msgs)
	f.roomUC = NewRoomUseCase(f.rooms, f.messageUC, f.bookingUC)
	f.sweeper = NewExpirySweeper(f.msgs, 10*time.Millisecond)
	f.sweeper.now = f.clock.Now
	return f
}

// seedRoom store a room directly
func (f *fixture) seedRoom(t *testing.T, id, owner string, kind domain.RoomKind, state domain.RoomState) *domain.ChatRoom {
	t.Helper()
	room := &domain.ChatRoom{
		ID: id, OwnerID: owner, Kind: kind, State: state,
		ParticipantRef: "peer-" + id, CreatedAt: f.clock.Now(), UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, f.rooms.CreateRoom(context.Background(), room))
	return room
}

func (f *fixture) visible(t *testing.T, roomID string) []domain.ChatMessage {
	t.Helper()
	msgs, err := f.messageUC.Snapshot(context.Background(), roomID)
	require.NoError(t, err)
	return msgs
}
