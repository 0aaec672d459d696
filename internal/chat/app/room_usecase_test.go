package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"community_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestOpen_SynthesizesFromHints(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()

	tests := []struct {
		name  string
		hints domain.OpenHints
		want  domain.RoomState
		kind  domain.RoomKind
	}{
		{"inbound direct message request", domain.OpenHints{CounterpartID: "u2", IsNewRequest: true}, domain.RoomPending, domain.RoomKindDirectMessage},
		{"outbound direct message", domain.OpenHints{CounterpartID: "u3"}, domain.RoomActive, domain.RoomKindDirectMessage},
		{"business inquiry", domain.OpenHints{Kind: domain.RoomKindBusinessInquiry, CounterpartID: "shop", IsNewRequest: true}, domain.RoomActive, domain.RoomKindBusinessInquiry},
		{"marketplace", domain.OpenHints{Kind: domain.RoomKindMarketplace, CounterpartID: "seller"}, domain.RoomActive, domain.RoomKindMarketplace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hints := tt.hints
			room, err := f.roomUC.Open(ctx, "u1", "room-"+tt.name, &hints)
			require.NoError(t, err)
			assert.Equal(t, tt.want, room.State)
			assert.Equal(t, tt.kind, room.Kind)
			assert.Equal(t, hints.CounterpartID, room.ParticipantRef)
		})
	}
}

func TestOpen_ExistingAndMissing(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()
	f.seedRoom(t, "r1", "u1", domain.RoomKindMarketplace, domain.RoomActive)

	// 已存在時忽略 hints
	room, err := f.roomUC.Open(ctx, "u1", "r1", &domain.OpenHints{CounterpartID: "x", Kind: domain.RoomKindDirectMessage, IsNewRequest: true})
	require.NoError(t, err)
	assert.Equal(t, domain.RoomKindMarketplace, room.Kind)
	assert.Equal(t, domain.RoomActive, room.State)

	_, err = f.roomUC.Open(ctx, "u1", "unknown", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.roomUC.Open(ctx, "u1", "unknown", &domain.OpenHints{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// 別人的 room
	_, err = f.roomUC.Open(ctx, "intruder", "r1", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.roomUC.Open(ctx, "u1", "bad", &domain.OpenHints{CounterpartID: "x", Kind: "group"})
	assert.ErrorIs(t, err, domain.ErrInvalidKind)
}

func TestOpen_ConcurrentSameID(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*domain.ChatRoom, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room, err := f.roomUC.Open(ctx, "u1", "dm-1", &domain.OpenHints{CounterpartID: "u2", IsNewRequest: true})
			assert.NoError(t, err)
			results[i] = room
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "dm-1", r.ID)
		assert.Equal(t, domain.RoomPending, r.State)
	}
	rooms, err := f.roomUC.List(ctx, "u1", "all")
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}

func TestOpen_CreateRaceResolvesToStored(t *testing.T) {
	repo := new(MockRoomRepository)
	messages := NewMessageUseCase(repo, nil, nil, nil, time.Hour)
	uc := NewRoomUseCase(repo, messages, nil)
	ctx := context.Background()

	stored := &domain.ChatRoom{ID: "r1", OwnerID: "u1", Kind: domain.RoomKindDirectMessage, State: domain.RoomActive}
	repo.On("FindByID", ctx, "r1").Return(nil, domain.ErrNotFound).Once()
	repo.On("CreateRoom", ctx, mock.AnythingOfType("*domain.ChatRoom")).Return(domain.ErrAlreadyExists)
	repo.On("FindByID", ctx, "r1").Return(stored, nil).Once()

	room, err := uc.Open(ctx, "u1", "r1", &domain.OpenHints{CounterpartID: "u2", IsNewRequest: true})
	require.NoError(t, err)
	assert.Equal(t, domain.RoomActive, room.State)
	repo.AssertExpectations(t)
}

func TestAcceptThenSend(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()
	me := Actor{ID: "u1", Role: "consumer"}

	_, err := f.roomUC.Open(ctx, "u1", "dm", &domain.OpenHints{CounterpartID: "u2", IsNewRequest: true})
	require.NoError(t, err)

	_, err = f.messageUC.TrySend(ctx, me, "dm", "hello?")
	assert.ErrorIs(t, err, domain.ErrNotActive)
	assert.Empty(t, f.visible(t, "dm"))

	room, err := f.roomUC.Accept(ctx, "u1", "dm")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomActive, room.State)

	msgs := f.visible(t, "dm")
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.MessageSystemNotice, msgs[0].Type)
	assert.Equal(t, AcceptNotice, msgs[0].Body)
	assert.NotNil(t, msgs[0].ExpiresAt, "notice is created after the room became active")

	msg, err := f.messageUC.TrySend(ctx, me, "dm", "  hi there  ")
	require.NoError(t, err)
	assert.Equal(t, "hi there", msg.Body)
	assert.Equal(t, domain.SenderSelf, msg.Sender)

	msgs = f.visible(t, "dm")
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(1), msgs[0].Seq)
	assert.Equal(t, int64(2), msgs[1].Seq)

	// 不是 pending 就不能再 accept
	_, err = f.roomUC.Accept(ctx, "u1", "dm")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.roomUC.Reject(ctx, "u1", "dm")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Len(t, f.visible(t, "dm"), 2)
}

func TestRejectIsTerminal(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()
	f.seedRoom(t, "dm", "u1", domain.RoomKindDirectMessage, domain.RoomPending)

	room, err := f.roomUC.Reject(ctx, "u1", "dm")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomRejected, room.State)
	assert.Empty(t, f.visible(t, "dm"), "reject appends nothing")

	_, err = f.roomUC.Accept(ctx, "u1", "dm")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.messageUC.TrySend(ctx, Actor{ID: "u1"}, "dm", "hi")
	assert.ErrorIs(t, err, domain.ErrNotActive)

	_, err = f.messageUC.Deliver(ctx, "dm", "hi")
	assert.ErrorIs(t, err, domain.ErrNotActive)

	stored, err := f.roomUC.Get(ctx, "u1", "dm")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomRejected, stored.State)
}

func TestTransitionsOnUnknownRoom(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()

	_, err := f.roomUC.Accept(ctx, "u1", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.roomUC.Reject(ctx, "u1", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.roomUC.MarkRead(ctx, "u1", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListOrderAndUnread(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()
	f.seedRoom(t, "a", "u1", domain.RoomKindMarketplace, domain.RoomActive)
	f.clock.Advance(time.Minute)
	f.seedRoom(t, "b", "u1", domain.RoomKindBusinessInquiry, domain.RoomActive)
	f.clock.Advance(time.Minute)
	f.seedRoom(t, "c", "u1", domain.RoomKindDirectMessage, domain.RoomActive)

	f.clock.Advance(time.Minute)
	_, err := f.messageUC.Deliver(ctx, "a", "is it still available?")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.messageUC.Deliver(ctx, "a", "hello?")
	require.NoError(t, err)

	rooms, err := f.roomUC.List(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, "a", rooms[0].ID)
	assert.Equal(t, 2, rooms[0].UnreadCount)
	assert.Equal(t, "hello?", rooms[0].LastMessagePreview)
	// 沒有訊息的依建立時間
	assert.Equal(t, "c", rooms[1].ID)
	assert.Equal(t, "b", rooms[2].ID)

	market, err := f.roomUC.List(ctx, "u1", string(domain.RoomKindMarketplace))
	require.NoError(t, err)
	assert.Len(t, market, 1)

	_, err = f.roomUC.List(ctx, "u1", "groups")
	assert.ErrorIs(t, err, domain.ErrInvalidKind)

	room, err := f.roomUC.MarkRead(ctx, "u1", "a")
	require.NoError(t, err)
	assert.Equal(t, 0, room.UnreadCount)
}
