package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	accountdomain "community_chat_service/internal/account/domain"
	"community_chat_service/internal/chat/domain"
	"community_chat_service/internal/chat/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEphemeralExpiry(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()
	f.seedRoom(t, "dm", "u1", domain.RoomKindDirectMessage, domain.RoomActive)
	f.seedRoom(t, "shop", "u1", domain.RoomKindBusinessInquiry, domain.RoomActive)

	msg, err := f.messageUC.TrySend(ctx, Actor{ID: "u1"}, "dm", "see you")
	require.NoError(t, err)
	require.NotNil(t, msg.ExpiresAt)
	assert.Equal(t, t0.Add(24*time.Hour), *msg.ExpiresAt)

	kept, err := f.messageUC.TrySend(ctx, Actor{ID: "u1"}, "shop", "price?")
	require.NoError(t, err)
	assert.Nil(t, kept.ExpiresAt)

	f.clock.Advance(24*time.Hour - time.Nanosecond)
	assert.Len(t, f.visible(t, "dm"), 1)

	// 剛好到期就看不到
	f.clock.Advance(time.Nanosecond)
	assert.Empty(t, f.visible(t, "dm"))
	assert.Len(t, f.visible(t, "shop"), 1)
}

func TestPendingMessagesNeverExpire(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.seedRoom(t, "dm", "u1", domain.RoomKindDirectMessage, domain.RoomPending)

	msg, err := f.messageUC.Deliver(context.Background(), "dm", "can we chat?")
	require.NoError(t, err)
	assert.Nil(t, msg.ExpiresAt)
	assert.Equal(t, 1, mustRoom(t, f, "dm").UnreadCount)
}

func mustRoom(t *testing.T, f *fixture, id string) *domain.ChatRoom {
	t.Helper()
	room, err := f.rooms.FindByID(context.Background(), id)
	require.NoError(t, err)
	return room
}

func TestTrySend_EmptyDraftAndUnknownRoom(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()
	f.seedRoom(t, "r", "u1", domain.RoomKindMarketplace, domain.RoomActive)

	_, err := f.messageUC.TrySend(ctx, Actor{ID: "u1"}, "r", " \n\t ")
	assert.ErrorIs(t, err, domain.ErrEmptyDraft)
	assert.Empty(t, f.visible(t, "r"))
	assert.Equal(t, "", mustRoom(t, f, "r").LastMessagePreview)

	_, err = f.messageUC.TrySend(ctx, Actor{ID: "u1"}, "missing", "hi")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.messageUC.TrySend(ctx, Actor{ID: "someone-else"}, "r", "hi")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuota_MeteredBusinessStopsAtLimit(t *testing.T) {
	accounts := new(MockAccountLookup)
	upsell := new(MockUpsellPublisher)
	f := newFixture(t, fixtureOpts{accounts: accounts, upsell: upsell, limit: domain.DefaultQuotaLimit})
	ctx := context.Background()
	biz := Actor{ID: "biz", Role: accountdomain.RoleBusiness}
	f.seedRoom(t, "r", "biz", domain.RoomKindBusinessInquiry, domain.RoomActive)

	accounts.On("GetAccount", mock.Anything, "biz").
		Return(&accountdomain.Account{ID: "biz", Role: accountdomain.RoleBusiness, Subscription: accountdomain.NoSubscription()}, nil)
	upsell.On("PublishUpsell", mock.Anything, mock.MatchedBy(func(e UpsellEvent) bool {
		return e.ActorID == "biz" && e.RoomID == "r" && e.SentCount == 100 && e.Limit == 100 && e.PeriodKey == "2024-03"
	})).Return(nil).Once()

	for i := 0; i < 100; i++ {
		_, err := f.messageUC.TrySend(ctx, biz, "r", "offer")
		require.NoError(t, err, "send %d", i+1)
	}

	_, err := f.messageUC.TrySend(ctx, biz, "r", "one more")
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Len(t, f.visible(t, "r"), 100)

	usage, err := f.gate.Usage(ctx, biz)
	require.NoError(t, err)
	assert.True(t, usage.Metered)
	assert.Equal(t, int64(100), usage.SentCount)
	assert.Equal(t, int64(0), usage.Remaining)
	upsell.AssertExpectations(t)

	// 下個月重新計算
	f.clock.Advance(31 * 24 * time.Hour)
	_, err = f.messageUC.TrySend(ctx, biz, "r", "new month")
	assert.NoError(t, err)
}

func TestQuota_NotMetered(t *testing.T) {
	now := t0
	tests := []struct {
		name  string
		actor Actor
		acc   *accountdomain.Account
	}{
		{"consumer", Actor{ID: "c", Role: accountdomain.RoleConsumer},
			&accountdomain.Account{ID: "c", Role: accountdomain.RoleConsumer, Subscription: accountdomain.NoSubscription()}},
		{"admin", Actor{ID: "a", Role: accountdomain.RoleAdmin},
			&accountdomain.Account{ID: "a", Role: accountdomain.RoleAdmin, Subscription: accountdomain.NoSubscription()}},
		{"business active", Actor{ID: "b", Role: accountdomain.RoleBusiness},
			&accountdomain.Account{ID: "b", Role: accountdomain.RoleBusiness, Subscription: accountdomain.ActiveSubscription()}},
		{"business in trial", Actor{ID: "b", Role: accountdomain.RoleBusiness},
			&accountdomain.Account{ID: "b", Role: accountdomain.RoleBusiness, Subscription: accountdomain.Trial(now.Add(time.Hour))}},
		{"consumer without account row", Actor{ID: "c", Role: accountdomain.RoleConsumer}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := new(MockAccountLookup)
			if tt.acc != nil {
				accounts.On("GetAccount", mock.Anything, tt.actor.ID).Return(tt.acc, nil)
			} else {
				accounts.On("GetAccount", mock.Anything, tt.actor.ID).Return(nil, accountdomain.ErrAccountNotFound)
			}
			f := newFixture(t, fixtureOpts{accounts: accounts, limit: 2})
			f.seedRoom(t, "r", tt.actor.ID, domain.RoomKindBusinessInquiry, domain.RoomActive)

			for i := 0; i < 5; i++ {
				_, err := f.messageUC.TrySend(context.Background(), tt.actor, "r", "hi")
				require.NoError(t, err)
			}
			c, _ := f.usage.Get(context.Background(), tt.actor.ID, "2024-03")
			assert.Equal(t, int64(0), c.SentCount)
		})
	}
}

func TestQuota_StoredAccountOverridesRoleClaim(t *testing.T) {
	accounts := new(MockAccountLookup)
	accounts.On("GetAccount", mock.Anything, "biz").
		Return(&accountdomain.Account{ID: "biz", Role: accountdomain.RoleBusiness, Subscription: accountdomain.NoSubscription()}, nil)
	f := newFixture(t, fixtureOpts{accounts: accounts, limit: 2})
	f.seedRoom(t, "r", "biz", domain.RoomKindBusinessInquiry, domain.RoomActive)
	ctx := context.Background()

	// token 宣稱 consumer，帳號實際是未訂閱商家
	claimed := Actor{ID: "biz", Role: accountdomain.RoleConsumer}
	accepted := 0
	for i := 0; i < 5; i++ {
		_, err := f.messageUC.TrySend(ctx, claimed, "r", "offer")
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	}
	assert.Equal(t, 2, accepted)

	usage, err := f.gate.Usage(ctx, claimed)
	require.NoError(t, err)
	assert.True(t, usage.Metered)
	assert.Equal(t, int64(2), usage.SentCount)
}

func TestQuota_MeteredWhenSubscriptionMissingOrFailing(t *testing.T) {
	tests := []struct {
		name string
		acc  *accountdomain.Account
		err  error
	}{
		{"trial over", &accountdomain.Account{ID: "b", Role: accountdomain.RoleBusiness, Subscription: accountdomain.Trial(t0)}, nil},
		{"expired", &accountdomain.Account{ID: "b", Role: accountdomain.RoleBusiness, Subscription: accountdomain.ExpiredSubscription()}, nil},
		{"no account row", nil, accountdomain.ErrAccountNotFound},
		{"lookup down", nil, errors.New("connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := new(MockAccountLookup)
			accounts.On("GetAccount", mock.Anything, "b").Return(tt.acc, tt.err)
			f := newFixture(t, fixtureOpts{accounts: accounts, limit: 1})
			f.seedRoom(t, "r", "b", domain.RoomKindBusinessInquiry, domain.RoomActive)
			biz := Actor{ID: "b", Role: accountdomain.RoleBusiness}

			_, err := f.messageUC.TrySend(context.Background(), biz, "r", "first")
			require.NoError(t, err)
			_, err = f.messageUC.TrySend(context.Background(), biz, "r", "second")
			assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
		})
	}
}

func TestQuota_ReleasedWhenAppendFails(t *testing.T) {
	msgs := new(MockMessageRepository)
	f := newFixture(t, fixtureOpts{msgs: msgs, limit: 1})
	ctx := context.Background()
	biz := Actor{ID: "biz", Role: accountdomain.RoleBusiness}
	f.seedRoom(t, "r", "biz", domain.RoomKindBusinessInquiry, domain.RoomActive)

	msgs.On("AppendMessage", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	msgs.On("AppendMessage", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.messageUC.TrySend(ctx, biz, "r", "lost")
	require.Error(t, err)
	c, _ := f.usage.Get(ctx, "biz", "2024-03")
	assert.Equal(t, int64(0), c.SentCount)
	assert.Equal(t, "", mustRoom(t, f, "r").LastMessagePreview)

	// 額度仍可使用
	_, err = f.messageUC.TrySend(ctx, biz, "r", "delivered")
	require.NoError(t, err)
	c, _ = f.usage.Get(ctx, "biz", "2024-03")
	assert.Equal(t, int64(1), c.SentCount)
	msgs.AssertExpectations(t)
}

func TestQuota_ConcurrentSendsNeverExceedLimit(t *testing.T) {
	f := newFixture(t, fixtureOpts{limit: 5})
	ctx := context.Background()
	biz := Actor{ID: "biz", Role: accountdomain.RoleBusiness}
	for _, id := range []string{"r1", "r2", "r3", "r4"} {
		f.seedRoom(t, id, "biz", domain.RoomKindBusinessInquiry, domain.RoomActive)
	}

	var sent, exceeded int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			roomID := []string{"r1", "r2", "r3", "r4"}[i%4]
			_, err := f.messageUC.TrySend(ctx, biz, roomID, "hi")
			if err == nil {
				atomic.AddInt32(&sent, 1)
			} else if errors.Is(err, domain.ErrQuotaExceeded) {
				atomic.AddInt32(&exceeded, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(5), sent)
	assert.Equal(t, int32(15), exceeded)
	total := 0
	for _, id := range []string{"r1", "r2", "r3", "r4"} {
		total += len(f.visible(t, id))
	}
	assert.Equal(t, 5, total)
}

func TestDeliverIsNotMetered(t *testing.T) {
	f := newFixture(t, fixtureOpts{limit: 1})
	ctx := context.Background()
	f.seedRoom(t, "r", "biz", domain.RoomKindBusinessInquiry, domain.RoomActive)

	for i := 0; i < 3; i++ {
		_, err := f.messageUC.Deliver(ctx, "r", "question")
		require.NoError(t, err)
	}
	_, err := f.messageUC.TrySend(ctx, Actor{ID: "biz", Role: accountdomain.RoleBusiness}, "r", "answer")
	assert.NoError(t, err)

	_, err = f.messageUC.Deliver(ctx, "r", "")
	assert.ErrorIs(t, err, domain.ErrEmptyDraft)
}

func TestEchoReply(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.messageUC.echoDelay = 10 * time.Millisecond
	f.seedRoom(t, "r", "u1", domain.RoomKindMarketplace, domain.RoomActive)

	_, err := f.messageUC.TrySend(context.Background(), Actor{ID: "u1"}, "r", "hello")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		msgs := f.visible(t, "r")
		return len(msgs) == 2 && msgs[1].Sender == domain.SenderCounterpart && msgs[1].Body == EchoReply
	}, time.Second, 10*time.Millisecond)
}

func TestAppendPublishesRoomEvent(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.seedRoom(t, "r", "u1", domain.RoomKindMarketplace, domain.RoomActive)

	got := make(chan domain.RoomEvent, 1)
	require.NoError(t, f.pub.Subscribe(ctx, domain.RoomChannel("r"), func(e domain.RoomEvent) { got <- e }))

	msg, err := f.messageUC.Deliver(ctx, "r", "ping")
	require.NoError(t, err)

	select {
	case e := <-got:
		assert.Equal(t, domain.NotifyMessage, e.Action)
		assert.Equal(t, msg.ID, e.Message.ID)
	case <-time.After(time.Second):
		t.Fatal("no room event")
	}
}

// failingRooms memory rooms whose UpdateRoom can be switched to fail
type failingRooms struct {
	repository.RoomRepository
	fail atomic.Bool
}

func (r *failingRooms) UpdateRoom(ctx context.Context, room *domain.ChatRoom) error {
	if r.fail.Load() {
		return errors.New("write conflict")
	}
	return r.RoomRepository.UpdateRoom(ctx, room)
}

func TestAccept_SummaryWriteFailureLeavesNoNotice(t *testing.T) {
	rooms := &failingRooms{RoomRepository: repository.NewMemoryRoomRepository()}
	f := newFixture(t, fixtureOpts{rooms: rooms})
	ctx := context.Background()
	f.seedRoom(t, "dm", "u1", domain.RoomKindDirectMessage, domain.RoomPending)

	rooms.fail.Store(true)
	_, err := f.roomUC.Accept(ctx, "u1", "dm")
	require.Error(t, err)
	assert.Equal(t, domain.RoomPending, mustRoom(t, f, "dm").State)
	assert.Empty(t, f.visible(t, "dm"))

	rooms.fail.Store(false)
	room, err := f.roomUC.Accept(ctx, "u1", "dm")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomActive, room.State)

	msgs := f.visible(t, "dm")
	require.Len(t, msgs, 1)
	assert.Equal(t, AcceptNotice, msgs[0].Body)
	assert.Equal(t, domain.MessageSystemNotice, msgs[0].Type)
}

func TestTrySend_SummaryWriteFailureIsNotCounted(t *testing.T) {
	rooms := &failingRooms{RoomRepository: repository.NewMemoryRoomRepository()}
	f := newFixture(t, fixtureOpts{rooms: rooms, limit: 2})
	ctx := context.Background()
	biz := Actor{ID: "biz", Role: accountdomain.RoleBusiness}
	f.seedRoom(t, "r", "biz", domain.RoomKindBusinessInquiry, domain.RoomActive)

	rooms.fail.Store(true)
	_, err := f.messageUC.TrySend(ctx, biz, "r", "offer")
	require.Error(t, err)
	assert.Empty(t, f.visible(t, "r"))
	assert.Empty(t, mustRoom(t, f, "r").LastMessagePreview)

	usage, err := f.gate.Usage(ctx, biz)
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage.SentCount)

	rooms.fail.Store(false)
	_, err = f.messageUC.TrySend(ctx, biz, "r", "offer")
	require.NoError(t, err)
	assert.Len(t, f.visible(t, "r"), 1)
	assert.Equal(t, "offer", mustRoom(t, f, "r").LastMessagePreview)
}

func TestAppend_RollbackFailureStillReportsError(t *testing.T) {
	msgs := new(MockMessageRepository)
	rooms := new(MockRoomRepository)
	f := newFixture(t, fixtureOpts{msgs: msgs, rooms: rooms})
	ctx := context.Background()

	room := &domain.ChatRoom{ID: "r", OwnerID: "u1", Kind: domain.RoomKindBusinessInquiry, State: domain.RoomActive}
	rooms.On("FindByID", mock.Anything, "r").Return(room, nil)
	rooms.On("UpdateRoom", mock.Anything, mock.Anything).Return(errors.New("write conflict"))
	msgs.On("AppendMessage", mock.Anything, mock.Anything).Return(nil)
	msgs.On("DeleteMessage", mock.Anything, "r", mock.Anything).Return(errors.New("mongo down"))

	_, err := f.messageUC.Append(ctx, "r", domain.ChatMessage{Sender: domain.SenderSystem, Body: "hello"})
	require.Error(t, err)
	assert.Empty(t, room.LastMessagePreview)
	msgs.AssertCalled(t, "DeleteMessage", mock.Anything, "r", mock.Anything)
}
