package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"community_chat_service/internal/chat/domain"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRabbitRepo struct {
	mock.Mock
}

func (m *mockRabbitRepo) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func TestRabbitUpsellPublisher(t *testing.T) {
	repo := new(mockRabbitRepo)
	pub := NewRabbitUpsellPublisher(repo, "chat.upsell")

	var sent amqp.Publishing
	repo.On("Publish", "", "chat.upsell", false, false, mock.AnythingOfType("amqp.Publishing")).
		Run(func(args mock.Arguments) { sent = args.Get(4).(amqp.Publishing) }).
		Return(nil).Once()

	event := UpsellEvent{ActorID: "biz-1", RoomID: "mk-1", PeriodKey: "2024-03", SentCount: 100, Limit: 100, OccurredAt: t0}
	require.NoError(t, pub.PublishUpsell(context.Background(), event))

	assert.Equal(t, uint8(amqp.Persistent), sent.DeliveryMode)
	assert.Equal(t, "application/json", sent.ContentType)

	var decoded UpsellEvent
	require.NoError(t, json.Unmarshal(sent.Body, &decoded))
	assert.Equal(t, "biz-1", decoded.ActorID)
	assert.Equal(t, "2024-03", decoded.PeriodKey)
	repo.AssertExpectations(t)
}

func TestRabbitUpsellPublisher_ErrorDoesNotBlockSend(t *testing.T) {
	repo := new(mockRabbitRepo)
	repo.On("Publish", "", "chat.upsell", false, false, mock.Anything).Return(errors.New("channel closed"))

	f := newFixture(t, fixtureOpts{upsell: NewRabbitUpsellPublisher(repo, "chat.upsell"), limit: 1})
	f.seedRoom(t, "mk-1", "biz-1", domain.RoomKindMarketplace, domain.RoomActive)
	biz := Actor{ID: "biz-1", Role: "business"}

	_, err := f.messageUC.TrySend(context.Background(), biz, "mk-1", "first")
	require.NoError(t, err)

	_, err = f.messageUC.TrySend(context.Background(), biz, "mk-1", "second")
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	repo.AssertNumberOfCalls(t, "Publish", 1)
}
