package app

import (
	"context"
	"encoding/json"
	"time"

	"community_chat_service/pkg/database"
	errprocess "community_chat_service/pkg/err"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// UpsellEvent a metered actor hit the free-tier limit
type UpsellEvent struct {
	ActorID    string    `json:"actor_id"`
	RoomID     string    `json:"room_id"`
	PeriodKey  string    `json:"period_key"`
	SentCount  int64     `json:"sent_count"`
	Limit      int64     `json:"limit"`
	OccurredAt time.Time `json:"occurred_at"`
}

// UpsellPublisher hand the event to whoever shows the subscription prompt
type UpsellPublisher interface {
	PublishUpsell(ctx context.Context, event UpsellEvent) error
}

// RabbitUpsellPublisher publish upsell events to a durable queue
type RabbitUpsellPublisher struct {
	repo  database.RabbitRepo
	queue string
}

// NewRabbitUpsellPublisher queue must already be declared
func NewRabbitUpsellPublisher(repo database.RabbitRepo, queue string) *RabbitUpsellPublisher {
	return &RabbitUpsellPublisher{repo: repo, queue: queue}
}

// PublishUpsell default exchange, routed by queue name
func (p *RabbitUpsellPublisher) PublishUpsell(_ context.Context, event UpsellEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	err = p.repo.Publish("", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	return errprocess.Wrap(err, "publish upsell", zap.String("queue", p.queue), zap.String("actor_id", event.ActorID))
}
