package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"community_chat_service/internal/chat/domain"
	"community_chat_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// BookingEvent payload of booking.confirmed
type BookingEvent struct {
	RoomID       string `json:"room_id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	ServiceLabel string `json:"service_label"`
}

// MessageReader the part of *kafka.Reader the consumer needs
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// BookingConsumer feed confirmed bookings from kafka into the injector
type BookingConsumer struct {
	reader  MessageReader
	booking *BookingUseCase

	retries int
	backoff time.Duration
}

// NewBookingConsumer create BookingConsumer
func NewBookingConsumer(reader MessageReader, booking *BookingUseCase) *BookingConsumer {
	return &BookingConsumer{
		reader:  reader,
		booking: booking,
		retries: 3,
		backoff: 500 * time.Millisecond,
	}
}

// Run consume until ctx is done. An offset is committed only after the event was handled;
// events that can never succeed (bad payload, unknown or rejected room) are committed and skipped.
func (c *BookingConsumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := c.handle(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// 不 commit，重啟後重新消費
			logger.Log.Error("booking event failed",
				zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset), zap.Error(err))
			return err
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *BookingConsumer) handle(ctx context.Context, m kafka.Message) error {
	var event BookingEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		logger.Log.Warn("skip malformed booking event", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}

	payload := domain.BookingPayload{Date: event.Date, Time: event.Time, ServiceLabel: event.ServiceLabel}
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		_, _, err = c.booking.Inject(ctx, event.RoomID, payload)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidBooking) ||
			errors.Is(err, domain.ErrNotActive) {
			logger.Log.Warn("skip booking event",
				zap.String("room_id", event.RoomID), zap.Int64("offset", m.Offset), zap.Error(err))
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff * time.Duration(attempt+1)):
		}
	}
	return err
}

// SuperviseBookingConsumer keep a consumer running until ctx is done. Run closes its reader,
// so every restart opens a fresh one; the delay doubles from minBackoff up to maxBackoff.
func SuperviseBookingConsumer(ctx context.Context, newReader func() MessageReader, booking *BookingUseCase, minBackoff, maxBackoff time.Duration) {
	delay := minBackoff
	for {
		err := NewBookingConsumer(newReader(), booking).Run(ctx)
		if ctx.Err() != nil {
			return
		}
		logger.Log.Error("booking consumer stopped, restarting",
			zap.Duration("backoff", delay), zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxBackoff {
			delay = maxBackoff
		}
	}
}
