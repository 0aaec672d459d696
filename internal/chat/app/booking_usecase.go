package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"community_chat_service/internal/chat/domain"
	"community_chat_service/internal/chat/repository"
	"community_chat_service/pkg/logger"
	"community_chat_service/pkg/metrics"

	"go.uber.org/zap"
)

// BookingUseCase 在對話中插入預約確認通知，同一時段只會出現一次
type BookingUseCase struct {
	messages *MessageUseCase
	msgRepo  repository.MessageRepository
}

// NewBookingUseCase shares room locks with messages
func NewBookingUseCase(messages *MessageUseCase, msgRepo repository.MessageRepository) *BookingUseCase {
	return &BookingUseCase{messages: messages, msgRepo: msgRepo}
}

// ValidateBooking date "2006-01-02", time "15:04"
func ValidateBooking(p domain.BookingPayload) error {
	if _, err := time.Parse("2006-01-02", p.Date); err != nil {
		return fmt.Errorf("date %q: %w", p.Date, domain.ErrInvalidBooking)
	}
	if _, err := time.Parse("15:04", p.Time); err != nil {
		return fmt.Errorf("time %q: %w", p.Time, domain.ErrInvalidBooking)
	}
	return nil
}

// Inject append a booking notice unless one for the same (date, time) is visible.
// injected is false when the existing notice is returned instead. A rejected room is ErrNotActive.
func (uc *BookingUseCase) Inject(ctx context.Context, roomID string, p domain.BookingPayload) (msg *domain.ChatMessage, injected bool, err error) {
	if err := ValidateBooking(p); err != nil {
		metrics.BookingNotices.WithLabelValues("invalid").Inc()
		return nil, false, err
	}

	unlock := uc.messages.locks.lock(roomID)
	defer unlock()

	room, err := uc.messages.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, false, err
	}
	if room.State == domain.RoomRejected {
		metrics.BookingNotices.WithLabelValues("rejected").Inc()
		return nil, false, fmt.Errorf("room %s is rejected: %w", roomID, domain.ErrNotActive)
	}

	now := uc.messages.now().UTC()
	if existing, err := uc.msgRepo.FindBooking(ctx, roomID, p, now); err == nil {
		metrics.BookingNotices.WithLabelValues("duplicate").Inc()
		return existing, false, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	payload := p
	msg, err = uc.messages.appendLocked(ctx, room, domain.ChatMessage{
		Sender:  domain.SenderSelf,
		Type:    domain.MessageBookingNotice,
		Booking: &payload,
	})
	if errors.Is(err, domain.ErrDuplicateBooking) {
		// 另一個 instance 搶先寫入
		metrics.BookingNotices.WithLabelValues("duplicate").Inc()
		existing, ferr := uc.msgRepo.FindBooking(ctx, roomID, p, now)
		if ferr != nil {
			return nil, false, ferr
		}
		return existing, false, nil
	}
	if err != nil {
		metrics.BookingNotices.WithLabelValues("failed").Inc()
		return nil, false, err
	}

	metrics.BookingNotices.WithLabelValues("injected").Inc()
	logger.Log.Info("booking notice injected",
		zap.String("room_id", roomID), zap.String("date", p.Date), zap.String("time", p.Time))
	return msg, true, nil
}
