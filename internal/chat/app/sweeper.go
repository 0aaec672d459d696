package app

import (
	"context"
	"sync"
	"time"

	"community_chat_service/internal/chat/domain"
	"community_chat_service/internal/chat/repository"
	"community_chat_service/pkg/logger"
	"community_chat_service/pkg/metrics"

	"go.uber.org/zap"
)

// ExpirySweeper removes expired messages of an open direct-message view
type ExpirySweeper struct {
	msgRepo  repository.MessageRepository
	interval time.Duration
	now      func() time.Time
}

// NewExpirySweeper interval <= 0 falls back to one second
func NewExpirySweeper(msgRepo repository.MessageRepository, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Second
	}
	return &ExpirySweeper{msgRepo: msgRepo, interval: interval, now: time.Now}
}

// Watch sweep room every interval until ctx is done or stop is called.
// Rooms that are not ephemeral get no sweeper. stop waits for the goroutine and may be called more than once.
func (s *ExpirySweeper) Watch(ctx context.Context, room *domain.ChatRoom, onSweep func(removed []string)) (stop func()) {
	if !room.IsEphemeral() {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	roomID := room.ID

	metrics.SweepersActive.Inc()
	go func() {
		defer close(done)
		defer metrics.SweepersActive.Dec()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.sweep(ctx, roomID, onSweep)
		for {
			select {
			case <-ticker.C:
				s.sweep(ctx, roomID, onSweep)
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context, roomID string, onSweep func([]string)) {
	removed, err := s.msgRepo.DeleteExpired(ctx, roomID, s.now().UTC())
	if err != nil {
		if ctx.Err() == nil {
			logger.Log.Warn("sweep expired messages", zap.String("room_id", roomID), zap.Error(err))
		}
		return
	}
	if len(removed) == 0 {
		return
	}
	metrics.MessagesExpired.Add(float64(len(removed)))
	if onSweep != nil {
		onSweep(removed)
	}
}
