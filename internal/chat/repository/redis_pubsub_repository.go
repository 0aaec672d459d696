package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"community_chat_service/internal/chat/domain"
	"community_chat_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Publisher publish room events
type Publisher interface {
	Publish(ctx context.Context, channel string, event domain.RoomEvent) error
}

// PubSub room event fan-out between sessions
type PubSub interface {
	Publisher
	// Subscribe deliver events of channel to handler until ctx is done
	Subscribe(ctx context.Context, channel string, handler func(domain.RoomEvent)) error
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// Publish 將 event 序列化後，發布到指定 channel
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event domain.RoomEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe 訂閱 room channel，收到訊息後呼叫 handler 處理
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(domain.RoomEvent)) error {
	sub := r.client.Subscribe(ctx, channel)
	// 確認訂閱成功
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}

				var event domain.RoomEvent
				if err := json.Unmarshal([]byte(m.Payload), &event); err != nil {
					logger.Log.Error("room event decode", zap.String("channel", channel), zap.Error(err))
					continue
				}
				handler(event)
			case <-ctx.Done():
				logger.Log.Debug(fmt.Sprintf("%s , sub close", channel))
				return
			}
		}
	}()
	return nil
}

// LocalPubSub in-process PubSub for single-instance deployments
type LocalPubSub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(domain.RoomEvent)
}

// NewLocalPubSub create LocalPubSub
func NewLocalPubSub() *LocalPubSub {
	return &LocalPubSub{subs: make(map[string]map[int]func(domain.RoomEvent))}
}

// Publish handlers run synchronously in the caller goroutine
func (l *LocalPubSub) Publish(_ context.Context, channel string, event domain.RoomEvent) error {
	l.mu.RLock()
	handlers := make([]func(domain.RoomEvent), 0, len(l.subs[channel]))
	for _, h := range l.subs[channel] {
		handlers = append(handlers, h)
	}
	l.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

// Subscribe the handler is removed when ctx is done
func (l *LocalPubSub) Subscribe(ctx context.Context, channel string, handler func(domain.RoomEvent)) error {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	if l.subs[channel] == nil {
		l.subs[channel] = make(map[int]func(domain.RoomEvent))
	}
	l.subs[channel][id] = handler
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		delete(l.subs[channel], id)
		if len(l.subs[channel]) == 0 {
			delete(l.subs, channel)
		}
		l.mu.Unlock()
	}()
	return nil
}
