package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"community_chat_service/internal/chat/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsageRepository definition per-period send counters of metered actors
type UsageRepository interface {
	// Reserve atomically take one unit if SentCount < limit, otherwise ErrQuotaExceeded and nothing changes
	Reserve(ctx context.Context, actorID, periodKey string, limit int64) (domain.UsageCounter, error)
	// Release give back a unit taken by Reserve whose send did not happen
	Release(ctx context.Context, actorID, periodKey string) error
	// Get current counter, a zero counter when none was created yet
	Get(ctx context.Context, actorID, periodKey string) (domain.UsageCounter, error)
}

type gormUsageRepository struct {
	db *gorm.DB
}

// NewGormUsageRepository usage counters on postgres or sqlite
func NewGormUsageRepository(db *gorm.DB) UsageRepository {
	return &gormUsageRepository{db: db}
}

// MigrateUsage create usage_counters
func MigrateUsage(db *gorm.DB) error {
	return db.AutoMigrate(&domain.UsageCounter{})
}

func (r *gormUsageRepository) Reserve(ctx context.Context, actorID, periodKey string, limit int64) (domain.UsageCounter, error) {
	now := time.Now().UTC()
	db := r.db.WithContext(ctx)

	// 第一次 reserve 時建立 counter
	seed := domain.UsageCounter{ActorID: actorID, PeriodKey: periodKey, UpdatedAt: now}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return domain.UsageCounter{}, fmt.Errorf("seed usage counter: %w", err)
	}

	res := db.Model(&domain.UsageCounter{}).
		Where("actor_id = ? AND period_key = ? AND sent_count < ?", actorID, periodKey, limit).
		Updates(map[string]interface{}{
			"sent_count": gorm.Expr("sent_count + ?", 1),
			"updated_at": now,
		})
	if res.Error != nil {
		return domain.UsageCounter{}, fmt.Errorf("reserve usage: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		counter, err := r.Get(ctx, actorID, periodKey)
		if err != nil {
			return domain.UsageCounter{}, err
		}
		return counter, fmt.Errorf("%s used %d/%d: %w", actorID, counter.SentCount, limit, domain.ErrQuotaExceeded)
	}
	return r.Get(ctx, actorID, periodKey)
}

func (r *gormUsageRepository) Release(ctx context.Context, actorID, periodKey string) error {
	return r.db.WithContext(ctx).Model(&domain.UsageCounter{}).
		Where("actor_id = ? AND period_key = ? AND sent_count > 0", actorID, periodKey).
		Updates(map[string]interface{}{
			"sent_count": gorm.Expr("sent_count - ?", 1),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *gormUsageRepository) Get(ctx context.Context, actorID, periodKey string) (domain.UsageCounter, error) {
	var counter domain.UsageCounter
	err := r.db.WithContext(ctx).
		Where("actor_id = ? AND period_key = ?", actorID, periodKey).
		First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.UsageCounter{ActorID: actorID, PeriodKey: periodKey}, nil
	}
	if err != nil {
		return domain.UsageCounter{}, err
	}
	return counter, nil
}

type memoryUsageRepository struct {
	mu       sync.Mutex
	counters map[[2]string]domain.UsageCounter
}

// NewMemoryUsageRepository mutex-guarded UsageRepository
func NewMemoryUsageRepository() UsageRepository {
	return &memoryUsageRepository{counters: make(map[[2]string]domain.UsageCounter)}
}

func (r *memoryUsageRepository) Reserve(_ context.Context, actorID, periodKey string, limit int64) (domain.UsageCounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := [2]string{actorID, periodKey}
	c, ok := r.counters[key]
	if !ok {
		c = domain.UsageCounter{ActorID: actorID, PeriodKey: periodKey}
	}
	if c.SentCount >= limit {
		return c, fmt.Errorf("%s used %d/%d: %w", actorID, c.SentCount, limit, domain.ErrQuotaExceeded)
	}
	c.SentCount++
	c.UpdatedAt = time.Now().UTC()
	r.counters[key] = c
	return c, nil
}

func (r *memoryUsageRepository) Release(_ context.Context, actorID, periodKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := [2]string{actorID, periodKey}
	if c, ok := r.counters[key]; ok && c.SentCount > 0 {
		c.SentCount--
		c.UpdatedAt = time.Now().UTC()
		r.counters[key] = c
	}
	return nil
}

func (r *memoryUsageRepository) Get(_ context.Context, actorID, periodKey string) (domain.UsageCounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[[2]string{actorID, periodKey}]; ok {
		return c, nil
	}
	return domain.UsageCounter{ActorID: actorID, PeriodKey: periodKey}, nil
}
