package app

import (
	"context"
	"errors"
	"time"

	accountapp "community_chat_service/internal/account/app"
	accountdomain "community_chat_service/internal/account/domain"
	"community_chat_service/internal/chat/domain"
	"community_chat_service/internal/chat/repository"
	"community_chat_service/pkg/logger"
	"community_chat_service/pkg/metrics"

	"go.uber.org/zap"
)

// Actor the authenticated member acting on a room
type Actor struct {
	ID   string
	Role accountdomain.Role
}

// UsageStatus current metering view of an actor
type UsageStatus struct {
	Metered   bool   `json:"metered"`
	PeriodKey string `json:"period_key"`
	SentCount int64  `json:"sent_count"`
	Limit     int64  `json:"limit"`
	Remaining int64  `json:"remaining"`
}

// QuotaGate 商家帳號的免費訊息額度
type QuotaGate struct {
	usageRepo repository.UsageRepository
	accounts  accountapp.AccountLookup
	upsell    UpsellPublisher

	limit  int64
	period domain.PeriodFunc
	now    func() time.Time
}

// NewQuotaGate accounts and upsell may be nil
func NewQuotaGate(
	usageRepo repository.UsageRepository,
	accounts accountapp.AccountLookup,
	upsell UpsellPublisher,
	limit int64,
	period domain.PeriodFunc,
) *QuotaGate {
	if limit <= 0 {
		limit = domain.DefaultQuotaLimit
	}
	if period == nil {
		period = domain.CalendarMonth
	}
	return &QuotaGate{
		usageRepo: usageRepo,
		accounts:  accounts,
		upsell:    upsell,
		limit:     limit,
		period:    period,
		now:       time.Now,
	}
}

// Metered the stored account decides: business accounts are metered unless the subscription covers now.
// The role claim is only a fallback when no account service is wired, the account has no row, or the
// lookup fails.
func (g *QuotaGate) Metered(ctx context.Context, actor Actor) bool {
	claimed := actor.Role == accountdomain.RoleBusiness
	if g.accounts == nil {
		return claimed
	}

	acc, err := g.accounts.GetAccount(ctx, actor.ID)
	switch {
	case err == nil:
		if acc.Role != actor.Role {
			logger.Log.Warn("role claim does not match account",
				zap.String("actor_id", actor.ID),
				zap.String("claimed", string(actor.Role)),
				zap.String("stored", string(acc.Role)))
		}
		return acc.Metered(g.now())
	case errors.Is(err, accountdomain.ErrAccountNotFound):
		return claimed
	default:
		logger.Log.Warn("account lookup failed, metering by role claim",
			zap.String("actor_id", actor.ID), zap.Bool("metered", claimed), zap.Error(err))
		return claimed
	}
}

// Reserve take one send unit for a metered actor. The returned release gives it back and is a
// no-op for unmetered actors. ErrQuotaExceeded leaves the counter unchanged.
func (g *QuotaGate) Reserve(ctx context.Context, actor Actor, roomID string) (func(), error) {
	if !g.Metered(ctx, actor) {
		return func() {}, nil
	}

	periodKey := g.period(g.now())
	counter, err := g.usageRepo.Reserve(ctx, actor.ID, periodKey, g.limit)
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			metrics.SendsBlocked.WithLabelValues("quota_exceeded").Inc()
			g.publishUpsell(ctx, UpsellEvent{
				ActorID:    actor.ID,
				RoomID:     roomID,
				PeriodKey:  periodKey,
				SentCount:  counter.SentCount,
				Limit:      g.limit,
				OccurredAt: g.now().UTC(),
			})
		}
		return nil, err
	}

	return func() {
		// 用獨立 context，呼叫端 ctx 可能已取消
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.usageRepo.Release(rctx, actor.ID, periodKey); err != nil {
			logger.Log.Error("release usage", zap.String("actor_id", actor.ID), zap.String("period", periodKey), zap.Error(err))
		}
	}, nil
}

// Usage metering view for the current period
func (g *QuotaGate) Usage(ctx context.Context, actor Actor) (UsageStatus, error) {
	periodKey := g.period(g.now())
	status := UsageStatus{
		Metered:   g.Metered(ctx, actor),
		PeriodKey: periodKey,
		Limit:     g.limit,
	}
	counter, err := g.usageRepo.Get(ctx, actor.ID, periodKey)
	if err != nil {
		return UsageStatus{}, err
	}
	status.SentCount = counter.SentCount
	status.Remaining = g.limit - counter.SentCount
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	return status, nil
}

func (g *QuotaGate) publishUpsell(ctx context.Context, event UpsellEvent) {
	if g.upsell == nil {
		return
	}
	if err := g.upsell.PublishUpsell(ctx, event); err != nil {
		logger.Log.Warn("publish upsell", zap.String("actor_id", event.ActorID), zap.Error(err))
	}
}
