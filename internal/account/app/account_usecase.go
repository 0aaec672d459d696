package app

import (
	"context"
	"errors"

	"community_chat_service/internal/account/domain"
	"community_chat_service/internal/account/repository"
	errprocess "community_chat_service/pkg/err"
	"community_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// AccountUseCase 對外提供帳號與訂閱狀態查詢
type AccountUseCase interface {
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
	SetSubscription(ctx context.Context, accountID string, role domain.Role, sub domain.Subscription) error
}

type accountUseCase struct {
	accountRepo repository.AccountRepository
}

// NewAccountUseCase 建立一個新的 AccountUseCase
func NewAccountUseCase(accountRepo repository.AccountRepository) AccountUseCase {
	return &accountUseCase{accountRepo: accountRepo}
}

func (a *accountUseCase) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	if accountID == "" {
		return nil, errors.New("account id is required")
	}
	acc, err := a.accountRepo.FindAccount(ctx, accountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, errprocess.Wrap(err, "find account", zap.String("account_id", accountID))
	}
	return acc, nil
}

func (a *accountUseCase) SetSubscription(ctx context.Context, accountID string, role domain.Role, sub domain.Subscription) error {
	if accountID == "" {
		return errors.New("account id is required")
	}
	// 驗證 variant
	if _, err := domain.ParseSubscription(string(sub.Status), sub.TrialEndsAt); err != nil {
		return err
	}
	if role == "" {
		role = domain.RoleConsumer
	}

	logger.Log.Info("set subscription",
		zap.String("account_id", accountID),
		zap.String("role", string(role)),
		zap.String("status", string(sub.Status)))
	if err := a.accountRepo.UpsertAccount(ctx, &domain.Account{ID: accountID, Role: role, Subscription: sub}); err != nil {
		return errprocess.Wrap(err, "upsert account", zap.String("account_id", accountID))
	}
	return nil
}
