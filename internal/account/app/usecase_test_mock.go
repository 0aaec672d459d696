package app

import (
	"context"
	"time"

	"community_chat_service/internal/account/domain"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepo Mock AccountRepository
type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAccountRepo) FindAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountRepo) UpsertAccount(ctx context.Context, acc *domain.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

// MockAccountCache 針對 Account 的 Redis Mock
type MockAccountCache struct {
	mock.Mock
}

func (m *MockAccountCache) Set(ctx context.Context, key string, value domain.Account, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockAccountCache) Get(ctx context.Context, key string) (domain.Account, error) {
	args := m.Called(ctx, key)
	if args.Get(0) != nil {
		return args.Get(0).(domain.Account), args.Error(1)
	}
	return domain.Account{}, args.Error(1)
}

func (m *MockAccountCache) Del(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockAccountLookup Mock AccountLookup
type MockAccountLookup struct {
	mock.Mock
}

func (m *MockAccountLookup) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Account), args.Error(1)
	}
	return nil, args.Error(1)
}
