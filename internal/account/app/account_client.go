package app

import (
	"context"
	"errors"
	"time"

	"community_chat_service/internal/account/domain"
	"community_chat_service/pkg/database"
	"community_chat_service/pkg/logger"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// AccountLookup resolve the role and subscription of an actor
type AccountLookup interface {
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
}

// AccountClient calls the account service over gRPC
type AccountClient struct {
	conn grpc.ClientConnInterface
}

// NewAccountClient wrap an established connection
func NewAccountClient(conn grpc.ClientConnInterface) *AccountClient {
	return &AccountClient{conn: conn}
}

// GetAccount NotFound is mapped to domain.ErrAccountNotFound
func (c *AccountClient) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	req, err := structpb.NewStruct(map[string]interface{}{"account_id": accountID})
	if err != nil {
		return nil, err
	}

	res := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, GetAccountMethod, req, res); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return decodeAccount(res)
}

// CachedAccountLookup read-through redis cache in front of another lookup
type CachedAccountLookup struct {
	next  AccountLookup
	cache database.RedisRepository[domain.Account]
	ttl   time.Duration
}

// NewCachedAccountLookup ttl <= 0 disables caching
func NewCachedAccountLookup(next AccountLookup, cache database.RedisRepository[domain.Account], ttl time.Duration) *CachedAccountLookup {
	return &CachedAccountLookup{next: next, cache: cache, ttl: ttl}
}

// GetAccount cache errors only fall through to the next lookup
func (c *CachedAccountLookup) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	if c.ttl <= 0 {
		return c.next.GetAccount(ctx, accountID)
	}

	acc, err := c.cache.Get(ctx, accountID)
	if err == nil {
		return &acc, nil
	}
	if !errors.Is(err, database.ErrCacheMiss) {
		logger.Log.Warn("account cache get", zap.String("account_id", accountID), zap.Error(err))
	}

	fresh, err := c.next.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, accountID, *fresh, c.ttl); err != nil {
		logger.Log.Warn("account cache set", zap.String("account_id", accountID), zap.Error(err))
	}
	return fresh, nil
}
