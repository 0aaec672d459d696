package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"community_chat_service/internal/account/domain"
)

// Schema accounts table owned by the account service
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
    account_id          TEXT PRIMARY KEY,
    role                TEXT NOT NULL DEFAULT 'consumer',
    subscription_status TEXT NOT NULL DEFAULT 'none',
    trial_ends_at       TIMESTAMPTZ,
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// AccountRepository definition get account role and subscription
type AccountRepository interface {
	Migrate(ctx context.Context) error
	FindAccount(ctx context.Context, accountID string) (*domain.Account, error)
	UpsertAccount(ctx context.Context, acc *domain.Account) error
}

type accountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository create a AccountRepository
func NewAccountRepository(db *pgxpool.Pool) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, Schema)
	return err
}

func (r *accountRepository) FindAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	row := r.db.QueryRow(ctx,
		"SELECT account_id, role, subscription_status, trial_ends_at FROM accounts WHERE account_id = $1",
		accountID)

	var (
		acc         domain.Account
		role        string
		status      string
		trialEndsAt sql.NullTime
	)
	if err := row.Scan(&acc.ID, &role, &status, &trialEndsAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	sub, err := domain.ParseSubscription(status, trialEndsAt.Time)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", accountID, err)
	}
	acc.Role = domain.Role(role)
	acc.Subscription = sub
	return &acc, nil
}

func (r *accountRepository) UpsertAccount(ctx context.Context, acc *domain.Account) error {
	var trialEndsAt *time.Time
	if acc.Subscription.Status == domain.SubscriptionTrial {
		trialEndsAt = &acc.Subscription.TrialEndsAt
	}
	_, err := r.db.Exec(ctx, `
      INSERT INTO accounts(account_id, role, subscription_status, trial_ends_at, updated_at)
      VALUES ($1, $2, $3, $4, now())
      ON CONFLICT (account_id) DO UPDATE
      SET role = EXCLUDED.role,
          subscription_status = EXCLUDED.subscription_status,
          trial_ends_at = EXCLUDED.trial_ends_at,
          updated_at = now()
    `, acc.ID, string(acc.Role), string(acc.Subscription.Status), trialEndsAt)
	return err
}
