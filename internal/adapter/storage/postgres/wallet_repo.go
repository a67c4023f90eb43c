package postgres

import (
	"context"
	"errors"
	"fmt"

	"recycle-marketplace/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletAccountRepo implements ports.WalletAccountRepository.
type WalletAccountRepo struct {
	pool Pool
}

// NewWalletAccountRepo creates a new WalletAccountRepo.
func NewWalletAccountRepo(pool Pool) *WalletAccountRepo {
	return &WalletAccountRepo{pool: pool}
}

// Create inserts a new wallet account with a zero balance.
func (r *WalletAccountRepo) Create(ctx context.Context, account *domain.WalletAccount) error {
	query := `INSERT INTO wallet_accounts (id, user_id, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		account.ID, account.UserID, account.Balance, account.Version,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet account: %w", err)
	}
	return nil
}

// GetByUserID fetches an account by user ID (non-locking read).
func (r *WalletAccountRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.WalletAccount, error) {
	query := `SELECT id, user_id, balance, version, created_at, updated_at
		FROM wallet_accounts WHERE user_id = $1`

	return scanAccount(r.pool.QueryRow(ctx, query, userID))
}

// GetByUserIDForUpdate fetches an account with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletAccountRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.WalletAccount, error) {
	query := `SELECT id, user_id, balance, version, created_at, updated_at
		FROM wallet_accounts WHERE user_id = $1 FOR UPDATE`

	return scanAccount(tx.QueryRow(ctx, query, userID))
}

// UpdateBalance writes the new balance guarded by the version check.
func (r *WalletAccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, balance decimal.Decimal, version int64) (bool, error) {
	query := `UPDATE wallet_accounts
		SET balance = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3`

	tag, err := tx.Exec(ctx, query, balance, accountID, version)
	if err != nil {
		return false, fmt.Errorf("update wallet balance: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanAccount(row pgx.Row) (*domain.WalletAccount, error) {
	a := &domain.WalletAccount{}
	err := row.Scan(&a.ID, &a.UserID, &a.Balance, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet account: %w", err)
	}
	return a, nil
}
