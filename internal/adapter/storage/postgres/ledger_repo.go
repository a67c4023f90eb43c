package postgres

import (
	"context"
	"errors"
	"fmt"

	"recycle-marketplace/internal/core/domain"
	"recycle-marketplace/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const uniqueViolationCode = "23505"

// LedgerRepo implements ports.LedgerRepository over the append-only
// wallet_transactions table. A partial unique index on (origin_ref,
// tx_type) is the idempotency authority.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Create inserts a ledger entry within a database transaction. A unique
// violation on the origin index surfaces as ports.ErrDuplicateOrigin.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, txn *domain.WalletTransaction) error {
	query := `INSERT INTO wallet_transactions (id, account_id, tx_type, amount, origin_ref, order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		txn.ID, txn.AccountID, txn.Type, txn.Amount,
		txn.OriginRef, txn.OrderID, txn.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ports.ErrDuplicateOrigin
		}
		return fmt.Errorf("insert wallet transaction: %w", err)
	}
	return nil
}

// GetByOrigin fetches the entry recorded for an (origin_ref, type) pair.
func (r *LedgerRepo) GetByOrigin(ctx context.Context, originRef string, txType domain.TransactionType) (*domain.WalletTransaction, error) {
	query := `SELECT id, account_id, tx_type, amount, origin_ref, order_id, created_at
		FROM wallet_transactions WHERE origin_ref = $1 AND tx_type = $2`

	t := &domain.WalletTransaction{}
	err := r.pool.QueryRow(ctx, query, originRef, txType).Scan(
		&t.ID, &t.AccountID, &t.Type, &t.Amount, &t.OriginRef, &t.OrderID, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction by origin: %w", err)
	}
	return t, nil
}

// ListByAccount returns the account's entries, newest first.
func (r *LedgerRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.WalletTransaction, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM wallet_transactions WHERE account_id = $1`, accountID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count wallet transactions: %w", err)
	}

	query := `SELECT id, account_id, tx_type, amount, origin_ref, order_id, created_at
		FROM wallet_transactions WHERE account_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, accountID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.WalletTransaction
	for rows.Next() {
		var t domain.WalletTransaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Type, &t.Amount,
			&t.OriginRef, &t.OrderID, &t.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan wallet transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, total, rows.Err()
}

// SumByAccount recomputes the balance from the ledger. Used by audits
// to check the balance column against its own history.
func (r *LedgerRepo) SumByAccount(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM wallet_transactions WHERE account_id = $1`

	var sum decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum wallet transactions: %w", err)
	}
	return sum, nil
}
