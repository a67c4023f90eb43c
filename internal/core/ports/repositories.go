package ports

import (
	"context"
	"errors"
	"time"

	"recycle-marketplace/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrDuplicateOrigin is returned by LedgerRepository.Create when the
// (origin_ref, type) uniqueness constraint rejects the insert. The
// service layer maps it to the DuplicateSettlement error kind.
var ErrDuplicateOrigin = errors.New("ledger entry already exists for origin")

// OrderRepository defines persistence operations for orders, their line
// items and their append-only state history.
// Methods accepting pgx.Tx run inside the caller's transaction so the
// state write and the ledger write share one commit point.
type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	// GetByID loads the order with its line items and full state history.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// UpdateState applies the optimistic precondition: the row is only
	// written when current_state still equals prev. Returns false (and no
	// error) when a concurrent transition won the race.
	UpdateState(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, prev, next domain.OrderState, agentID *uuid.UUID) (bool, error)
	AppendHistory(ctx context.Context, tx pgx.Tx, entry *domain.StateEntry) error
	// ListByCustomer and ListByState return order rows without history or
	// items; use GetByID for the full aggregate.
	ListByCustomer(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]domain.Order, int64, error)
	ListByState(ctx context.Context, state domain.OrderState, page, pageSize int) ([]domain.Order, int64, error)
}

// WalletAccountRepository defines persistence operations for wallet
// accounts.
type WalletAccountRepository interface {
	Create(ctx context.Context, account *domain.WalletAccount) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.WalletAccount, error)
	// GetByUserIDForUpdate locks the account row for the duration of the
	// ledger mutation. MUST be called within a transaction.
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.WalletAccount, error)
	// UpdateBalance writes the new balance guarded by the version check
	// and bumps the version. Returns false when the version is stale.
	UpdateBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, balance decimal.Decimal, version int64) (bool, error)
}

// LedgerRepository defines persistence for the append-only wallet
// transaction ledger.
type LedgerRepository interface {
	// Create inserts a ledger entry. Returns ErrDuplicateOrigin when the
	// (origin_ref, type) pair already exists.
	Create(ctx context.Context, tx pgx.Tx, txn *domain.WalletTransaction) error
	GetByOrigin(ctx context.Context, originRef string, txType domain.TransactionType) (*domain.WalletTransaction, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.WalletTransaction, int64, error)
	// SumByAccount recomputes the balance from the ledger, for audit.
	SumByAccount(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}

// NotificationCursor is the decoded keyset position for listing.
type NotificationCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NotificationRepository defines persistence for per-user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	// MarkRead flips the read flag. Idempotent: an already-read or
	// missing target is not an error.
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	// List returns up to limit notifications ordered by
	// (created_at desc, id desc), strictly before the cursor when given.
	List(ctx context.Context, userID uuid.UUID, limit int, before *NotificationCursor) ([]domain.Notification, error)
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateRefreshTokenHash(ctx context.Context, id uuid.UUID, hash *string) error
	ApproveAgent(ctx context.Context, id uuid.UUID) error
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
