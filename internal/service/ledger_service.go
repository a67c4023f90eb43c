package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recycle-marketplace/internal/core/domain"
	"recycle-marketplace/internal/core/ports"
	"recycle-marketplace/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerServiceImpl implements ports.LedgerService: the sole write path
// for wallet balances. Every mutation appends a transaction record and
// writes the new balance inside the caller's database transaction, so no
// partial application is ever observable.
type LedgerServiceImpl struct {
	accountRepo ports.WalletAccountRepository
	ledgerRepo  ports.LedgerRepository
	log         zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	accountRepo ports.WalletAccountRepository,
	ledgerRepo ports.LedgerRepository,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		log:         log,
	}
}

// Apply records one ledger entry plus the matching balance update.
// amount is a positive magnitude; the stored amount is signed by type
// (credits positive, debits negative). Runs within tx; the caller owns
// commit and rollback.
func (s *LedgerServiceImpl) Apply(
	ctx context.Context,
	tx pgx.Tx,
	userID uuid.UUID,
	txType domain.TransactionType,
	amount decimal.Decimal,
	originRef *string,
	orderID *uuid.UUID,
) (*domain.WalletTransaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.ErrInvalidAmount()
	}

	signed := amount
	if !txType.IsCredit() {
		signed = amount.Neg()
	}

	// Idempotency pre-check. Done before any write so a duplicate leaves
	// the surrounding transaction healthy and committable; the unique
	// (origin_ref, type) index remains the authority for races.
	if originRef != nil {
		existing, err := s.ledgerRepo.GetByOrigin(ctx, *originRef, txType)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("check origin ref: %w", err))
		}
		if existing != nil {
			return nil, apperror.ErrDuplicateSettlement()
		}
	}

	// Lock the account row; mutations on the same account serialize,
	// different accounts never block each other.
	account, err := s.accountRepo.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	newBalance := account.Balance.Add(signed)
	if newBalance.IsNegative() {
		return nil, apperror.ErrInsufficientFunds()
	}

	txn := &domain.WalletTransaction{
		ID:        uuid.New(),
		AccountID: account.ID,
		Type:      txType,
		Amount:    signed,
		OriginRef: originRef,
		OrderID:   orderID,
		CreatedAt: time.Now().UTC(),
	}

	ok, err := s.accountRepo.UpdateBalance(ctx, tx, account.ID, newBalance, account.Version)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}
	if !ok {
		// Cannot happen while the row lock is held; a miss means the
		// version column drifted out of band.
		return nil, apperror.InternalError(fmt.Errorf("account %s version conflict under lock", account.ID))
	}

	if err := s.ledgerRepo.Create(ctx, tx, txn); err != nil {
		if errors.Is(err, ports.ErrDuplicateOrigin) {
			return nil, apperror.ErrDuplicateSettlement()
		}
		return nil, apperror.InternalError(fmt.Errorf("append ledger entry: %w", err))
	}

	s.log.Debug().
		Str("account_id", account.ID.String()).
		Str("type", string(txType)).
		Str("amount", signed.String()).
		Str("balance", newBalance.String()).
		Msg("ledger entry applied")

	return txn, nil
}
