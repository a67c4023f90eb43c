package service

import (
	"context"

	"recycle-marketplace/internal/core/domain"
	"recycle-marketplace/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SettlementServiceImpl implements ports.SettlementService.
type SettlementServiceImpl struct {
	ledgerSvc ports.LedgerService
	log       zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(ledgerSvc ports.LedgerService, log zerolog.Logger) *SettlementServiceImpl {
	return &SettlementServiceImpl{ledgerSvc: ledgerSvc, log: log}
}

// Settle credits the order's total point value to the customer's wallet.
// The value comes from the line-item snapshots captured at creation; the
// catalog is never re-read, so a replayed settlement computes the same
// number. At-most-once is enforced by the (origin_ref, type) key, not by
// trusting the state machine to call us once: a duplicate fails with
// DuplicateSettlement and the caller treats that as already-applied.
func (s *SettlementServiceImpl) Settle(ctx context.Context, tx pgx.Tx, order *domain.Order) (*domain.WalletTransaction, error) {
	total := order.TotalPoints()
	if total.LessThanOrEqual(decimal.Zero) {
		// Nothing of value collected; completing the order stands on its
		// own with no ledger entry.
		s.log.Warn().Str("order_id", order.ID.String()).Msg("order completed with zero value, skipping settlement")
		return nil, nil
	}

	ref := domain.SettlementOriginRef(order.ID)
	txn, err := s.ledgerSvc.Apply(ctx, tx, order.CustomerID, domain.TransactionTypeSettlement, total, &ref, &order.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("customer_id", order.CustomerID.String()).
		Str("points", total.String()).
		Msg("order settled")

	return txn, nil
}
