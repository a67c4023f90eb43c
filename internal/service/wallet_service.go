package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recycle-marketplace/internal/core/domain"
	"recycle-marketplace/internal/core/ports"
	"recycle-marketplace/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const idempotencyTTL = 24 * time.Hour

// WalletServiceImpl implements ports.WalletService. All balance
// mutations go through the ledger primitive; this layer adds the
// gateway-correlated idempotency fast path, the refund policy, and the
// read side.
type WalletServiceImpl struct {
	accountRepo ports.WalletAccountRepository
	ledgerRepo  ports.LedgerRepository
	orderRepo   ports.OrderRepository
	ledgerSvc   ports.LedgerService
	notifySvc   ports.NotificationService
	transactor  ports.DBTransactor
	idemCache   ports.IdempotencyCache
	auditSvc    ports.AuditService
	log         zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	accountRepo ports.WalletAccountRepository,
	ledgerRepo ports.LedgerRepository,
	orderRepo ports.OrderRepository,
	ledgerSvc ports.LedgerService,
	notifySvc ports.NotificationService,
	transactor ports.DBTransactor,
	idemCache ports.IdempotencyCache,
	auditSvc ports.AuditService,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		orderRepo:   orderRepo,
		ledgerSvc:   ledgerSvc,
		notifySvc:   notifySvc,
		transactor:  transactor,
		idemCache:   idemCache,
		auditSvc:    auditSvc,
		log:         log,
	}
}

// GrantCashback credits a gateway-correlated cashback. Replays with the
// same gateway reference return the original transaction instead of
// crediting twice: the cache absorbs the common case, the ledger's
// uniqueness constraint is the authority.
func (s *WalletServiceImpl) GrantCashback(ctx context.Context, req ports.CashbackRequest) (*domain.WalletTransaction, error) {
	if req.GatewayRef == "" {
		return nil, apperror.Validation("gateway_ref is required")
	}
	originRef := domain.GatewayOriginRef(req.GatewayRef)

	if cached := s.cachedTransaction(ctx, originRef, domain.TransactionTypeCashback); cached != nil {
		return cached, nil
	}

	txn, err := s.applyInTx(ctx, req.UserID, domain.TransactionTypeCashback, req.Amount, &originRef, nil)
	if err != nil {
		if existing := s.existingOnDuplicate(ctx, err, originRef, domain.TransactionTypeCashback); existing != nil {
			return existing, nil
		}
		return nil, err
	}

	s.cacheTransaction(ctx, originRef, domain.TransactionTypeCashback, txn)
	s.notifyWallet(ctx, req.UserID, txn)
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		UserID:       &req.GrantedByID,
		Action:       domain.AuditActionCashback,
		ResourceType: "wallet_transaction",
		ResourceID:   txn.ID.String(),
		Details:      fmt.Sprintf(`{"user_id":%q,"gateway_ref":%q,"amount":%q}`, req.UserID, req.GatewayRef, req.Amount),
		CreatedAt:    time.Now().UTC(),
	})

	s.log.Info().
		Str("user_id", req.UserID.String()).
		Str("origin_ref", originRef).
		Str("amount", req.Amount.String()).
		Msg("cashback granted")
	return txn, nil
}

// Withdraw debits the wallet. The gateway reference is optional; when
// present, replays return the original entry.
func (s *WalletServiceImpl) Withdraw(ctx context.Context, req ports.WithdrawRequest) (*domain.WalletTransaction, error) {
	var originRef *string
	if req.GatewayRef != nil && *req.GatewayRef != "" {
		ref := domain.GatewayOriginRef(*req.GatewayRef)
		originRef = &ref

		if cached := s.cachedTransaction(ctx, ref, domain.TransactionTypeWithdrawal); cached != nil {
			return cached, nil
		}
	}

	txn, err := s.applyInTx(ctx, req.UserID, domain.TransactionTypeWithdrawal, req.Amount, originRef, nil)
	if err != nil {
		if originRef != nil {
			if existing := s.existingOnDuplicate(ctx, err, *originRef, domain.TransactionTypeWithdrawal); existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	if originRef != nil {
		s.cacheTransaction(ctx, *originRef, domain.TransactionTypeWithdrawal, txn)
	}
	s.notifyWallet(ctx, req.UserID, txn)
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		UserID:       &req.UserID,
		Action:       domain.AuditActionWithdrawal,
		ResourceType: "wallet_transaction",
		ResourceID:   txn.ID.String(),
		Details:      fmt.Sprintf(`{"amount":%q}`, req.Amount),
		CreatedAt:    time.Now().UTC(),
	})

	s.log.Info().
		Str("user_id", req.UserID.String()).
		Str("amount", req.Amount.String()).
		Msg("withdrawal applied")
	return txn, nil
}

// Refund debits the full settled value of a completed order back out of
// the customer's wallet. It is a separate ledger entry keyed by the same
// origin reference under the refund type, never a reversal of the
// original settlement row, so each order can be refunded at most once.
func (s *WalletServiceImpl) Refund(ctx context.Context, req ports.RefundRequest) (*domain.WalletTransaction, error) {
	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}
	if order.State != domain.OrderStateCompleted {
		return nil, apperror.Validation("only completed orders can be refunded")
	}

	originRef := domain.SettlementOriginRef(order.ID)
	settled, err := s.ledgerRepo.GetByOrigin(ctx, originRef, domain.TransactionTypeSettlement)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load settlement: %w", err))
	}
	if settled == nil {
		return nil, apperror.Validation("order has no settlement to refund")
	}

	txn, err := s.applyInTx(ctx, order.CustomerID, domain.TransactionTypeRefund, settled.Amount, &originRef, &order.ID)
	if err != nil {
		return nil, err
	}

	s.notifyWallet(ctx, order.CustomerID, txn)
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		UserID:       &req.RequestedBy,
		Action:       domain.AuditActionRefund,
		ResourceType: "order",
		ResourceID:   order.ID.String(),
		Details:      fmt.Sprintf(`{"reason":%q}`, req.Reason),
		CreatedAt:    time.Now().UTC(),
	})

	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("amount", settled.Amount.String()).
		Msg("order refunded")
	return txn, nil
}

// GetBalance returns the user's current wallet balance.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("load account: %w", err))
	}
	if account == nil {
		return decimal.Zero, apperror.ErrAccountNotFound()
	}
	return account.Balance, nil
}

// ListTransactions returns the user's ledger entries, newest first.
func (s *WalletServiceImpl) ListTransactions(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.WalletTransaction, int64, error) {
	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("load account: %w", err))
	}
	if account == nil {
		return nil, 0, apperror.ErrAccountNotFound()
	}
	txns, total, err := s.ledgerRepo.ListByAccount(ctx, account.ID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

// applyInTx runs a single ledger mutation in its own transaction.
func (s *WalletServiceImpl) applyInTx(
	ctx context.Context,
	userID uuid.UUID,
	txType domain.TransactionType,
	amount decimal.Decimal,
	originRef *string,
	orderID *uuid.UUID,
) (*domain.WalletTransaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.ledgerSvc.Apply(ctx, dbTx, userID, txType, amount, originRef, orderID)
	if err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return txn, nil
}

// existingOnDuplicate returns the previously recorded transaction when
// err is the duplicate-settlement kind, nil otherwise.
func (s *WalletServiceImpl) existingOnDuplicate(ctx context.Context, err error, originRef string, txType domain.TransactionType) *domain.WalletTransaction {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != "WAL_002" {
		return nil
	}
	existing, getErr := s.ledgerRepo.GetByOrigin(ctx, originRef, txType)
	if getErr != nil || existing == nil {
		s.log.Error().Err(getErr).Str("origin_ref", originRef).Msg("duplicate reported but original not found")
		return nil
	}
	s.log.Info().Str("origin_ref", originRef).Msg("replayed wallet mutation, returning original")
	return existing
}

func (s *WalletServiceImpl) idemKey(originRef string, txType domain.TransactionType) string {
	return fmt.Sprintf("idem:%s:%s", txType, originRef)
}

// cachedTransaction checks the redis fast path. Cache failures degrade
// to the database constraint, never to an error.
func (s *WalletServiceImpl) cachedTransaction(ctx context.Context, originRef string, txType domain.TransactionType) *domain.WalletTransaction {
	raw, err := s.idemCache.Get(ctx, s.idemKey(originRef, txType))
	if err != nil {
		s.log.Warn().Err(err).Msg("idempotency cache read failed")
		return nil
	}
	if raw == nil {
		return nil
	}
	var txn domain.WalletTransaction
	if err := json.Unmarshal(raw, &txn); err != nil {
		s.log.Warn().Err(err).Msg("idempotency cache entry malformed")
		return nil
	}
	s.log.Info().Str("origin_ref", originRef).Msg("replayed wallet mutation served from cache")
	return &txn
}

func (s *WalletServiceImpl) cacheTransaction(ctx context.Context, originRef string, txType domain.TransactionType, txn *domain.WalletTransaction) {
	raw, err := json.Marshal(txn)
	if err != nil {
		return
	}
	if err := s.idemCache.Set(ctx, s.idemKey(originRef, txType), raw, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Msg("idempotency cache write failed")
	}
}

// notifyWallet emits the credit/debit alert for a committed mutation.
func (s *WalletServiceImpl) notifyWallet(ctx context.Context, userID uuid.UUID, txn *domain.WalletTransaction) {
	nType := domain.NotificationTypeWalletDebit
	title := domain.LocalizedText{Primary: "Wallet debited", Secondary: "تم الخصم من المحفظة"}
	if txn.Type.IsCredit() {
		nType = domain.NotificationTypeWalletCredit
		title = domain.LocalizedText{Primary: "Wallet credited", Secondary: "تمت إضافة رصيد"}
	}
	body := domain.LocalizedText{
		Primary:   fmt.Sprintf("A %s of %s points was applied to your wallet.", txn.Type, txn.Amount.Abs().String()),
		Secondary: fmt.Sprintf("تمت معالجة %s بقيمة %s نقطة في محفظتك.", txn.Type, txn.Amount.Abs().String()),
	}
	if _, err := s.notifySvc.Notify(ctx, userID, nType, title, body, txn.OrderID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("wallet notification failed")
	}
}
