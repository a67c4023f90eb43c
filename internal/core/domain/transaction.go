package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of balance movement.
type TransactionType string

const (
	TransactionTypeCashback   TransactionType = "cashback"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeSettlement TransactionType = "order_settlement"
	TransactionTypeRefund     TransactionType = "refund"
)

// IsCredit reports whether this type increases the balance. Credits are
// recorded with positive amounts, debits with negative amounts.
func (t TransactionType) IsCredit() bool {
	return t == TransactionTypeCashback || t == TransactionTypeSettlement
}

// WalletTransaction is an immutable, append-only ledger entry. The
// account balance always equals the sum of its transaction amounts.
type WalletTransaction struct {
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"account_id"`
	Type      TransactionType `json:"type"`
	Amount    decimal.Decimal `json:"amount"` // signed: credits > 0, debits < 0
	OriginRef *string         `json:"origin_ref,omitempty"`
	OrderID   *uuid.UUID      `json:"order_id,omitempty"` // weak back-reference
	CreatedAt time.Time       `json:"created_at"`
}

// SettlementOriginRef builds the idempotency origin reference for an
// order settlement. Unique together with the transaction type, so a
// replayed completed transition can credit at most once.
func SettlementOriginRef(orderID uuid.UUID) string {
	return "order:" + orderID.String()
}

// GatewayOriginRef builds the origin reference for a gateway-correlated
// cashback or withdrawal entry.
func GatewayOriginRef(gatewayTxID string) string {
	return "gateway:" + gatewayTxID
}
