package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletAccount holds a user's internal balance. The balance is only
// ever mutated through the ledger primitive together with an appended
// WalletTransaction, and never goes negative.
type WalletAccount struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"` // optimistic concurrency check
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CanDebit reports whether applying the (negative) amount keeps the
// balance non-negative.
func (a *WalletAccount) CanDebit(amount decimal.Decimal) bool {
	return a.Balance.Add(amount).GreaterThanOrEqual(decimal.Zero)
}
