package ports

import (
	"context"
	"time"

	"recycle-marketplace/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// --- Service Ports (Business Logic) ---

// LineItemInput carries the catalog snapshot for one order line, as
// supplied by the catalog collaborator at order-creation time.
type LineItemInput struct {
	CatalogItemID uuid.UUID
	Quantity      decimal.Decimal
	Unit          domain.MeasurementUnit
	PointsRate    decimal.Decimal
	PriceRate     decimal.Decimal
}

// CreateOrderRequest holds validated input for order creation.
type CreateOrderRequest struct {
	CustomerID    uuid.UUID
	Items         []LineItemInput
	AddressID     uuid.UUID
	PaymentMethod domain.PaymentMethod
}

// TransitionRequest holds validated input for a state transition.
type TransitionRequest struct {
	OrderID uuid.UUID
	Target  domain.OrderState
	Actor   domain.Actor
	// Reason annotates a cancellation; mandatory, minimum length applies.
	Reason *string
	// AgentID is the delivery agent for requested -> assigned, supplied
	// by the assignment collaborator.
	AgentID *uuid.UUID
}

// OrderService drives the order lifecycle.
type OrderService interface {
	Create(ctx context.Context, req CreateOrderRequest) (*domain.Order, error)
	// Transition validates and applies one state change. On success the
	// returned order reflects the committed state; settlement (for
	// completed) shares the commit, and exactly one notification is
	// emitted after it.
	Transition(ctx context.Context, req TransitionRequest) (*domain.Order, error)
	GetByID(ctx context.Context, id uuid.UUID, actor domain.Actor) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]domain.Order, int64, error)
	ListByState(ctx context.Context, state domain.OrderState, page, pageSize int) ([]domain.Order, int64, error)
}

// LedgerService is the ledger mutation primitive: the sole write path
// for wallet balances.
type LedgerService interface {
	// Apply records one transaction and the matching balance update as an
	// indivisible unit inside the caller's database transaction. amount
	// is a positive magnitude; the sign is derived from txType. A debit
	// that would drive the balance negative fails with InsufficientFunds;
	// a duplicate (originRef, txType) fails with DuplicateSettlement.
	Apply(ctx context.Context, tx pgx.Tx, userID uuid.UUID, txType domain.TransactionType, amount decimal.Decimal, originRef *string, orderID *uuid.UUID) (*domain.WalletTransaction, error)
}

// SettlementService converts a completed order into a wallet credit.
type SettlementService interface {
	// Settle credits the order's total point value at most once, keyed by
	// the order's settlement origin reference. Runs inside the same
	// transaction as the completed-state write.
	Settle(ctx context.Context, tx pgx.Tx, order *domain.Order) (*domain.WalletTransaction, error)
}

// CashbackRequest holds validated input for an admin cashback grant.
type CashbackRequest struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	GatewayRef  string
	GrantedByID uuid.UUID
}

// WithdrawRequest holds validated input for a withdrawal.
type WithdrawRequest struct {
	UserID     uuid.UUID
	Amount     decimal.Decimal
	GatewayRef *string
}

// RefundRequest holds validated input for an admin-initiated refund of a
// settled order. A refund is a separate debit entry, never a reversal of
// the original settlement.
type RefundRequest struct {
	OrderID     uuid.UUID
	RequestedBy uuid.UUID
	Reason      string
}

// WalletService exposes manual transaction entry and wallet queries.
type WalletService interface {
	GrantCashback(ctx context.Context, req CashbackRequest) (*domain.WalletTransaction, error)
	Withdraw(ctx context.Context, req WithdrawRequest) (*domain.WalletTransaction, error)
	Refund(ctx context.Context, req RefundRequest) (*domain.WalletTransaction, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.WalletTransaction, int64, error)
}

// NotificationPage is one page of a cursor-paginated listing.
type NotificationPage struct {
	Items      []domain.Notification
	NextCursor string // empty when the page is not full
}

// NotificationService creates and serves per-user notifications.
type NotificationService interface {
	// Notify always creates a new unread record; identical payloads about
	// different events are never deduplicated.
	Notify(ctx context.Context, userID uuid.UUID, nType domain.NotificationType, title, body domain.LocalizedText, orderID *uuid.UUID) (*domain.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	List(ctx context.Context, userID uuid.UUID, limit int, cursor string) (*NotificationPage, error)
}

// RegisterRequest holds input for user registration.
type RegisterRequest struct {
	Email    string
	Password string
	FullName string
	Role     domain.Role
}

// TokenPair is an access token plus the rotating refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AuthService defines the authentication boundary. The core trusts the
// identity and role it produces.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	// Refresh rotates the refresh token; only its hash is ever stored.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	ApproveAgent(ctx context.Context, agentID, adminID uuid.UUID) error
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Role   domain.Role
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, role domain.Role) (string, time.Time, error)
	// GenerateRefresh issues a longer-lived token carrying a unique id,
	// so concurrent issuance never produces colliding tokens.
	GenerateRefresh(userID uuid.UUID, role domain.Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// HashService handles password hashing and one-way token digests.
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
	// DigestToken returns the hex digest stored instead of a raw refresh
	// token, keeping secrets out of the audit trail.
	DigestToken(token string) string
}

// AuditService records audited actions asynchronously.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// IdempotencyCache is the redis fast path for gateway-correlated wallet
// mutations; the (origin_ref, type) constraint remains the authority.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil when absent
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
