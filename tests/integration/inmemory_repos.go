package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"recycle-marketplace/internal/core/domain"
	"recycle-marketplace/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return fmt.Errorf("email already exists")
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryUserRepo) UpdateRefreshTokenHash(ctx context.Context, id uuid.UUID, hash *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.RefreshTokenHash = hash
	return nil
}

func (r *inMemoryUserRepo) ApproveAgent(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.AgentApproved = true
	return nil
}

// --- In-Memory Order Repo ---

type inMemoryOrderRepo struct {
	mu      sync.RWMutex
	orders  map[uuid.UUID]*domain.Order
	history map[uuid.UUID][]domain.StateEntry
}

func newInMemoryOrderRepo() *inMemoryOrderRepo {
	return &inMemoryOrderRepo{
		orders:  make(map[uuid.UUID]*domain.Order),
		history: make(map[uuid.UUID][]domain.StateEntry),
	}
}

func (r *inMemoryOrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	cp.Items = append([]domain.LineItem(nil), o.Items...)
	cp.History = nil
	r.orders[o.ID] = &cp
	return nil
}

func (r *inMemoryOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	cp.Items = append([]domain.LineItem(nil), o.Items...)
	cp.History = append([]domain.StateEntry(nil), r.history[id]...)
	return &cp, nil
}

// UpdateState is a compare-and-set on the current state, matching the
// conditional UPDATE the postgres repo issues. Exactly one of two
// racing transitions can observe prev and win.
func (r *inMemoryOrderRepo) UpdateState(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, prev, next domain.OrderState, agentID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.State != prev {
		return false, nil
	}
	o.State = next
	if agentID != nil {
		o.AgentID = agentID
	}
	return true, nil
}

func (r *inMemoryOrderRepo) AppendHistory(ctx context.Context, tx pgx.Tx, entry *domain.StateEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[entry.OrderID] = append(r.history[entry.OrderID], *entry)
	return nil
}

func (r *inMemoryOrderRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]domain.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Order
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			result = append(result, *o)
		}
	}
	return paginateOrders(result, page, pageSize)
}

func (r *inMemoryOrderRepo) ListByState(ctx context.Context, state domain.OrderState, page, pageSize int) ([]domain.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Order
	for _, o := range r.orders {
		if o.State == state {
			result = append(result, *o)
		}
	}
	return paginateOrders(result, page, pageSize)
}

func paginateOrders(orders []domain.Order, page, pageSize int) ([]domain.Order, int64, error) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	total := int64(len(orders))
	start := (page - 1) * pageSize
	if start >= len(orders) {
		return []domain.Order{}, total, nil
	}
	end := start + pageSize
	if end > len(orders) {
		end = len(orders)
	}
	return orders[start:end], total, nil
}

// --- In-Memory Wallet Account Repo ---

type inMemoryWalletAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.WalletAccount
}

func newInMemoryWalletAccountRepo() *inMemoryWalletAccountRepo {
	return &inMemoryWalletAccountRepo{accounts: make(map[uuid.UUID]*domain.WalletAccount)}
}

func (r *inMemoryWalletAccountRepo) Create(ctx context.Context, a *domain.WalletAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *inMemoryWalletAccountRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.WalletAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletAccountRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.WalletAccount, error) {
	return r.GetByUserID(ctx, userID)
}

// UpdateBalance applies the version check the postgres repo expresses
// as `WHERE version = $3`, so stale writers lose here too.
func (r *inMemoryWalletAccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, balance decimal.Decimal, version int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok || a.Version != version {
		return false, nil
	}
	a.Balance = balance
	a.Version++
	return true, nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu      sync.RWMutex
	entries []domain.WalletTransaction
	origins map[string]int // "(ref)|(type)" -> index into entries
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{origins: make(map[string]int)}
}

func originKey(ref string, txType domain.TransactionType) string {
	return ref + "|" + string(txType)
}

func (r *inMemoryLedgerRepo) Create(ctx context.Context, tx pgx.Tx, txn *domain.WalletTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if txn.OriginRef != nil {
		key := originKey(*txn.OriginRef, txn.Type)
		if _, exists := r.origins[key]; exists {
			return ports.ErrDuplicateOrigin
		}
		r.origins[key] = len(r.entries)
	}
	r.entries = append(r.entries, *txn)
	return nil
}

func (r *inMemoryLedgerRepo) GetByOrigin(ctx context.Context, originRef string, txType domain.TransactionType) (*domain.WalletTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.origins[originKey(originRef, txType)]
	if !ok {
		return nil, nil
	}
	cp := r.entries[idx]
	return &cp, nil
}

func (r *inMemoryLedgerRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.WalletTransaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WalletTransaction
	for _, e := range r.entries {
		if e.AccountID == accountID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	total := int64(len(result))
	start := (page - 1) * pageSize
	if start >= len(result) {
		return []domain.WalletTransaction{}, total, nil
	}
	end := start + pageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *inMemoryLedgerRepo) SumByAccount(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := decimal.Zero
	for _, e := range r.entries {
		if e.AccountID == accountID {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

// --- In-Memory Notification Repo ---

type inMemoryNotificationRepo struct {
	mu            sync.RWMutex
	notifications []*domain.Notification
}

func newInMemoryNotificationRepo() *inMemoryNotificationRepo {
	return &inMemoryNotificationRepo{}
}

func (r *inMemoryNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	r.notifications = append(r.notifications, &cp)
	return nil
}

func (r *inMemoryNotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.ID == id && n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (r *inMemoryNotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (r *inMemoryNotificationRepo) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, n := range r.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *inMemoryNotificationRepo) List(ctx context.Context, userID uuid.UUID, limit int, before *ports.NotificationCursor) ([]domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Notification
	for _, n := range r.notifications {
		if n.UserID != userID {
			continue
		}
		if before != nil {
			// Keyset predicate: (created_at, id) < (cursor.created_at, cursor.id)
			if n.CreatedAt.After(before.CreatedAt) {
				continue
			}
			if n.CreatedAt.Equal(before.CreatedAt) && n.ID.String() >= before.ID.String() {
				continue
			}
		}
		result = append(result, *n)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() > result[j].ID.String()
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.RWMutex
	entries []domain.AuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *log)
	return nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
