package postgres

import (
	"context"
	"errors"
	"fmt"

	"recycle-marketplace/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// Create inserts the order and its line items within a database
// transaction. The state history entry is appended separately.
func (r *OrderRepo) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	query := `INSERT INTO orders (id, customer_id, agent_id, current_state, address_id, payment_method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		order.ID, order.CustomerID, order.AgentID, order.State,
		order.AddressID, order.PaymentMethod, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (id, order_id, catalog_item_id, quantity, unit, points_rate, price_rate, points, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, li := range order.Items {
		_, err := tx.Exec(ctx, itemQuery,
			li.ID, order.ID, li.CatalogItemID, li.Quantity, li.Unit,
			li.PointsRate, li.PriceRate, li.Points, li.Price,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// GetByID fetches the full order aggregate: row, line items, and the
// state history ordered oldest first.
func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT id, customer_id, agent_id, current_state, address_id, payment_method, created_at, updated_at
		FROM orders WHERE id = $1`

	o := &domain.Order{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.CustomerID, &o.AgentID, &o.State,
		&o.AddressID, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}

	if o.Items, err = r.loadItems(ctx, id); err != nil {
		return nil, err
	}
	if o.History, err = r.loadHistory(ctx, id); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateState writes next only if the row still holds prev. A zero
// rows-affected result means a concurrent transition won; the caller
// maps that to its stale-state error.
func (r *OrderRepo) UpdateState(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, prev, next domain.OrderState, agentID *uuid.UUID) (bool, error) {
	query := `UPDATE orders
		SET current_state = $1, agent_id = COALESCE($2, agent_id), updated_at = NOW()
		WHERE id = $3 AND current_state = $4`

	tag, err := tx.Exec(ctx, query, next, agentID, orderID, prev)
	if err != nil {
		return false, fmt.Errorf("update order state: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AppendHistory inserts one state history entry.
func (r *OrderRepo) AppendHistory(ctx context.Context, tx pgx.Tx, entry *domain.StateEntry) error {
	query := `INSERT INTO order_events (id, order_id, state, actor_id, actor_role, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		entry.ID, entry.OrderID, entry.State, entry.ActorID,
		entry.ActorRole, entry.Reason, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order event: %w", err)
	}
	return nil
}

// ListByCustomer returns the customer's order rows, newest first.
func (r *OrderRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]domain.Order, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE customer_id = $1`, customerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders by customer: %w", err)
	}

	query := `SELECT id, customer_id, agent_id, current_state, address_id, payment_method, created_at, updated_at
		FROM orders WHERE customer_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, customerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders by customer: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListByState returns order rows in the given state, newest first.
func (r *OrderRepo) ListByState(ctx context.Context, state domain.OrderState, page, pageSize int) ([]domain.Order, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE current_state = $1`, state).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders by state: %w", err)
	}

	query := `SELECT id, customer_id, agent_id, current_state, address_id, payment_method, created_at, updated_at
		FROM orders WHERE current_state = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, state, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders by state: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderRepo) loadItems(ctx context.Context, orderID uuid.UUID) ([]domain.LineItem, error) {
	query := `SELECT id, catalog_item_id, quantity, unit, points_rate, price_rate, points, price
		FROM order_items WHERE order_id = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var li domain.LineItem
		if err := rows.Scan(&li.ID, &li.CatalogItemID, &li.Quantity, &li.Unit,
			&li.PointsRate, &li.PriceRate, &li.Points, &li.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func (r *OrderRepo) loadHistory(ctx context.Context, orderID uuid.UUID) ([]domain.StateEntry, error) {
	query := `SELECT id, order_id, state, actor_id, actor_role, reason, created_at
		FROM order_events WHERE order_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order history: %w", err)
	}
	defer rows.Close()

	var history []domain.StateEntry
	for rows.Next() {
		var e domain.StateEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.State, &e.ActorID,
			&e.ActorRole, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order event: %w", err)
		}
		history = append(history, e)
	}
	return history, rows.Err()
}

func scanOrders(rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.AgentID, &o.State,
			&o.AddressID, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
