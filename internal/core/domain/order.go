package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderState represents the lifecycle state of a pickup order.
type OrderState string

const (
	OrderStateRequested  OrderState = "requested"
	OrderStateAssigned   OrderState = "assigned"
	OrderStateInProgress OrderState = "in_progress"
	OrderStateCompleted  OrderState = "completed"
	OrderStateCancelled  OrderState = "cancelled"
)

// IsTerminal returns true if no transition may leave this state.
func (s OrderState) IsTerminal() bool {
	return s == OrderStateCompleted || s == OrderStateCancelled
}

// Role represents the authenticated actor's role, supplied by the
// authentication boundary and trusted as given.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleDelivery Role = "delivery"
	RoleAdmin    Role = "admin"
	RoleNone     Role = "none"
)

// Actor is the authenticated identity attached to a transition request.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// orderEdges is the full transition graph, independent of roles.
var orderEdges = map[OrderState][]OrderState{
	OrderStateRequested:  {OrderStateAssigned, OrderStateCancelled},
	OrderStateAssigned:   {OrderStateInProgress, OrderStateCancelled},
	OrderStateInProgress: {OrderStateCompleted, OrderStateCancelled},
}

// roleEdges gates each edge by actor role:
//   - customer may cancel from requested or assigned only;
//   - delivery agent advances assigned -> in_progress -> completed;
//   - admin assigns agents and may force-cancel any non-terminal order.
var roleEdges = map[Role]map[OrderState][]OrderState{
	RoleCustomer: {
		OrderStateRequested: {OrderStateCancelled},
		OrderStateAssigned:  {OrderStateCancelled},
	},
	RoleDelivery: {
		OrderStateAssigned:   {OrderStateInProgress},
		OrderStateInProgress: {OrderStateCompleted},
	},
	RoleAdmin: {
		OrderStateRequested:  {OrderStateAssigned, OrderStateCancelled},
		OrderStateAssigned:   {OrderStateCancelled},
		OrderStateInProgress: {OrderStateCancelled},
	},
}

// EdgeExists reports whether from -> to is part of the transition graph
// for any role.
func EdgeExists(from, to OrderState) bool {
	for _, next := range orderEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the set of states the given role may move an
// order into from the current state.
func AllowedTransitions(role Role, from OrderState) []OrderState {
	return roleEdges[role][from]
}

// TransitionAllowed reports whether the role may take the from -> to edge.
func TransitionAllowed(role Role, from, to OrderState) bool {
	for _, next := range AllowedTransitions(role, from) {
		if next == to {
			return true
		}
	}
	return false
}

// MeasurementUnit is how a catalog item is quantified.
type MeasurementUnit string

const (
	UnitKilogram MeasurementUnit = "kg"
	UnitPiece    MeasurementUnit = "piece"
)

// PaymentMethod determines how a settled order pays out.
type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodCash   PaymentMethod = "cash"
)

// LineItem is one recyclable entry of an order. Rates are snapshots of
// the catalog at order-creation time and are never re-read, so
// settlement stays deterministic and auditable.
type LineItem struct {
	ID            uuid.UUID       `json:"id"`
	CatalogItemID uuid.UUID       `json:"catalog_item_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          MeasurementUnit `json:"unit"`
	PointsRate    decimal.Decimal `json:"points_rate"` // points per unit
	PriceRate     decimal.Decimal `json:"price_rate"`  // currency per unit
	Points        decimal.Decimal `json:"points"`      // quantity * points_rate
	Price         decimal.Decimal `json:"price"`       // quantity * price_rate
}

// ComputeValues fills Points and Price from the captured rates.
func (li *LineItem) ComputeValues() {
	li.Points = li.Quantity.Mul(li.PointsRate)
	li.Price = li.Quantity.Mul(li.PriceRate)
}

// StateEntry is one append-only record of the order's state history.
type StateEntry struct {
	ID        uuid.UUID  `json:"id"`
	OrderID   uuid.UUID  `json:"order_id"`
	State     OrderState `json:"state"`
	ActorID   uuid.UUID  `json:"actor_id"`
	ActorRole Role       `json:"actor_role"`
	Reason    *string    `json:"reason,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Order is a pickup order. History is append-only; State always equals
// the last history entry's state.
type Order struct {
	ID            uuid.UUID     `json:"id"`
	CustomerID    uuid.UUID     `json:"customer_id"`
	AgentID       *uuid.UUID    `json:"agent_id,omitempty"` // nil until assigned
	Items         []LineItem    `json:"items"`
	State         OrderState    `json:"state"`
	History       []StateEntry  `json:"history"`
	AddressID     uuid.UUID     `json:"address_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// TotalPoints sums line-item point values. Immutable once the order
// reaches completed because the item snapshots never change.
func (o *Order) TotalPoints() decimal.Decimal {
	total := decimal.Zero
	for _, li := range o.Items {
		total = total.Add(li.Points)
	}
	return total
}

// TotalPrice sums line-item price values.
func (o *Order) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, li := range o.Items {
		total = total.Add(li.Price)
	}
	return total
}

// IsOwnedBy reports whether the customer owns this order.
func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.CustomerID == userID
}

// IsAssignedTo reports whether the delivery agent is assigned to this order.
func (o *Order) IsAssignedTo(agentID uuid.UUID) bool {
	return o.AgentID != nil && *o.AgentID == agentID
}
