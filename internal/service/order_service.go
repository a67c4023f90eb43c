package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recycle-marketplace/internal/core/domain"
	"recycle-marketplace/internal/core/ports"
	"recycle-marketplace/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// transitionNotice is the bilingual template emitted for a state change.
type transitionNotice struct {
	title domain.LocalizedText
	body  domain.LocalizedText
}

var transitionNotices = map[domain.OrderState]transitionNotice{
	domain.OrderStateRequested: {
		title: domain.LocalizedText{Primary: "Pickup requested", Secondary: "تم استلام طلبك"},
		body:  domain.LocalizedText{Primary: "Your pickup request was received and is awaiting assignment.", Secondary: "تم استلام طلب الاستلام الخاص بك وهو في انتظار التعيين."},
	},
	domain.OrderStateAssigned: {
		title: domain.LocalizedText{Primary: "Agent assigned", Secondary: "تم تعيين مندوب"},
		body:  domain.LocalizedText{Primary: "A delivery agent has been assigned to your pickup.", Secondary: "تم تعيين مندوب توصيل لطلبك."},
	},
	domain.OrderStateInProgress: {
		title: domain.LocalizedText{Primary: "Pickup in progress", Secondary: "جاري الاستلام"},
		body:  domain.LocalizedText{Primary: "Your delivery agent is on the way to collect your items.", Secondary: "المندوب في الطريق لاستلام المواد."},
	},
	domain.OrderStateCompleted: {
		title: domain.LocalizedText{Primary: "Pickup completed", Secondary: "اكتمل الاستلام"},
		body:  domain.LocalizedText{Primary: "Your items were collected and your wallet has been credited.", Secondary: "تم استلام المواد وإضافة الرصيد إلى محفظتك."},
	},
	domain.OrderStateCancelled: {
		title: domain.LocalizedText{Primary: "Order cancelled", Secondary: "تم إلغاء الطلب"},
		body:  domain.LocalizedText{Primary: "Your pickup order has been cancelled.", Secondary: "تم إلغاء طلب الاستلام الخاص بك."},
	},
}

// OrderServiceImpl implements ports.OrderService: the order state
// machine. Transitions are validated against the role-gated edge table,
// persisted with the previous state as an optimistic precondition, and
// composed with settlement on completion inside one database
// transaction. Exactly one notification is emitted per committed
// transition, after the commit.
type OrderServiceImpl struct {
	orderRepo     ports.OrderRepository
	userRepo      ports.UserRepository
	settleSvc     ports.SettlementService
	notifySvc     ports.NotificationService
	transactor    ports.DBTransactor
	minReasonLen  int
	notifyRetries int
	log           zerolog.Logger
}

// NewOrderService creates a new OrderServiceImpl.
func NewOrderService(
	orderRepo ports.OrderRepository,
	userRepo ports.UserRepository,
	settleSvc ports.SettlementService,
	notifySvc ports.NotificationService,
	transactor ports.DBTransactor,
	minReasonLen int,
	notifyRetries int,
	log zerolog.Logger,
) *OrderServiceImpl {
	return &OrderServiceImpl{
		orderRepo:     orderRepo,
		userRepo:      userRepo,
		settleSvc:     settleSvc,
		notifySvc:     notifySvc,
		transactor:    transactor,
		minReasonLen:  minReasonLen,
		notifyRetries: notifyRetries,
		log:           log,
	}
}

// Create builds a new order in the requested state. Catalog rates arrive
// as snapshots in the request and are frozen into the line items.
func (s *OrderServiceImpl) Create(ctx context.Context, req ports.CreateOrderRequest) (*domain.Order, error) {
	if len(req.Items) == 0 {
		return nil, apperror.ErrEmptyOrder()
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:            uuid.New(),
		CustomerID:    req.CustomerID,
		State:         domain.OrderStateRequested,
		AddressID:     req.AddressID,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for _, in := range req.Items {
		if in.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, apperror.Validation("line item quantity must be positive")
		}
		li := domain.LineItem{
			ID:            uuid.New(),
			CatalogItemID: in.CatalogItemID,
			Quantity:      in.Quantity,
			Unit:          in.Unit,
			PointsRate:    in.PointsRate,
			PriceRate:     in.PriceRate,
		}
		li.ComputeValues()
		order.Items = append(order.Items, li)
	}

	entry := &domain.StateEntry{
		ID:        uuid.New(),
		OrderID:   order.ID,
		State:     domain.OrderStateRequested,
		ActorID:   req.CustomerID,
		ActorRole: domain.RoleCustomer,
		CreatedAt: now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.orderRepo.Create(ctx, dbTx, order); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create order: %w", err))
	}
	if err := s.orderRepo.AppendHistory(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append history: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	order.History = []domain.StateEntry{*entry}

	s.emitNotification(ctx, order.CustomerID, domain.OrderStateRequested, order.ID)

	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("customer_id", req.CustomerID.String()).
		Int("items", len(order.Items)).
		Msg("order created")

	return order, nil
}

// Transition validates and applies one state change per the contract:
// edge must exist, the actor's role must be authorized for it, and the
// persisted write carries the previous state as precondition. A
// transition into completed settles the order within the same database
// transaction, so both become visible together or not at all.
func (s *OrderServiceImpl) Transition(ctx context.Context, req ports.TransitionRequest) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}

	from := order.State
	if !domain.EdgeExists(from, req.Target) || !domain.TransitionAllowed(req.Actor.Role, from, req.Target) {
		return nil, apperror.ErrInvalidTransition(string(from), string(req.Target))
	}

	if err := s.checkActor(ctx, order, req.Actor); err != nil {
		return nil, err
	}

	var reason *string
	if req.Target == domain.OrderStateCancelled {
		trimmed := ""
		if req.Reason != nil {
			trimmed = strings.TrimSpace(*req.Reason)
		}
		if len([]rune(trimmed)) < s.minReasonLen {
			return nil, apperror.ErrReasonTooShort(s.minReasonLen)
		}
		reason = &trimmed
	}

	var agentID *uuid.UUID
	if req.Target == domain.OrderStateAssigned {
		agentID, err = s.resolveAgent(ctx, req.AgentID)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	entry := &domain.StateEntry{
		ID:        uuid.New(),
		OrderID:   order.ID,
		State:     req.Target,
		ActorID:   req.Actor.ID,
		ActorRole: req.Actor.Role,
		Reason:    reason,
		CreatedAt: now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	applied, err := s.orderRepo.UpdateState(ctx, dbTx, order.ID, from, req.Target, agentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update state: %w", err))
	}
	if !applied {
		// A concurrent transition committed first; caller must re-read.
		return nil, apperror.ErrStaleState()
	}

	if err := s.orderRepo.AppendHistory(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append history: %w", err))
	}

	if req.Target == domain.OrderStateCompleted {
		if _, err := s.settleSvc.Settle(ctx, dbTx, order); err != nil {
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Code == "WAL_002" {
				// Settlement already applied by an earlier replay of this
				// transition; benign, the state change still commits.
				s.log.Warn().Str("order_id", order.ID.String()).Msg("settlement already applied, continuing")
			} else {
				return nil, err
			}
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	order.State = req.Target
	order.History = append(order.History, *entry)
	order.UpdatedAt = now
	if agentID != nil {
		order.AgentID = agentID
	}

	// Post-commit so a notification never references a transition that
	// did not durably happen.
	s.emitNotification(ctx, order.CustomerID, req.Target, order.ID)

	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("from", string(from)).
		Str("to", string(req.Target)).
		Str("actor_role", string(req.Actor.Role)).
		Msg("order transition applied")

	return order, nil
}

// GetByID returns the order when the actor is its customer, its assigned
// agent, or an admin.
func (s *OrderServiceImpl) GetByID(ctx context.Context, id uuid.UUID, actor domain.Actor) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}

	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleCustomer:
		if !order.IsOwnedBy(actor.ID) {
			return nil, apperror.ErrForbidden()
		}
	case domain.RoleDelivery:
		if !order.IsAssignedTo(actor.ID) {
			return nil, apperror.ErrForbidden()
		}
	default:
		return nil, apperror.ErrForbidden()
	}

	return order, nil
}

// ListByCustomer returns the customer's orders, newest first.
func (s *OrderServiceImpl) ListByCustomer(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]domain.Order, int64, error) {
	orders, total, err := s.orderRepo.ListByCustomer(ctx, customerID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list orders: %w", err))
	}
	return orders, total, nil
}

// ListByState returns orders in the given state, newest first.
func (s *OrderServiceImpl) ListByState(ctx context.Context, state domain.OrderState, page, pageSize int) ([]domain.Order, int64, error) {
	orders, total, err := s.orderRepo.ListByState(ctx, state, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list orders: %w", err))
	}
	return orders, total, nil
}

// checkActor enforces entity-level access on top of the role table:
// customers act on their own orders, agents on orders assigned to them
// and only once approved.
func (s *OrderServiceImpl) checkActor(ctx context.Context, order *domain.Order, actor domain.Actor) error {
	switch actor.Role {
	case domain.RoleCustomer:
		if !order.IsOwnedBy(actor.ID) {
			return apperror.ErrForbidden()
		}
	case domain.RoleDelivery:
		if !order.IsAssignedTo(actor.ID) {
			return apperror.ErrForbidden()
		}
		agent, err := s.userRepo.GetByID(ctx, actor.ID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("load agent: %w", err))
		}
		if agent == nil || !agent.CanTransition() {
			return apperror.ErrAgentNotApproved()
		}
	}
	return nil
}

// resolveAgent validates the assignment target supplied by the
// assignment collaborator.
func (s *OrderServiceImpl) resolveAgent(ctx context.Context, agentID *uuid.UUID) (*uuid.UUID, error) {
	if agentID == nil {
		return nil, apperror.Validation("agent_id is required for assignment")
	}
	agent, err := s.userRepo.GetByID(ctx, *agentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load agent: %w", err))
	}
	if agent == nil || agent.Role != domain.RoleDelivery {
		return nil, apperror.ErrNotFound("Delivery agent")
	}
	if !agent.AgentApproved {
		return nil, apperror.ErrAgentNotApproved()
	}
	return agentID, nil
}

// emitNotification enqueues the per-transition alert. Failures are
// retried a bounded number of times and then dropped with a log line;
// the committed state change is never rolled back or blocked.
func (s *OrderServiceImpl) emitNotification(ctx context.Context, userID uuid.UUID, state domain.OrderState, orderID uuid.UUID) {
	notice, ok := transitionNotices[state]
	if !ok {
		return
	}

	var err error
	for attempt := 0; attempt <= s.notifyRetries; attempt++ {
		_, err = s.notifySvc.Notify(ctx, userID, domain.NotificationTypeOrderUpdate, notice.title, notice.body, &orderID)
		if err == nil {
			return
		}
		s.log.Warn().Err(err).
			Str("order_id", orderID.String()).
			Str("state", string(state)).
			Int("attempt", attempt+1).
			Msg("notification enqueue failed, retrying")
	}

	s.log.Error().Err(err).
		Str("order_id", orderID.String()).
		Str("state", string(state)).
		Msg("notification dropped after retries")
}
