package service

import (
	"context"
	"testing"

	"recycle-marketplace/internal/core/domain"
	"recycle-marketplace/internal/core/ports"
	"recycle-marketplace/internal/core/ports/mocks"
	"recycle-marketplace/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type orderTestDeps struct {
	svc        *OrderServiceImpl
	orderRepo  *mocks.MockOrderRepository
	userRepo   *mocks.MockUserRepository
	settleSvc  *mocks.MockSettlementService
	notifySvc  *mocks.MockNotificationService
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupOrderService(t *testing.T) *orderTestDeps {
	ctrl := gomock.NewController(t)
	d := &orderTestDeps{
		orderRepo:  mocks.NewMockOrderRepository(ctrl),
		userRepo:   mocks.NewMockUserRepository(ctrl),
		settleSvc:  mocks.NewMockSettlementService(ctrl),
		notifySvc:  mocks.NewMockNotificationService(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewOrderService(
		d.orderRepo, d.userRepo, d.settleSvc, d.notifySvc, d.transactor,
		5, 3, zerolog.Nop(),
	)
	return d
}

func (d *orderTestDeps) expectNotify(target domain.NotificationType) {
	d.notifySvc.EXPECT().
		Notify(gomock.Any(), gomock.Any(), target, gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&domain.Notification{}, nil)
}

func testStoredOrder(state domain.OrderState, customerID uuid.UUID, agentID *uuid.UUID) *domain.Order {
	order := &domain.Order{
		ID:         uuid.New(),
		CustomerID: customerID,
		AgentID:    agentID,
		State:      state,
	}
	order.Items = []domain.LineItem{
		{ID: uuid.New(), Quantity: decimal.RequireFromString("4"), PointsRate: decimal.RequireFromString("2.5"), Points: decimal.RequireFromString("10")},
		{ID: uuid.New(), Quantity: decimal.RequireFromString("2"), PointsRate: decimal.RequireFromString("5"), Points: decimal.RequireFromString("10")},
	}
	return order
}

func approvedAgent(id uuid.UUID) *domain.User {
	return &domain.User{ID: id, Role: domain.RoleDelivery, AgentApproved: true}
}

// ==================== Create Tests ====================

func TestOrderService_Create_Success(t *testing.T) {
	d := setupOrderService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()
	tx := &mockTx{}

	req := ports.CreateOrderRequest{
		CustomerID:    customerID,
		AddressID:     uuid.New(),
		PaymentMethod: domain.PaymentMethodWallet,
		Items: []ports.LineItemInput{
			{CatalogItemID: uuid.New(), Quantity: decimal.RequireFromString("4"), Unit: domain.UnitKilogram, PointsRate: decimal.RequireFromString("2.5"), PriceRate: decimal.RequireFromString("1")},
			{CatalogItemID: uuid.New(), Quantity: decimal.RequireFromString("2"), Unit: domain.UnitPiece, PointsRate: decimal.RequireFromString("5"), PriceRate: decimal.RequireFromString("2")},
		},
	}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.orderRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.orderRepo.EXPECT().AppendHistory(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, entry *domain.StateEntry) error {
			assert.Equal(t, domain.OrderStateRequested, entry.State)
			assert.Equal(t, customerID, entry.ActorID)
			return nil
		})
	d.expectNotify(domain.NotificationTypeOrderUpdate)

	order, err := d.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateRequested, order.State)
	assert.Len(t, order.History, 1)
	assert.True(t, order.TotalPoints().Equal(decimal.RequireFromString("20")), "4kg*2.5 + 2pc*5 = 20 points")
}

func TestOrderService_Create_EmptyItems(t *testing.T) {
	d := setupOrderService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.Create(context.Background(), ports.CreateOrderRequest{CustomerID: uuid.New()})
	assertAppError(t, err, "ORD_005")
}

func TestOrderService_Create_NonPositiveQuantity(t *testing.T) {
	d := setupOrderService(t)
	defer d.ctrl.Finish()

	req := ports.CreateOrderRequest{
		CustomerID: uuid.New(),
		Items: []ports.LineItemInput{
			{CatalogItemID: uuid.New(), Quantity: decimal.Zero, Unit: domain.UnitKilogram},
		},
	}
	_, err := d.svc.Create(context.Background(), req)
	assertAppError(t, err, "VAL_001")
}

// ==================== Transition Tests ====================

func TestOrderService_Transition_AdminAssigns(t *testing.T) {
	d := setupOrderService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	customerID := uuid.New()
	agentID := uuid.New()
	admin := domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin}
	order := testStoredOrder(domain.OrderStateRequested, customerID, nil)

	d.orderRepo.EXPECT().GetByID(ctx, order.ID).Return(order, nil)
	d.userRepo.EXPECT().GetByID(ctx, agentID).Return(approvedAgent(agentID), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.orderRepo.EXPECT().
		UpdateState(ctx, tx, order.ID, domain.OrderStateRequested, domain.OrderStateAssigned, &agentID).
		Return(true, nil)
	d.orderRepo.EXPECT().AppendHistory(ctx, tx, gomock.Any()).Return(nil)
	d.expectNotify(domain.NotificationTypeOrderUpdate)

	updated, err := d.svc.Transition(ctx, ports.TransitionRequest{
		OrderID: order.ID,
		Target:  domain.OrderStateAssigned,
		Actor:   admin,
		AgentID: &agentID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateAssigned, updated.State)
	require.NotNil(t, updated.AgentID)
	assert.Equal(t, agentID, *updated.AgentID)
}

func TestOrderService_Transition_AgentStartsPickup(t *testing.T) {
	d := setupOrderService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	agentID := uuid.New()
	order := testStoredOrder(domain.OrderStateAssigned, uuid.New(), &agentID)

	d.orderRepo.EXPECT().GetByID(ctx, order.ID).Return(order, nil)
	d.userRepo.EXPECT().GetByID(ctx, agentID).Return(approvedAgent(agentID), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.orderRepo.EXPECT().
		UpdateState(ctx, tx, order.ID, domain.OrderStateAssigned, domain.OrderStateInProgress, nil).
		Return(true, nil)
	d.orderRepo.EXPECT().AppendHistory(ctx, tx, gomock.Any()).Return(nil)
	d.expectNotify(domain.NotificationTypeOrderUpdate)

	updated, err := d.svc.Transition(ctx, ports.TransitionRequest{
		OrderID: order.ID,
		Target:  domain.OrderStateInProgress,
		Actor:   domain.Actor{ID: agentID, Role: domain.RoleDelivery},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateInProgress, updated.State)
}

func TestOrderService_Transition_CompleteSettlesInSameTx(t *testing.T) {
	d := setupOrderService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	agentID := uuid.New()
	order := testStoredOrder(domain.OrderStateInProgress, uuid.New(), &agentID)

	d.orderRepo.EXPECT().GetByID(ctx, order.ID).Return(order, nil)
	d.userRepo.EXPECT().GetByID(ctx, agentID).Return(approvedAgent(agentID), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.orderRepo.EXPECT().
		UpdateState(ctx, tx, order.ID, domain.OrderStateInProgress, domain.OrderStateCompleted, nil).
		Return(true, nil)
	d.orderRepo.EXPECT().AppendHistory(ctx, tx, gomock.Any()).Return(nil)
	// Settlement runs on the same tx handle as the state write.
	d.settleSvc.EXPECT().Settle(ctx, tx, order).
		Return(&domain.WalletTransaction{ID: uuid.New(), Amount: decimal.RequireFromString("20")}, nil)
	d.expectNotify(domain.NotificationTypeOrderUpdate)

	updated, err := d.svc.Transition(ctx, ports.TransitionRequest{
		OrderID: order.ID,
		Target:  domain.OrderStateCompleted,
		Actor:   domain.Actor{ID: agentID, Role: domain.RoleDelivery},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateCompleted, updated.State)
}

func TestOrderService_Transition_CompleteReplayDuplicateIsBenign(t *testing.T) {
	d := setupOrderService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	agentID := uuid.New()
	order := testStoredOrder(domain.OrderStateInProgress, uuid.New(), &agentID)

	d.orderRepo.EXPECT().GetByID(ctx, order.ID).Return(order, nil)
	d.userRepo.EXPECT().GetByID(ctx, agentID).Return(approvedAgent(agentID), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.orderRepo.EXPECT().UpdateState(ctx, tx, order.ID, domain.OrderStateInProgress, domain.OrderStateCompleted, nil).Return(true, nil)
	d.orderRepo.EXPECT().AppendHistory(ctx, tx, gomock.Any()).Return(nil)
	d.settleSvc.EXPECT().Settle(ctx, tx, order).Return(nil, apperror.ErrDuplicateSettlement())
	d.expectNotify(domain.NotificationTypeOrderUpdate)

	_, err := d.svc.Transition(ctx, ports.TransitionRequest{
		OrderID: order.ID,
		Target:  domain.OrderStateCompleted,
		Actor:   domain.Actor{ID: agentID, Role: domain.RoleDelivery},
	})
	require.NoError(t, err, "already-settled replay still commits the state change")
}

func TestOrderService_Transition_CustomerCancelsWithReason(t *testing.T) {
	d := setupOrderService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	customerID := uuid.New()
	order := testStoredOrder(domain.OrderStateRequested, customerID, nil)
	reason := "changed my mind about the pickup"

	d.orderRepo.EXPECT().GetByID(ctx, order.ID).Return(order, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.orderRepo.EXPECT().UpdateState(ctx, tx, order.ID, domain.OrderStateRequested, domain.OrderStateCancelled, nil).Return(true, nil)
	d.orderRepo.EXPECT().AppendHistory(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, entry *domain.StateEntry) error {
			require.NotNil(t, entry.Reason)
			assert.Equal(t, reason, *entry.Reason)
			return nil
		})
	d.expectNotify(domain.NotificationTypeOrderUpdate)

	updated, err := d.svc.Transition(ctx, ports.TransitionRequest{
		OrderID: order.ID,
		Target:  domain.OrderStateCancelled,
		Actor:   domain.Actor{ID: customerID, Role: domain.RoleCustomer},
		Reason:  &reason,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateCancelled, updated.State)
}

func TestOrderService_Transition_CancelReasonTooShort(t *testing.T) {
	d := setupOrderService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()
	order := testStoredOrder(domain.OrderStateRequested, customerID, nil)
	short := "  no  " // trims below the minimum

	d.orderRepo.EXPECT().GetByID(ctx, order.ID).Return(order, nil)

	_, err := d.svc.Transition(ctx, ports.TransitionRequest{
		OrderID: order.ID,
		Target:  domain.OrderStateCancelled,
		Actor:   domain.Actor{ID: customerID, Role: domain.RoleCustomer},
		Reason:  &short,
	})
	assertAppError(t, err, "ORD_003")
}

func TestOrderService_Transition_CancelMissingReason(t *testing.T) {
	d := setupOrderService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()
	order := testStoredOrder(domain.OrderStateRequested, customerID, nil)

	d.orderRepo.EXPECT().GetByID(ctx, order.ID).Return(order, nil)

	_, err := d.svc.Transition(ctx, ports.TransitionRequest{
		OrderID: order.ID,
		Target:  domain.OrderStateCancelled,
		Actor:   domain.Actor{ID: customerID, Role: domain.RoleCustomer},
	})
	assertAppError(t, err, "ORD_003")
}

func TestOrderService_Transition_InvalidEdge(t *testing.T) {
	d := setupOrderService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	order := testStoredOrder(domain.OrderStateRequested, uuid.New(), nil)

	d.orderRepo.EXPECT().GetByID(ctx, order.ID).Return(order, nil)

	_, err := d.svc.Transition(ctx, ports.TransitionRequest{
		OrderID: order.ID,
		Target:  domain.OrderStateCompleted,
		Actor:   domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin},
	})
	assertAppError(t, err, "ORD_001")
}

func TestOrderService_Transition_TerminalStateRejected(t *testing.T) {
	d := setupOrderService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	order := testStoredOrder(domain.OrderStateCompleted, uuid.New(), nil)

	d.orderRepo.EXPECT().GetByID(ctx, order.ID).Return(order, nil)

	_, err := d.svc.Transition(ctx, ports.TransitionRequest{
		OrderID: order.ID,
		Target:  domain.OrderStateCancelled,
		Actor:   domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin},
	})
	assertAppError(t, err, "ORD_001")
}

func TestOrderService_Transition_RoleGateBlocksCustomer(t *testing.T) {
	d := setupOrderService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customerID := uuid.New()
	order := testStoredOrder(domain.OrderStateInProgress, customerID, nil)

	d.orderRepo.EXPECT().GetByID(ctx, order.ID).Return(order, nil)

	// The edge in_progress -> cancelled exists for admin, not customer.
	_, err := d.svc.Transition(ctx, ports.TransitionRequest{
		OrderID: order.ID,
		Target:  domain.OrderStateCancelled,
		Actor:   domain.Actor{ID: customerID, Role: domain.RoleCustomer},
	})
	assertAppError(t, err, "ORD_001")
}

func TestOrderService_Transition_ForeignOrderForbidden(t *testing.T) {
	d := setupOrderService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	order := testStoredOrder(domain.OrderStateRequested, uuid.New(), nil)
	reason := "cancelling a stranger's order"

	d.orderRepo.EXPECT().GetByID(ctx, order.ID).Return(order, nil)

	_, err := d.svc.Transition(ctx, ports.TransitionRequest{
		OrderID: order.ID,
		Target:  domain.OrderStateCancelled,
		Actor:   domain.Actor{ID: uuid.New(), Role: domain.RoleCustomer},
		Reason:  &reason,
	})
	assertAppError(t, err, "AUTH_004")
}

func TestOrderService_Transition_UnapprovedAgentBlocked(t *testing.T) {
	d := setupOrderService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	agentID := uuid.New()
	order := testStoredOrder(domain.OrderStateAssigned, uuid.New(), &agentID)

	d.orderRepo.EXPECT().GetByID(ctx, order.ID).Return(order, nil)
	d.userRepo.EXPECT().GetByID(ctx, agentID).
		Return(&domain.User{ID: agentID, Role: domain.RoleDelivery, AgentApproved: false}, nil)

	_, err := d.svc.Transition(ctx, ports.TransitionRequest{
		OrderID: order.ID,
		Target:  domain.OrderStateInProgress,
		Actor:   domain.Actor{ID: agentID, Role: domain.RoleDelivery},
	})
	assertAppError(t, err, "AUTH_005")
}

func TestOrderService_Transition_StaleStateLosesRace(t *testing.T) {
	d := setupOrderService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	customerID := uuid.New()
	order := testStoredOrder(domain.OrderStateRequested, customerID, nil)
	reason := "no longer needed today"

	d.orderRepo.EXPECT().GetByID(ctx, order.ID).Return(order, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	// A concurrent transition committed between read and write.
	d.orderRepo.EXPECT().UpdateState(ctx, tx, order.ID, domain.OrderStateRequested, domain.OrderStateCancelled, nil).Return(false, nil)

	_, err := d.svc.Transition(ctx, ports.TransitionRequest{
		OrderID: order.ID,
		Target:  domain.OrderStateCancelled,
		Actor:   domain.Actor{ID: customerID, Role: domain.RoleCustomer},
		Reason:  &reason,
	})
	assertAppError(t, err, "ORD_002")
}

func TestOrderService_Transition_OrderNotFound(t *testing.T) {
	d := setupOrderService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.orderRepo.EXPECT().GetByID(ctx, gomock.Any()).Return(nil, nil)

	_, err := d.svc.Transition(ctx, ports.TransitionRequest{
		OrderID: uuid.New(),
		Target:  domain.OrderStateAssigned,
		Actor:   domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin},
	})
	assertAppError(t, err, "ORD_004")
}

// ==================== Query Tests ====================

func TestOrderService_GetByID_AccessControl(t *testing.T) {
	customerID := uuid.New()
	agentID := uuid.New()

	cases := []struct {
		name    string
		actor   domain.Actor
		wantErr string
	}{
		{"owner", domain.Actor{ID: customerID, Role: domain.RoleCustomer}, ""},
		{"assigned agent", domain.Actor{ID: agentID, Role: domain.RoleDelivery}, ""},
		{"admin", domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin}, ""},
		{"other customer", domain.Actor{ID: uuid.New(), Role: domain.RoleCustomer}, "AUTH_004"},
		{"other agent", domain.Actor{ID: uuid.New(), Role: domain.RoleDelivery}, "AUTH_004"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := setupOrderService(t)
			defer d.ctrl.Finish()

			order := testStoredOrder(domain.OrderStateAssigned, customerID, &agentID)
			d.orderRepo.EXPECT().GetByID(gomock.Any(), order.ID).Return(order, nil)

			got, err := d.svc.GetByID(context.Background(), order.ID, tc.actor)
			if tc.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, order.ID, got.ID)
			} else {
				assertAppError(t, err, tc.wantErr)
			}
		})
	}
}
