package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recycle-marketplace/internal/adapter/http/dto"
	"recycle-marketplace/internal/adapter/http/middleware"
	"recycle-marketplace/internal/core/domain"
	"recycle-marketplace/internal/core/ports"
	"recycle-marketplace/internal/core/ports/mocks"
	"recycle-marketplace/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testContext builds a recorder-backed gin context carrying an
// authenticated actor, the way JWTAuth leaves it.
func testContext(t *testing.T, method, path string, body any, actor *domain.Actor) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, path, reader)
	c.Request.Header.Set("Content-Type", "application/json")

	if actor != nil {
		c.Set(middleware.CtxUserID, actor.ID)
		c.Set(middleware.CtxUserRole, actor.Role)
	}
	return c, w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data envelope: %s", w.Body.String())
	return data
}

// --- Auth Handler Tests ---

func TestRegister_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	userID := uuid.New()
	mockAuth.EXPECT().Register(gomock.Any(), ports.RegisterRequest{
		Email:    "sara@example.com",
		Password: "password123",
		FullName: "Sara Adel",
		Role:     domain.RoleCustomer,
	}).Return(&domain.User{
		ID:       userID,
		Email:    "sara@example.com",
		FullName: "Sara Adel",
		Role:     domain.RoleCustomer,
	}, nil)

	c, w := testContext(t, http.MethodPost, "/api/v1/auth/register", dto.RegisterRequest{
		Email:    "sara@example.com",
		Password: "password123",
		FullName: "Sara Adel",
		Role:     "customer",
	}, nil)

	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, userID.String(), data["id"])
	assert.Equal(t, "customer", data["role"])
}

func TestRegister_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	// Empty body => binding error
	c, w := testContext(t, http.MethodPost, "/api/v1/auth/register", map[string]string{}, nil)

	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_AdminRoleRejectedByBinding(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	c, w := testContext(t, http.MethodPost, "/api/v1/auth/register", dto.RegisterRequest{
		Email:    "eve@example.com",
		Password: "password123",
		FullName: "Eve",
		Role:     "admin",
	}, nil)

	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_EmailTaken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrEmailExists())

	c, w := testContext(t, http.MethodPost, "/", dto.RegisterRequest{
		Email:    "taken@example.com",
		Password: "password123",
		FullName: "Taken",
		Role:     "customer",
	}, nil)

	h.Register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	expiry := time.Now().Add(time.Hour)
	mockAuth.EXPECT().Login(gomock.Any(), "sara@example.com", "password123").Return(&ports.TokenPair{
		AccessToken:  "jwt-token-123",
		RefreshToken: "refresh-token-456",
		ExpiresAt:    expiry,
	}, nil)

	c, w := testContext(t, http.MethodPost, "/", dto.LoginRequest{
		Email:    "sara@example.com",
		Password: "password123",
	}, nil)

	h.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "jwt-token-123", data["access_token"])
	assert.Equal(t, "refresh-token-456", data["refresh_token"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Login(gomock.Any(), "bad@example.com", "bad12345").Return(nil, apperror.ErrInvalidCredentials())

	c, w := testContext(t, http.MethodPost, "/", dto.LoginRequest{
		Email:    "bad@example.com",
		Password: "bad12345",
	}, nil)

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh_RotatesTokens(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Refresh(gomock.Any(), "old-refresh").Return(&ports.TokenPair{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil)

	c, w := testContext(t, http.MethodPost, "/", dto.RefreshRequest{RefreshToken: "old-refresh"}, nil)

	h.Refresh(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "new-refresh", data["refresh_token"])
}

func TestApproveAgent_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	adminID := uuid.New()
	agentID := uuid.New()
	mockAuth.EXPECT().ApproveAgent(gomock.Any(), agentID, adminID).Return(nil)

	actor := domain.Actor{ID: adminID, Role: domain.RoleAdmin}
	c, w := testContext(t, http.MethodPost, "/", nil, &actor)
	c.Params = gin.Params{{Key: "id", Value: agentID.String()}}

	h.ApproveAgent(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Order Handler Tests ---

func validCreateOrderBody() dto.CreateOrderRequest {
	return dto.CreateOrderRequest{
		Items: []dto.LineItemRequest{{
			CatalogItemID: uuid.New().String(),
			Quantity:      "4",
			Unit:          "kg",
			PointsRate:    "2.5",
			PriceRate:     "1",
		}},
		AddressID:     uuid.New().String(),
		PaymentMethod: "wallet",
	}
}

func TestCreateOrder_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrder := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrder)

	customerID := uuid.New()
	orderID := uuid.New()
	mockOrder.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ interface{}, req ports.CreateOrderRequest) (*domain.Order, error) {
			assert.Equal(t, customerID, req.CustomerID)
			require.Len(t, req.Items, 1)
			assert.True(t, req.Items[0].Quantity.Equal(decimal.RequireFromString("4")))
			return &domain.Order{
				ID:         orderID,
				CustomerID: customerID,
				State:      domain.OrderStateRequested,
			}, nil
		})

	actor := domain.Actor{ID: customerID, Role: domain.RoleCustomer}
	c, w := testContext(t, http.MethodPost, "/api/v1/orders", validCreateOrderBody(), &actor)

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, orderID.String(), data["id"])
	assert.Equal(t, "requested", data["state"])
}

func TestCreateOrder_RejectsZeroQuantity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrder := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrder)

	body := validCreateOrderBody()
	body.Items[0].Quantity = "0"

	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleCustomer}
	c, w := testContext(t, http.MethodPost, "/api/v1/orders", body, &actor)

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrder_RejectsEmptyItems(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrder := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrder)

	body := validCreateOrderBody()
	body.Items = nil

	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleCustomer}
	c, w := testContext(t, http.MethodPost, "/api/v1/orders", body, &actor)

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransition_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrder := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrder)

	actorID := uuid.New()
	orderID := uuid.New()
	agentID := uuid.New()

	mockOrder.EXPECT().Transition(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ interface{}, req ports.TransitionRequest) (*domain.Order, error) {
			assert.Equal(t, orderID, req.OrderID)
			assert.Equal(t, domain.OrderStateAssigned, req.Target)
			require.NotNil(t, req.AgentID)
			assert.Equal(t, agentID, *req.AgentID)
			return &domain.Order{ID: orderID, State: domain.OrderStateAssigned, AgentID: &agentID}, nil
		})

	agentStr := agentID.String()
	actor := domain.Actor{ID: actorID, Role: domain.RoleAdmin}
	c, w := testContext(t, http.MethodPost, "/", dto.TransitionRequest{
		Target:  "assigned",
		AgentID: &agentStr,
	}, &actor)
	c.Params = gin.Params{{Key: "id", Value: orderID.String()}}

	h.Transition(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "assigned", data["state"])
}

func TestTransition_InvalidEdge(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrder := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrder)

	mockOrder.EXPECT().Transition(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInvalidTransition("requested", "completed"))

	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin}
	c, w := testContext(t, http.MethodPost, "/", dto.TransitionRequest{Target: "completed"}, &actor)
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}

	h.Transition(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ORD_001", resp["error_code"])
}

func TestTransition_UnknownTargetRejectedByBinding(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrder := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrder)

	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin}
	c, w := testContext(t, http.MethodPost, "/", dto.TransitionRequest{Target: "teleported"}, &actor)
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}

	h.Transition(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrder_StaleStateConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrder := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrder)

	mockOrder.EXPECT().Transition(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrStaleState())

	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleCustomer}
	reason := "changed my mind about this pickup"
	c, w := testContext(t, http.MethodPost, "/", dto.TransitionRequest{Target: "cancelled", Reason: &reason}, &actor)
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}

	h.Transition(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ORD_002", resp["error_code"])
}

func TestGetOrder_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrder := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrder)

	customerID := uuid.New()
	orderID := uuid.New()
	actor := domain.Actor{ID: customerID, Role: domain.RoleCustomer}

	mockOrder.EXPECT().GetByID(gomock.Any(), orderID, actor).Return(&domain.Order{
		ID:         orderID,
		CustomerID: customerID,
		State:      domain.OrderStateInProgress,
	}, nil)

	c, w := testContext(t, http.MethodGet, "/", nil, &actor)
	c.Params = gin.Params{{Key: "id", Value: orderID.String()}}

	h.GetByID(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "in_progress", data["state"])
}

func TestListByState_UnknownState(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrder := mocks.NewMockOrderService(ctrl)
	h := NewOrderHandler(mockOrder)

	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin}
	c, w := testContext(t, http.MethodGet, "/api/v1/admin/orders?state=vanished", nil, &actor)

	h.ListByState(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Wallet Handler Tests ---

func TestGetBalance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	userID := uuid.New()
	mockWallet.EXPECT().GetBalance(gomock.Any(), userID).Return(decimal.RequireFromString("42.5"), nil)

	actor := domain.Actor{ID: userID, Role: domain.RoleCustomer}
	c, w := testContext(t, http.MethodGet, "/", nil, &actor)

	h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "42.5", data["balance"])
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	mockWallet.EXPECT().Withdraw(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientFunds())

	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleCustomer}
	c, w := testContext(t, http.MethodPost, "/", dto.WithdrawRequest{Amount: "1000"}, &actor)

	h.Withdraw(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "WAL_001", resp["error_code"])
}

func TestGrantCashback_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	adminID := uuid.New()
	targetID := uuid.New()
	txnID := uuid.New()

	mockWallet.EXPECT().GrantCashback(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ interface{}, req ports.CashbackRequest) (*domain.WalletTransaction, error) {
			assert.Equal(t, targetID, req.UserID)
			assert.Equal(t, adminID, req.GrantedByID)
			assert.Equal(t, "gw-777", req.GatewayRef)
			assert.True(t, req.Amount.Equal(decimal.RequireFromString("15")))
			return &domain.WalletTransaction{
				ID:     txnID,
				Type:   domain.TransactionTypeCashback,
				Amount: decimal.RequireFromString("15"),
			}, nil
		})

	actor := domain.Actor{ID: adminID, Role: domain.RoleAdmin}
	c, w := testContext(t, http.MethodPost, "/", dto.CashbackRequest{
		UserID:     targetID.String(),
		Amount:     "15",
		GatewayRef: "gw-777",
	}, &actor)

	h.GrantCashback(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, txnID.String(), data["id"])
	assert.Equal(t, "15", data["amount"])
}

func TestGrantCashback_MissingGatewayRef(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin}
	c, w := testContext(t, http.MethodPost, "/", dto.CashbackRequest{
		UserID: uuid.New().String(),
		Amount: "15",
	}, &actor)

	h.GrantCashback(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefund_DuplicateConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallet)

	mockWallet.EXPECT().Refund(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrDuplicateSettlement())

	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin}
	c, w := testContext(t, http.MethodPost, "/", dto.RefundRequest{Reason: "damaged goods"}, &actor)
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}

	h.Refund(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "WAL_002", resp["error_code"])
}

// --- Notification Handler Tests ---

func TestListNotifications_PassesCursorThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotify := mocks.NewMockNotificationService(ctrl)
	h := NewNotificationHandler(mockNotify)

	userID := uuid.New()
	n := domain.Notification{
		ID:     uuid.New(),
		UserID: userID,
		Type:   domain.NotificationTypeOrderUpdate,
		Title:  domain.LocalizedText{Primary: "Order update", Secondary: "تحديث الطلب"},
		Body:   domain.LocalizedText{Primary: "Pickup started", Secondary: "بدأ الاستلام"},
	}
	mockNotify.EXPECT().List(gomock.Any(), userID, 10, "123:"+n.ID.String()).Return(&ports.NotificationPage{
		Items:      []domain.Notification{n},
		NextCursor: "456:" + n.ID.String(),
	}, nil)

	actor := domain.Actor{ID: userID, Role: domain.RoleCustomer}
	c, w := testContext(t, http.MethodGet, "/api/v1/notifications?limit=10&cursor=123:"+n.ID.String(), nil, &actor)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "456:"+n.ID.String(), data["next_cursor"])
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	title := first["title"].(map[string]interface{})
	assert.Equal(t, "تحديث الطلب", title["secondary"])
}

func TestMarkRead_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotify := mocks.NewMockNotificationService(ctrl)
	h := NewNotificationHandler(mockNotify)

	userID := uuid.New()
	notifID := uuid.New()
	mockNotify.EXPECT().MarkRead(gomock.Any(), notifID, userID).Return(nil)

	actor := domain.Actor{ID: userID, Role: domain.RoleCustomer}
	c, w := testContext(t, http.MethodPost, "/", nil, &actor)
	c.Params = gin.Params{{Key: "id", Value: notifID.String()}}

	h.MarkRead(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnreadCount_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotify := mocks.NewMockNotificationService(ctrl)
	h := NewNotificationHandler(mockNotify)

	userID := uuid.New()
	mockNotify.EXPECT().UnreadCount(gomock.Any(), userID).Return(int64(7), nil)

	actor := domain.Actor{ID: userID, Role: domain.RoleCustomer}
	c, w := testContext(t, http.MethodGet, "/", nil, &actor)

	h.UnreadCount(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(7), data["count"])
}

// --- Health Check ---

type fakeChecker struct {
	name string
	err  error
}

func (f fakeChecker) Ping(_ context.Context) error { return f.err }
func (f fakeChecker) Name() string                 { return f.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(fakeChecker{name: "postgresql"}, fakeChecker{name: "redis"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(fakeChecker{name: "postgresql"}, fakeChecker{name: "redis", err: errors.New("connection refused")})(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
}
