package handler

import (
	"math"
	"strconv"

	"recycle-marketplace/internal/adapter/http/dto"
	"recycle-marketplace/internal/adapter/http/middleware"
	"recycle-marketplace/internal/core/domain"
	"recycle-marketplace/internal/core/ports"
	"recycle-marketplace/pkg/apperror"
	"recycle-marketplace/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderHandler handles order lifecycle endpoints.
type OrderHandler struct {
	orderSvc ports.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc ports.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// Create handles POST /api/v1/orders.
func (h *OrderHandler) Create(c *gin.Context) {
	customerID, ok := middleware.ActorID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	addressID, err := uuid.Parse(req.AddressID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid address id"))
		return
	}

	items := make([]ports.LineItemInput, 0, len(req.Items))
	for _, li := range req.Items {
		input, err := toLineItemInput(li)
		if err != nil {
			response.Error(c, apperror.Validation(err.Error()))
			return
		}
		items = append(items, input)
	}

	order, err := h.orderSvc.Create(c.Request.Context(), ports.CreateOrderRequest{
		CustomerID:    customerID,
		Items:         items,
		AddressID:     addressID,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toOrderResponse(order, true))
}

// Transition handles POST /api/v1/orders/:id/transition.
func (h *OrderHandler) Transition(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid order id"))
		return
	}

	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	transition := ports.TransitionRequest{
		OrderID: orderID,
		Target:  domain.OrderState(req.Target),
		Actor:   actor,
		Reason:  req.Reason,
	}
	if req.AgentID != nil {
		agentID, err := uuid.Parse(*req.AgentID)
		if err != nil {
			response.Error(c, apperror.Validation("invalid agent id"))
			return
		}
		transition.AgentID = &agentID
	}

	order, err := h.orderSvc.Transition(c.Request.Context(), transition)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toOrderResponse(order, true))
}

// GetByID handles GET /api/v1/orders/:id.
func (h *OrderHandler) GetByID(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid order id"))
		return
	}

	order, err := h.orderSvc.GetByID(c.Request.Context(), orderID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toOrderResponse(order, true))
}

// ListMine handles GET /api/v1/orders, the customer's own orders.
func (h *OrderHandler) ListMine(c *gin.Context) {
	customerID, ok := middleware.ActorID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, pageSize := paginationParams(c)
	orders, total, err := h.orderSvc.ListByCustomer(c.Request.Context(), customerID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toOrderListResponse(orders, total, page, pageSize))
}

// ListByState handles GET /api/v1/admin/orders?state=requested.
func (h *OrderHandler) ListByState(c *gin.Context) {
	state := domain.OrderState(c.DefaultQuery("state", string(domain.OrderStateRequested)))
	switch state {
	case domain.OrderStateRequested, domain.OrderStateAssigned, domain.OrderStateInProgress,
		domain.OrderStateCompleted, domain.OrderStateCancelled:
	default:
		response.Error(c, apperror.Validation("unknown order state"))
		return
	}

	page, pageSize := paginationParams(c)
	orders, total, err := h.orderSvc.ListByState(c.Request.Context(), state, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toOrderListResponse(orders, total, page, pageSize))
}

func paginationParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func toLineItemInput(li dto.LineItemRequest) (ports.LineItemInput, error) {
	catalogID, err := uuid.Parse(li.CatalogItemID)
	if err != nil {
		return ports.LineItemInput{}, err
	}
	quantity, err := decimal.NewFromString(li.Quantity)
	if err != nil {
		return ports.LineItemInput{}, err
	}
	pointsRate, err := decimal.NewFromString(li.PointsRate)
	if err != nil {
		return ports.LineItemInput{}, err
	}
	priceRate, err := decimal.NewFromString(li.PriceRate)
	if err != nil {
		return ports.LineItemInput{}, err
	}
	return ports.LineItemInput{
		CatalogItemID: catalogID,
		Quantity:      quantity,
		Unit:          domain.MeasurementUnit(li.Unit),
		PointsRate:    pointsRate,
		PriceRate:     priceRate,
	}, nil
}

// toOrderResponse converts the order aggregate to its DTO. Listings
// pass full=false to skip items and history the rows never carry.
func toOrderResponse(o *domain.Order, full bool) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:            o.ID.String(),
		CustomerID:    o.CustomerID.String(),
		State:         string(o.State),
		AddressID:     o.AddressID.String(),
		PaymentMethod: string(o.PaymentMethod),
		TotalPoints:   o.TotalPoints().String(),
		TotalPrice:    o.TotalPrice().String(),
		CreatedAt:     o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:     o.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if o.AgentID != nil {
		s := o.AgentID.String()
		resp.AgentID = &s
	}
	if !full {
		return resp
	}

	resp.Items = make([]dto.LineItemResponse, 0, len(o.Items))
	for _, li := range o.Items {
		resp.Items = append(resp.Items, dto.LineItemResponse{
			ID:            li.ID.String(),
			CatalogItemID: li.CatalogItemID.String(),
			Quantity:      li.Quantity.String(),
			Unit:          string(li.Unit),
			PointsRate:    li.PointsRate.String(),
			PriceRate:     li.PriceRate.String(),
			Points:        li.Points.String(),
			Price:         li.Price.String(),
		})
	}
	resp.History = make([]dto.StateEntryResponse, 0, len(o.History))
	for _, e := range o.History {
		resp.History = append(resp.History, dto.StateEntryResponse{
			State:     string(e.State),
			ActorID:   e.ActorID.String(),
			ActorRole: string(e.ActorRole),
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return resp
}

func toOrderListResponse(orders []domain.Order, total int64, page, pageSize int) dto.OrderListResponse {
	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i], false))
	}
	return dto.OrderListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}
}
