package handler

import (
	"math"

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

// WalletHandler handles wallet balance, ledger and manual entry endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.ActorID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	balance, err := h.walletSvc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{Balance: balance.String()})
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := middleware.ActorID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, pageSize := paginationParams(c)
	txns, total, err := h.walletSvc.ListTransactions(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}

	response.OK(c, dto.TransactionListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	})
}

// GrantCashback handles POST /api/v1/admin/wallet/cashback.
func (h *WalletHandler) GrantCashback(c *gin.Context) {
	adminID, ok := middleware.ActorID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CashbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid user id"))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.Validation("invalid amount"))
		return
	}

	txn, err := h.walletSvc.GrantCashback(c.Request.Context(), ports.CashbackRequest{
		UserID:      userID,
		Amount:      amount,
		GatewayRef:  req.GatewayRef,
		GrantedByID: adminID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(txn))
}

// Withdraw handles POST /api/v1/wallet/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID, ok := middleware.ActorID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.Validation("invalid amount"))
		return
	}

	txn, err := h.walletSvc.Withdraw(c.Request.Context(), ports.WithdrawRequest{
		UserID:     userID,
		Amount:     amount,
		GatewayRef: req.GatewayRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(txn))
}

// Refund handles POST /api/v1/admin/orders/:id/refund.
func (h *WalletHandler) Refund(c *gin.Context) {
	adminID, ok := middleware.ActorID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid order id"))
		return
	}

	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	txn, err := h.walletSvc.Refund(c.Request.Context(), ports.RefundRequest{
		OrderID:     orderID,
		RequestedBy: adminID,
		Reason:      req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(txn))
}

// toTransactionResponse converts domain.WalletTransaction to DTO.
func toTransactionResponse(tx *domain.WalletTransaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:        tx.ID.String(),
		Type:      string(tx.Type),
		Amount:    tx.Amount.String(),
		OriginRef: tx.OriginRef,
		CreatedAt: tx.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if tx.OrderID != nil {
		s := tx.OrderID.String()
		resp.OrderID = &s
	}
	return resp
}
