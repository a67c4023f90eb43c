package dto

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	FullName string `json:"full_name" binding:"required,min=1,max=100"`
	Role     string `json:"role" binding:"required,oneof=customer delivery"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest is the request body for refresh token rotation.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse is the response body for login and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // Unix timestamp
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FullName      string `json:"full_name"`
	Role          string `json:"role"`
	AgentApproved bool   `json:"agent_approved"`
	CreatedAt     string `json:"created_at"`
}

// LineItemRequest is one order line at creation time. Rates are the
// catalog snapshot taken by the client-facing catalog lookup.
type LineItemRequest struct {
	CatalogItemID string `json:"catalog_item_id" binding:"required,uuid"`
	Quantity      string `json:"quantity" binding:"required,positive_decimal"`
	Unit          string `json:"unit" binding:"required,oneof=kg piece"`
	PointsRate    string `json:"points_rate" binding:"required,nonneg_decimal"`
	PriceRate     string `json:"price_rate" binding:"required,nonneg_decimal"`
}

// CreateOrderRequest is the request body for order creation.
type CreateOrderRequest struct {
	Items         []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	AddressID     string            `json:"address_id" binding:"required,uuid"`
	PaymentMethod string            `json:"payment_method" binding:"required,oneof=wallet cash"`
}

// TransitionRequest is the request body for an order state transition.
type TransitionRequest struct {
	Target  string  `json:"target" binding:"required,oneof=assigned in_progress completed cancelled"`
	Reason  *string `json:"reason,omitempty"`
	AgentID *string `json:"agent_id,omitempty" binding:"omitempty,uuid"`
}

// LineItemResponse is one order line in responses.
type LineItemResponse struct {
	ID            string `json:"id"`
	CatalogItemID string `json:"catalog_item_id"`
	Quantity      string `json:"quantity"`
	Unit          string `json:"unit"`
	PointsRate    string `json:"points_rate"`
	PriceRate     string `json:"price_rate"`
	Points        string `json:"points"`
	Price         string `json:"price"`
}

// StateEntryResponse is one state history record.
type StateEntryResponse struct {
	State     string  `json:"state"`
	ActorID   string  `json:"actor_id"`
	ActorRole string  `json:"actor_role"`
	Reason    *string `json:"reason,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// OrderResponse is the full order aggregate.
type OrderResponse struct {
	ID            string               `json:"id"`
	CustomerID    string               `json:"customer_id"`
	AgentID       *string              `json:"agent_id,omitempty"`
	State         string               `json:"state"`
	Items         []LineItemResponse   `json:"items,omitempty"`
	History       []StateEntryResponse `json:"history,omitempty"`
	AddressID     string               `json:"address_id"`
	PaymentMethod string               `json:"payment_method"`
	TotalPoints   string               `json:"total_points"`
	TotalPrice    string               `json:"total_price"`
	CreatedAt     string               `json:"created_at"`
	UpdatedAt     string               `json:"updated_at"`
}

// OrderListResponse wraps a paginated order list.
type OrderListResponse struct {
	Items      []OrderResponse `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// CashbackRequest is the request body for an admin cashback grant.
type CashbackRequest struct {
	UserID     string `json:"user_id" binding:"required,uuid"`
	Amount     string `json:"amount" binding:"required,positive_decimal"`
	GatewayRef string `json:"gateway_ref" binding:"required,safe_ref,max=100"`
}

// WithdrawRequest is the request body for a wallet withdrawal.
type WithdrawRequest struct {
	Amount     string  `json:"amount" binding:"required,positive_decimal"`
	GatewayRef *string `json:"gateway_ref,omitempty" binding:"omitempty,safe_ref,max=100"`
}

// RefundRequest is the request body for an admin-initiated order refund.
type RefundRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// TransactionResponse is one ledger entry.
type TransactionResponse struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Amount    string  `json:"amount"` // signed: credits > 0, debits < 0
	OriginRef *string `json:"origin_ref,omitempty"`
	OrderID   *string `json:"order_id,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// TransactionListResponse wraps a paginated ledger listing.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	Balance string `json:"balance"`
}

// LocalizedTextResponse carries bilingual display text.
type LocalizedTextResponse struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// NotificationResponse is one notification record.
type NotificationResponse struct {
	ID        string                `json:"id"`
	Type      string                `json:"type"`
	Title     LocalizedTextResponse `json:"title"`
	Body      LocalizedTextResponse `json:"body"`
	OrderID   *string               `json:"order_id,omitempty"`
	Read      bool                  `json:"read"`
	CreatedAt string                `json:"created_at"`
}

// NotificationListResponse wraps a cursor-paginated notification page.
type NotificationListResponse struct {
	Items      []NotificationResponse `json:"items"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

// UnreadCountResponse is the response for the unread badge count.
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}
