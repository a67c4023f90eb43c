package handler

import (
	"recycle-marketplace/internal/adapter/http/middleware"
	redisStore "recycle-marketplace/internal/adapter/storage/redis"
	"recycle-marketplace/internal/core/domain"
	"recycle-marketplace/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	OrderSvc       ports.OrderService
	WalletSvc      ports.WalletService
	NotifySvc      ports.NotificationService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
		auth.POST("/refresh", rl("auth_refresh"), authHandler.Refresh)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	orderHandler := NewOrderHandler(deps.OrderSvc)
	walletHandler := NewWalletHandler(deps.WalletSvc)
	notificationHandler := NewNotificationHandler(deps.NotifySvc)

	orders := v1.Group("/orders", jwtAuth)
	{
		orders.POST("", rl("orders"), middleware.RequireRoles(domain.RoleCustomer), orderHandler.Create)
		orders.GET("", rl("orders"), middleware.RequireRoles(domain.RoleCustomer), orderHandler.ListMine)
		orders.GET("/:id", rl("orders"), orderHandler.GetByID)
		orders.POST("/:id/transition", rl("orders"), orderHandler.Transition)
	}

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("/balance", rl("wallet"), walletHandler.GetBalance)
		wallet.GET("/transactions", rl("wallet"), walletHandler.ListTransactions)
		wallet.POST("/withdraw", rl("wallet_write"), walletHandler.Withdraw)
	}

	notifications := v1.Group("/notifications", jwtAuth)
	{
		notifications.GET("", rl("notifications"), notificationHandler.List)
		notifications.GET("/unread-count", rl("notifications"), notificationHandler.UnreadCount)
		notifications.POST("/:id/read", rl("notifications"), notificationHandler.MarkRead)
		notifications.POST("/read-all", rl("notifications"), notificationHandler.MarkAllRead)
	}

	// --- Admin routes ---
	admin := v1.Group("/admin", jwtAuth, middleware.RequireRoles(domain.RoleAdmin))
	{
		admin.GET("/orders", rl("orders"), orderHandler.ListByState)
		admin.POST("/orders/:id/refund", rl("wallet_write"), walletHandler.Refund)
		admin.POST("/wallet/cashback", rl("wallet_write"), walletHandler.GrantCashback)
		admin.POST("/agents/:id/approve", rl("wallet_write"), authHandler.ApproveAgent)
	}

	return r
}
