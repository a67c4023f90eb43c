package middleware

import (
	"encoding/json"
	"strings"
	"time"

	"recycle-marketplace/internal/core/domain"
	"recycle-marketplace/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful write
// operations on order routes. Auth and wallet writes are audited inside
// their services, where amounts and resource ids are at hand; mapping
// them here too would double every entry.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" || c.Request.Method == "OPTIONS" {
			return
		}

		action, resourceType := mapPathToAction(c.Request.URL.Path, c.Request.Method)
		if action == "" {
			return
		}

		var userID *uuid.UUID
		if id, ok := ActorID(c); ok {
			userID = &id
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			UserID:       userID,
			Action:       action,
			ResourceType: resourceType,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapPathToAction(path, method string) (domain.AuditAction, string) {
	switch {
	case path == "/api/v1/orders" && method == "POST":
		return domain.AuditActionOrderCreate, "order"
	case strings.HasPrefix(path, "/api/v1/orders/") && strings.HasSuffix(path, "/transition") && method == "POST":
		return domain.AuditActionOrderTransition, "order"
	}
	return "", ""
}
