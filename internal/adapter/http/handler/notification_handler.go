package handler

import (
	"strconv"

	"recycle-marketplace/internal/adapter/http/dto"
	"recycle-marketplace/internal/adapter/http/middleware"
	"recycle-marketplace/internal/core/domain"
	"recycle-marketplace/internal/core/ports"
	"recycle-marketplace/pkg/apperror"
	"recycle-marketplace/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NotificationHandler handles per-user notification endpoints.
type NotificationHandler struct {
	notifySvc ports.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifySvc ports.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifySvc: notifySvc}
}

// List handles GET /api/v1/notifications?limit=20&cursor=...
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := middleware.ActorID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	cursor := c.Query("cursor")

	page, err := h.notifySvc.List(c.Request.Context(), userID, limit, cursor)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.NotificationResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toNotificationResponse(&page.Items[i]))
	}

	response.OK(c, dto.NotificationListResponse{
		Items:      items,
		NextCursor: page.NextCursor,
	})
}

// MarkRead handles POST /api/v1/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := middleware.ActorID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid notification id"))
		return
	}

	if err := h.notifySvc.MarkRead(c.Request.Context(), id, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"read": true})
}

// MarkAllRead handles POST /api/v1/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := middleware.ActorID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	if err := h.notifySvc.MarkAllRead(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"read": true})
}

// UnreadCount handles GET /api/v1/notifications/unread-count.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := middleware.ActorID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	count, err := h.notifySvc.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.UnreadCountResponse{Count: count})
}

func toNotificationResponse(n *domain.Notification) dto.NotificationResponse {
	resp := dto.NotificationResponse{
		ID:   n.ID.String(),
		Type: string(n.Type),
		Title: dto.LocalizedTextResponse{
			Primary:   n.Title.Primary,
			Secondary: n.Title.Secondary,
		},
		Body: dto.LocalizedTextResponse{
			Primary:   n.Body.Primary,
			Secondary: n.Body.Secondary,
		},
		Read:      n.Read,
		CreatedAt: n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if n.OrderID != nil {
		s := n.OrderID.String()
		resp.OrderID = &s
	}
	return resp
}
