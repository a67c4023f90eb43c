package service

import (
	"context"
	"fmt"
	"time"

	"recycle-marketplace/internal/core/domain"
	"recycle-marketplace/internal/core/ports"
	"recycle-marketplace/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

// NotificationServiceImpl implements ports.NotificationService.
type NotificationServiceImpl struct {
	notifRepo ports.NotificationRepository
	log       zerolog.Logger
}

// NewNotificationService creates a new NotificationServiceImpl.
func NewNotificationService(notifRepo ports.NotificationRepository, log zerolog.Logger) *NotificationServiceImpl {
	return &NotificationServiceImpl{notifRepo: notifRepo, log: log}
}

// Notify creates a new unread notification. No deduplication: two
// identical payloads about two events are two records.
func (s *NotificationServiceImpl) Notify(ctx context.Context, userID uuid.UUID, nType domain.NotificationType, title, body domain.LocalizedText, orderID *uuid.UUID) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      nType,
		Title:     title,
		Body:      body,
		OrderID:   orderID,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create notification: %w", err))
	}
	return n, nil
}

// MarkRead flips one notification to read. Idempotent.
func (s *NotificationServiceImpl) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.notifRepo.MarkRead(ctx, id, userID); err != nil {
		return apperror.InternalError(fmt.Errorf("mark read: %w", err))
	}
	return nil
}

// MarkAllRead flips every unread notification for the user. Idempotent.
func (s *NotificationServiceImpl) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.notifRepo.MarkAllRead(ctx, userID); err != nil {
		return apperror.InternalError(fmt.Errorf("mark all read: %w", err))
	}
	return nil
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationServiceImpl) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.notifRepo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("unread count: %w", err))
	}
	return count, nil
}

// List returns one page ordered newest first. An empty cursor starts at
// the top; the returned cursor is empty once the page is short.
func (s *NotificationServiceImpl) List(ctx context.Context, userID uuid.UUID, limit int, cursor string) (*ports.NotificationPage, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	var before *ports.NotificationCursor
	if cursor != "" {
		createdAt, id, err := domain.DecodeNotificationCursor(cursor)
		if err != nil {
			return nil, apperror.Validation("invalid cursor")
		}
		before = &ports.NotificationCursor{CreatedAt: createdAt, ID: id}
	}

	items, err := s.notifRepo.List(ctx, userID, limit, before)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list notifications: %w", err))
	}

	page := &ports.NotificationPage{Items: items}
	if len(items) == limit {
		last := items[len(items)-1]
		page.NextCursor = domain.EncodeNotificationCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}
