package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NotificationType tags what a notification is about.
type NotificationType string

const (
	NotificationTypeOrderUpdate   NotificationType = "order_update"
	NotificationTypeWalletCredit  NotificationType = "wallet_credit"
	NotificationTypeWalletDebit   NotificationType = "wallet_debit"
	NotificationTypeAgentApproval NotificationType = "agent_approval"
)

// LocalizedText carries bilingual display text. The core never branches
// on language; both values travel together.
type LocalizedText struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Notification is a durable per-user alert. Created unread, mutated only
// by the read-state transition, never deleted.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     LocalizedText    `json:"title"`
	Body      LocalizedText    `json:"body"`
	OrderID   *uuid.UUID       `json:"order_id,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// EncodeNotificationCursor builds an opaque keyset cursor from the last
// item of a page. Ordering is (created_at desc, id desc), so paging is
// stable when new notifications arrive concurrently.
func EncodeNotificationCursor(createdAt time.Time, id uuid.UUID) string {
	return fmt.Sprintf("%d:%s", createdAt.UTC().UnixNano(), id.String())
}

// DecodeNotificationCursor parses a cursor produced by
// EncodeNotificationCursor.
func DecodeNotificationCursor(cursor string) (time.Time, uuid.UUID, error) {
	parts := strings.SplitN(cursor, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, uuid.Nil, fmt.Errorf("malformed cursor %q", cursor)
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("cursor timestamp: %w", err)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("cursor id: %w", err)
	}
	return time.Unix(0, nanos).UTC(), id, nil
}
