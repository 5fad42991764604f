package domain

import "time"

// NotificationKind tags what a notification is about.
type NotificationKind string

const (
	NotificationAssigned NotificationKind = "ASSIGNED"
	NotificationResolved NotificationKind = "RESOLVED"
	NotificationClosed   NotificationKind = "CLOSED"
)

// Notification is a lightweight per-user inbox record.
type Notification struct {
	ID        int64
	UserID    int64
	TicketID  int64
	Kind      NotificationKind
	Message   string
	IsRead    bool
	CreatedAt time.Time
}
