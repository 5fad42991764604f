package domain

import "time"

// TicketHistory is an immutable audit row. FromStatusID is nil for
// assignment-only events, where the status does not change.
type TicketHistory struct {
	ID           int64
	TicketID     int64
	ActorUserID  int64
	FromStatusID *int64
	ToStatusID   int64
	Note         *string
	CreatedAt    time.Time
}

// TicketHistoryRow is the detail projection with names resolved.
type TicketHistoryRow struct {
	ID         int64
	ActorName  string
	FromStatus *string
	ToStatus   string
	Note       *string
	CreatedAt  time.Time
}
