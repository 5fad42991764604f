package domain

import "time"

// Ticket is the aggregate for support incidents.
type Ticket struct {
	ID           int64
	Code         string
	Title        string
	Description  string
	RequesterID  int64
	AssigneeID   *int64
	DepartmentID *int64
	CategoryID   *int64
	PriorityID   int64
	StatusID     int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ResolvedAt   *time.Time
	ClosedAt     *time.Time
}

// TicketRef is the minimal record the workflow loads before deciding
// whether a transition or reassignment is allowed.
type TicketRef struct {
	ID           int64
	Code         string
	RequesterID  int64
	AssigneeID   *int64
	DepartmentID *int64
	StatusID     int64
}

// TicketRow is a list/detail projection with catalog names joined in.
type TicketRow struct {
	ID            int64
	Code          string
	Title         string
	RequesterName string
	AssigneeName  *string
	CategoryName  *string
	PriorityName  string
	StatusName    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TicketDetail carries the full record plus resolved catalog names.
type TicketDetail struct {
	Ticket
	RequesterName  string
	AssigneeName   *string
	DepartmentName *string
	CategoryName   *string
	PriorityName   string
	StatusName     string
}

// DashboardKPIs aggregates a user's ticket counters.
type DashboardKPIs struct {
	Open       int
	InProgress int
	Closed     int
}
