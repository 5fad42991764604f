package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated    EventType = "ticket_created"
	EventStatusChanged    EventType = "ticket_status_changed"
	EventTicketReassigned EventType = "ticket_reassigned"
	EventCommentAdded     EventType = "ticket_comment_added"
)

// Event represents a domain event emitted after a committed write.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	TicketID    int64       `json:"ticket_id"`
	TicketCode  string      `json:"ticket_code"`
	ActorUserID int64       `json:"actor_user_id"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title        string `json:"title"`
	DepartmentID *int64 `json:"department_id,omitempty"`
	PriorityID   int64  `json:"priority_id"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	FromStatus string  `json:"from_status"`
	ToStatus   string  `json:"to_status"`
	Note       *string `json:"note,omitempty"`
}

// ReassignedPayload payload.
type ReassignedPayload struct {
	OldAssigneeID *int64 `json:"old_assignee_id,omitempty"`
	NewAssigneeID *int64 `json:"new_assignee_id,omitempty"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   int64  `json:"comment_id"`
	BodyPreview string `json:"body_preview"`
}
