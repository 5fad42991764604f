package dto

import "time"

// CreateTicketRequest payload for ticket creation.
type CreateTicketRequest struct {
	Subject      string `json:"subject"`
	Details      string `json:"details"`
	CategoryID   *int64 `json:"category_id"`
	DepartmentID *int64 `json:"department_id"`
	PriorityID   int64  `json:"priority_id"`
	AssigneeID   *int64 `json:"assignee_id"`
}

// CreateTicketResponse echoes the new ticket's identity.
type CreateTicketResponse struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}

// ChangeStatusRequest payload for a transition.
type ChangeStatusRequest struct {
	ToStatusID int64   `json:"to_status_id"`
	Note       *string `json:"note"`
}

// ReassignRequest payload for assignee changes. A null assignee clears
// the assignment (admin only).
type ReassignRequest struct {
	AssigneeID *int64  `json:"assignee_id"`
	Note       *string `json:"note"`
}

// TicketRowResponse is one listing row.
type TicketRowResponse struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	Title         string    `json:"title"`
	RequesterName string    `json:"requester_name"`
	AssigneeName  *string   `json:"assignee_name,omitempty"`
	CategoryName  *string   `json:"category_name,omitempty"`
	PriorityName  string    `json:"priority_name"`
	StatusName    string    `json:"status_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TicketPageResponse is the paginated listing plus filter echo.
type TicketPageResponse struct {
	Items      []TicketRowResponse `json:"items"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PerPage    int                 `json:"per_page"`
	TotalPages int                 `json:"total_pages"`
	Filters    FilterEcho          `json:"filters"`
	Catalogs   CatalogsResponse    `json:"catalogs"`
}

// FilterEcho returns the normalized filters for re-rendering controls.
type FilterEcho struct {
	Search      string     `json:"search"`
	StatusID    *int64     `json:"status_id,omitempty"`
	PriorityID  *int64     `json:"priority_id,omitempty"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	CreatedFrom *time.Time `json:"created_from,omitempty"`
	CreatedTo   *time.Time `json:"created_to,omitempty"`
}

// TicketDetailResponse is the full detail bundle.
type TicketDetailResponse struct {
	ID             int64                `json:"id"`
	Code           string               `json:"code"`
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	RequesterName  string               `json:"requester_name"`
	AssigneeName   *string              `json:"assignee_name,omitempty"`
	DepartmentName *string              `json:"department_name,omitempty"`
	CategoryName   *string              `json:"category_name,omitempty"`
	PriorityName   string               `json:"priority_name"`
	StatusName     string               `json:"status_name"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	ResolvedAt     *time.Time           `json:"resolved_at,omitempty"`
	ClosedAt       *time.Time           `json:"closed_at,omitempty"`
	CanAct         bool                 `json:"can_act"`
	Comments       []CommentResponse    `json:"comments"`
	Attachments    []AttachmentResponse `json:"attachments"`
	History        []HistoryResponse    `json:"history"`
}

// CommentRequest payload for new comments.
type CommentRequest struct {
	Body string `json:"body"`
}

// CommentResponse is one rendered comment.
type CommentResponse struct {
	ID         int64     `json:"id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// AttachmentRequest registers uploaded file metadata.
type AttachmentRequest struct {
	FileName       string  `json:"file_name"`
	MimeType       string  `json:"mime_type"`
	FilePath       string  `json:"file_path"`
	FileSize       *int64  `json:"file_size"`
	ChecksumSHA256 *string `json:"checksum_sha256"`
}

// AttachmentResponse is one attachment's metadata.
type AttachmentResponse struct {
	ID        int64     `json:"id"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	FileSize  *int64    `json:"file_size,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse is one audit row.
type HistoryResponse struct {
	ID         int64     `json:"id"`
	ActorName  string    `json:"actor_name"`
	FromStatus *string   `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status"`
	Note       *string   `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// DashboardResponse bundles KPI counters and recent tickets.
type DashboardResponse struct {
	Open       int                 `json:"open"`
	InProgress int                 `json:"in_progress"`
	Closed     int                 `json:"closed"`
	Recent     []TicketRowResponse `json:"recent"`
}

// SuggestionRequest asks for metadata suggestions on a draft ticket.
type SuggestionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SuggestionResponse carries the optional suggestion.
type SuggestionResponse struct {
	CategoryID   *int64 `json:"category_id,omitempty"`
	PriorityID   *int64 `json:"priority_id,omitempty"`
	DepartmentID *int64 `json:"department_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
}
