package dto

import "time"

// CatalogsResponse bundles lookup tables for filter controls.
type CatalogsResponse struct {
	Statuses   []StatusResponse   `json:"statuses"`
	Priorities []NamedItem        `json:"priorities"`
	Categories []CategoryResponse `json:"categories"`
}

// NamedItem is an id/name pair.
type NamedItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// StatusResponse is one workflow stage.
type StatusResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	IsTerminal bool   `json:"is_terminal"`
}

// CategoryResponse is one category row.
type CategoryResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// CreateDepartmentRequest payload.
type CreateDepartmentRequest struct {
	Name string `json:"name"`
}

// CreateCategoryRequest payload.
type CreateCategoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// AnalystLoadResponse is one analyst with their open-ticket count.
type AnalystLoadResponse struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Load     int    `json:"load"`
}

// NotificationResponse is one inbox record.
type NotificationResponse struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditEntryResponse is one bitacora row.
type AuditEntryResponse struct {
	ID        int64     `json:"id"`
	Usuario   string    `json:"usuario"`
	Rol       string    `json:"rol"`
	Accion    string    `json:"accion"`
	Resultado string    `json:"resultado"`
	CreatedAt time.Time `json:"created_at"`
}
