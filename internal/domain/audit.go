package domain

import "time"

// AuditEntry is a bitacora row: who did what and how it went.
type AuditEntry struct {
	ID        int64
	Usuario   string
	Rol       string
	Accion    string
	Resultado string
	CreatedAt time.Time
}
