package domain

// Status catalog names. The workflow matches against these
// case-insensitively; ids are whatever the seeded rows carry.
const (
	StatusNuevo      = "NUEVO"
	StatusAsignado   = "ASIGNADO"
	StatusEnProgreso = "EN_PROGRESO"
	StatusRechazado  = "RECHAZADO"
	StatusResuelto   = "RESUELTO"
	StatusCerrado    = "CERRADO"
)

// OpenStatusNames is the open-ticket set used for analyst load counting.
var OpenStatusNames = []string{StatusNuevo, StatusAsignado, StatusEnProgreso}

// Status is a workflow stage catalog row.
type Status struct {
	ID         int64
	Name       string
	IsTerminal bool
}

// Priority is an SLA urgency catalog row.
type Priority struct {
	ID   int64
	Name string
}

// Category classifies the kind of incident.
type Category struct {
	ID          int64
	Name        string
	Description *string
}

// Department is an organizational unit tickets are routed to.
type Department struct {
	ID   int64
	Name string
}

// Catalogs bundles the lookup tables list views need to render filters.
type Catalogs struct {
	Statuses   []Status
	Priorities []Priority
	Categories []Category
}
