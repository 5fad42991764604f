package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/incidex/incidex/internal/domain"
)

// AuditFilter narrows bitacora listings.
type AuditFilter struct {
	Usuario *string
	Accion  *string
	From    *time.Time
	To      *time.Time
	Limit   int
}

// AuditLogRepository appends and lists bitacora entries.
type AuditLogRepository interface {
	Insert(ctx context.Context, entry *domain.AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error)
}

type auditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository builds the repository.
func NewAuditLogRepository(pool *pgxpool.Pool) AuditLogRepository {
	return &auditLogRepository{pool: pool}
}

func (r *auditLogRepository) Insert(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO bitacora (usuario, rol, accion, resultado)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.Usuario,
		entry.Rol,
		entry.Accion,
		entry.Resultado,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditLogRepository) List(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Usuario != nil {
		args = append(args, *filter.Usuario)
		clauses = append(clauses, fmt.Sprintf("usuario=$%d", len(args)))
	}
	if filter.Accion != nil {
		args = append(args, *filter.Accion)
		clauses = append(clauses, fmt.Sprintf("accion=$%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`
        SELECT id, usuario, rol, accion, resultado, created_at
        FROM bitacora WHERE %s ORDER BY created_at DESC LIMIT %d`,
		strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Usuario,
			&entry.Rol,
			&entry.Accion,
			&entry.Resultado,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
