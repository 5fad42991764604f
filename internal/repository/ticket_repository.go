package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/incidex/incidex/internal/domain"
)

// TicketScope restricts which tickets a caller may see. Zero value means
// no restriction (admin). DepartmentID/CreatorID combine with OR, as do
// the two halves of ParticipantID (requester or assignee).
type TicketScope struct {
	DepartmentID  *int64
	CreatorID     *int64
	ParticipantID *int64
	None          bool
}

// TicketFilter captures list search parameters.
type TicketFilter struct {
	Scope       TicketScope
	Search      *string
	StatusID    *int64
	PriorityID  *int64
	CategoryID  *int64
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence. The two mutating
// operations run in a single transaction that locks the ticket row,
// applies the change, and appends the history row.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	NextCode(ctx context.Context) (string, error)
	GetMinimal(ctx context.Context, id int64) (*domain.TicketRef, error)
	GetDetail(ctx context.Context, id int64) (*domain.TicketDetail, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.TicketRow, error)
	CountWithFilter(ctx context.Context, filter TicketFilter) (int, error)
	UpdateStatusWithHistory(ctx context.Context, ticketID, toStatusID, actorID int64, note *string, markResolved, markClosed bool) error
	UpdateAssigneeWithHistory(ctx context.Context, ticketID int64, newAssigneeID *int64, actorID int64, note string) error
	KPIsForUser(ctx context.Context, userID int64) (domain.DashboardKPIs, error)
	RecentForUser(ctx context.Context, userID int64, limit int) ([]domain.TicketRow, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (code, title, description, requester_id, assignee_id,
                             department_id, category_id, priority_id, status_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,
                (SELECT id FROM statuses WHERE UPPER(name)=$9))
        RETURNING id, status_id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Code,
		ticket.Title,
		ticket.Description,
		ticket.RequesterID,
		ticket.AssigneeID,
		ticket.DepartmentID,
		ticket.CategoryID,
		ticket.PriorityID,
		domain.StatusNuevo,
	).Scan(&ticket.ID, &ticket.StatusID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) NextCode(ctx context.Context) (string, error) {
	var last int64
	if err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id),0) FROM tickets`).Scan(&last); err != nil {
		return "", err
	}
	return fmt.Sprintf("INC-%05d", last+1), nil
}

func (r *ticketRepository) GetMinimal(ctx context.Context, id int64) (*domain.TicketRef, error) {
	const query = `
        SELECT id, code, requester_id, assignee_id, department_id, status_id
        FROM tickets WHERE id=$1`
	var ref domain.TicketRef
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ref.ID,
		&ref.Code,
		&ref.RequesterID,
		&ref.AssigneeID,
		&ref.DepartmentID,
		&ref.StatusID,
	); err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *ticketRepository) GetDetail(ctx context.Context, id int64) (*domain.TicketDetail, error) {
	const query = `
        SELECT t.id, t.code, t.title, t.description,
               t.requester_id, t.assignee_id, t.department_id, t.category_id,
               t.priority_id, t.status_id,
               t.created_at, t.updated_at, t.resolved_at, t.closed_at,
               TRIM(rq.names_worker || ' ' || rq.last_name),
               TRIM(asg.names_worker || ' ' || asg.last_name),
               d.name, c.name, p.name, s.name
        FROM tickets t
        JOIN users rq          ON rq.id = t.requester_id
        LEFT JOIN users asg    ON asg.id = t.assignee_id
        LEFT JOIN departments d ON d.id = t.department_id
        LEFT JOIN categories c  ON c.id = t.category_id
        JOIN priorities p      ON p.id = t.priority_id
        JOIN statuses s        ON s.id = t.status_id
        WHERE t.id=$1`
	var detail domain.TicketDetail
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&detail.ID,
		&detail.Code,
		&detail.Title,
		&detail.Description,
		&detail.RequesterID,
		&detail.AssigneeID,
		&detail.DepartmentID,
		&detail.CategoryID,
		&detail.PriorityID,
		&detail.StatusID,
		&detail.CreatedAt,
		&detail.UpdatedAt,
		&detail.ResolvedAt,
		&detail.ClosedAt,
		&detail.RequesterName,
		&detail.AssigneeName,
		&detail.DepartmentName,
		&detail.CategoryName,
		&detail.PriorityName,
		&detail.StatusName,
	); err != nil {
		return nil, err
	}
	return &detail, nil
}

const ticketRowSelect = `
        SELECT t.id, t.code, t.title,
               TRIM(rq.names_worker || ' ' || rq.last_name),
               TRIM(asg.names_worker || ' ' || asg.last_name),
               c.name, p.name, s.name,
               t.created_at, t.updated_at
        FROM tickets t
        JOIN users rq        ON rq.id = t.requester_id
        LEFT JOIN users asg  ON asg.id = t.assignee_id
        LEFT JOIN categories c ON c.id = t.category_id
        JOIN priorities p    ON p.id = t.priority_id
        JOIN statuses s      ON s.id = t.status_id`

func buildTicketClauses(filter TicketFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Scope.None {
		clauses = append(clauses, "1=0")
	}
	if filter.Scope.DepartmentID != nil || filter.Scope.CreatorID != nil {
		parts := []string{}
		if filter.Scope.DepartmentID != nil {
			args = append(args, *filter.Scope.DepartmentID)
			parts = append(parts, fmt.Sprintf("t.department_id=$%d", len(args)))
		}
		if filter.Scope.CreatorID != nil {
			args = append(args, *filter.Scope.CreatorID)
			parts = append(parts, fmt.Sprintf("t.requester_id=$%d", len(args)))
		}
		clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
	}
	if filter.Scope.ParticipantID != nil {
		args = append(args, *filter.Scope.ParticipantID)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(t.requester_id=%s OR t.assignee_id=%s)", placeholder, placeholder))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		term := strings.TrimSpace(*filter.Search)
		args = append(args, term)
		exact := fmt.Sprintf("$%d", len(args))
		args = append(args, "%"+strings.ToLower(term)+"%")
		like := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(t.code=%s OR LOWER(t.title) LIKE %s)", exact, like))
	}
	if filter.StatusID != nil {
		args = append(args, *filter.StatusID)
		clauses = append(clauses, fmt.Sprintf("t.status_id=$%d", len(args)))
	}
	if filter.PriorityID != nil {
		args = append(args, *filter.PriorityID)
		clauses = append(clauses, fmt.Sprintf("t.priority_id=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("t.category_id=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("t.created_at <= $%d", len(args)))
	}
	return clauses, args
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.TicketRow, error) {
	clauses, args := buildTicketClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY t.updated_at DESC LIMIT %d OFFSET %d`,
		ticketRowSelect, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTicketRows(rows)
}

func (r *ticketRepository) CountWithFilter(ctx context.Context, filter TicketFilter) (int, error) {
	clauses, args := buildTicketClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets t WHERE %s`, strings.Join(clauses, " AND "))
	var total int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// UpdateStatusWithHistory transitions the ticket inside one transaction:
// lock the row, re-read the current status, write the new one, stamp
// resolved_at/closed_at only on first entry, append the history row.
func (r *ticketRepository) UpdateStatusWithHistory(ctx context.Context, ticketID, toStatusID, actorID int64, note *string, markResolved, markClosed bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var fromStatusID int64
	if err := tx.QueryRow(ctx,
		`SELECT status_id FROM tickets WHERE id=$1 FOR UPDATE`, ticketID,
	).Scan(&fromStatusID); err != nil {
		return err
	}

	const update = `
        UPDATE tickets SET
            status_id=$1,
            updated_at=NOW(),
            resolved_at=CASE WHEN $2 THEN COALESCE(resolved_at, NOW()) ELSE resolved_at END,
            closed_at=CASE WHEN $3 THEN COALESCE(closed_at, NOW()) ELSE closed_at END
        WHERE id=$4`
	if _, err := tx.Exec(ctx, update, toStatusID, markResolved, markClosed, ticketID); err != nil {
		return err
	}

	const history = `
        INSERT INTO ticket_history (ticket_id, actor_user_id, from_status_id, to_status_id, note)
        VALUES ($1,$2,$3,$4,$5)`
	if _, err := tx.Exec(ctx, history, ticketID, actorID, fromStatusID, toStatusID, note); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdateAssigneeWithHistory changes the assignee under the same locking
// discipline. Assignment-only history rows keep from and to status equal
// to the ticket's current status.
func (r *ticketRepository) UpdateAssigneeWithHistory(ctx context.Context, ticketID int64, newAssigneeID *int64, actorID int64, note string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var statusID int64
	if err := tx.QueryRow(ctx,
		`SELECT status_id FROM tickets WHERE id=$1 FOR UPDATE`, ticketID,
	).Scan(&statusID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE tickets SET assignee_id=$1, updated_at=NOW() WHERE id=$2`,
		newAssigneeID, ticketID,
	); err != nil {
		return err
	}

	const history = `
        INSERT INTO ticket_history (ticket_id, actor_user_id, from_status_id, to_status_id, note)
        VALUES ($1,$2,$3,$3,$4)`
	if _, err := tx.Exec(ctx, history, ticketID, actorID, statusID, note); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *ticketRepository) KPIsForUser(ctx context.Context, userID int64) (domain.DashboardKPIs, error) {
	const query = `
        SELECT
          COALESCE(SUM(CASE WHEN UPPER(s.name) IN ('NUEVO','ASIGNADO','EN_PROGRESO') THEN 1 ELSE 0 END),0),
          COALESCE(SUM(CASE WHEN UPPER(s.name) = 'EN_PROGRESO' THEN 1 ELSE 0 END),0),
          COALESCE(SUM(CASE WHEN UPPER(s.name) = 'CERRADO' THEN 1 ELSE 0 END),0)
        FROM tickets t
        JOIN statuses s ON s.id = t.status_id
        WHERE t.requester_id=$1 OR t.assignee_id=$1`
	var kpis domain.DashboardKPIs
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&kpis.Open, &kpis.InProgress, &kpis.Closed); err != nil {
		return domain.DashboardKPIs{}, err
	}
	return kpis, nil
}

func (r *ticketRepository) RecentForUser(ctx context.Context, userID int64, limit int) ([]domain.TicketRow, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf(`%s WHERE t.requester_id=$1 OR t.assignee_id=$1 ORDER BY t.updated_at DESC LIMIT %d`,
		ticketRowSelect, limit)
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTicketRows(rows)
}

func scanTicketRows(rows pgx.Rows) ([]domain.TicketRow, error) {
	var result []domain.TicketRow
	for rows.Next() {
		var row domain.TicketRow
		if err := rows.Scan(
			&row.ID,
			&row.Code,
			&row.Title,
			&row.RequesterName,
			&row.AssigneeName,
			&row.CategoryName,
			&row.PriorityName,
			&row.StatusName,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
