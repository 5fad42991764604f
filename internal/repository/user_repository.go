package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/incidex/incidex/internal/domain"
)

// UserRepository defines persistence access for worker accounts and the
// analyst-load aggregates the auto-routing step needs.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User, roleIDs []int64) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Deactivate(ctx context.Context, id int64) error
	DepartmentID(ctx context.Context, userID int64) (*int64, error)
	FullName(ctx context.Context, userID int64) (string, error)
	LeastBusyAnalystByDepartment(ctx context.Context, departmentID int64) (*domain.AnalystLoad, error)
	AnalystsByDepartmentWithLoad(ctx context.Context) (map[int64][]domain.AnalystLoad, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User, roleIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insert = `
        INSERT INTO users (names_worker, last_name, email, password_hash, department_id, is_active)
        VALUES ($1,$2,$3,$4,$5,TRUE)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insert,
		user.FirstNames,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.DepartmentID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return err
	}

	for _, roleID := range roleIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1,$2)`, user.ID, roleID,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

const userSelect = `
        SELECT u.id, u.names_worker, u.last_name, u.email, u.password_hash,
               u.department_id, u.is_active, u.created_at, u.updated_at,
               COALESCE(ARRAY_AGG(r.name) FILTER (WHERE r.name IS NOT NULL), '{}')
        FROM users u
        LEFT JOIN user_roles ur ON ur.user_id = u.id
        LEFT JOIN roles r       ON r.id = ur.role_id`

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := userSelect + ` WHERE u.id=$1 GROUP BY u.id`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := userSelect + ` WHERE u.email=$1 GROUP BY u.id`
	return r.fetchSingle(ctx, query, email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.FirstNames,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.DepartmentID,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Roles,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Deactivate(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE users SET is_active=FALSE, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) DepartmentID(ctx context.Context, userID int64) (*int64, error) {
	var deptID *int64
	err := r.pool.QueryRow(ctx, `SELECT department_id FROM users WHERE id=$1`, userID).Scan(&deptID)
	return deptID, err
}

func (r *userRepository) FullName(ctx context.Context, userID int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx,
		`SELECT TRIM(names_worker || ' ' || last_name) FROM users WHERE id=$1`, userID,
	).Scan(&name)
	return name, err
}

const analystLoadSelect = `
        SELECT u.id,
               TRIM(u.names_worker || ' ' || u.last_name) AS full_name,
               COUNT(t.id) FILTER (WHERE UPPER(s.name) IN ('NUEVO','ASIGNADO','EN_PROGRESO')) AS load
        FROM users u
        JOIN user_roles ur ON ur.user_id = u.id
        JOIN roles r       ON r.id = ur.role_id AND r.name = 'ANALYST'
        LEFT JOIN tickets t ON t.assignee_id = u.id
        LEFT JOIN statuses s ON s.id = t.status_id
        WHERE u.is_active = TRUE`

// LeastBusyAnalystByDepartment returns the active analyst in the
// department with the fewest open tickets, ties broken by full name.
// nil when the department has no analysts.
func (r *userRepository) LeastBusyAnalystByDepartment(ctx context.Context, departmentID int64) (*domain.AnalystLoad, error) {
	query := analystLoadSelect + `
          AND u.department_id = $1
        GROUP BY u.id, u.names_worker, u.last_name
        ORDER BY load ASC, full_name ASC
        LIMIT 1`
	var analyst domain.AnalystLoad
	err := r.pool.QueryRow(ctx, query, departmentID).Scan(&analyst.ID, &analyst.FullName, &analyst.Load)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &analyst, nil
}

func (r *userRepository) AnalystsByDepartmentWithLoad(ctx context.Context) (map[int64][]domain.AnalystLoad, error) {
	query := `
        SELECT u.department_id,
               u.id,
               TRIM(u.names_worker || ' ' || u.last_name) AS full_name,
               COUNT(t.id) FILTER (WHERE UPPER(s.name) IN ('NUEVO','ASIGNADO','EN_PROGRESO')) AS load
        FROM users u
        JOIN user_roles ur ON ur.user_id = u.id
        JOIN roles r       ON r.id = ur.role_id AND r.name = 'ANALYST'
        LEFT JOIN tickets t ON t.assignee_id = u.id
        LEFT JOIN statuses s ON s.id = t.status_id
        WHERE u.is_active = TRUE AND u.department_id IS NOT NULL
        GROUP BY u.department_id, u.id, u.names_worker, u.last_name
        ORDER BY load ASC, full_name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64][]domain.AnalystLoad)
	for rows.Next() {
		var deptID int64
		var analyst domain.AnalystLoad
		if err := rows.Scan(&deptID, &analyst.ID, &analyst.FullName, &analyst.Load); err != nil {
			return nil, err
		}
		result[deptID] = append(result[deptID], analyst)
	}
	return result, rows.Err()
}
