package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/incidex/incidex/internal/domain"
)

// CatalogRepository serves the shared lookup tables.
type CatalogRepository interface {
	Statuses(ctx context.Context) ([]domain.Status, error)
	Priorities(ctx context.Context) ([]domain.Priority, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	Departments(ctx context.Context) ([]domain.Department, error)
	StatusNameByID(ctx context.Context, id int64) (string, error)
	StatusIDByName(ctx context.Context, name string) (int64, error)
	CreateDepartment(ctx context.Context, name string) (*domain.Department, error)
	DeleteDepartment(ctx context.Context, id int64) error
	CreateCategory(ctx context.Context, name string, description *string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

type catalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository builds the repository.
func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepository{pool: pool}
}

func (r *catalogRepository) Statuses(ctx context.Context) ([]domain.Status, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, is_terminal FROM statuses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Status
	for rows.Next() {
		var status domain.Status
		if err := rows.Scan(&status.ID, &status.Name, &status.IsTerminal); err != nil {
			return nil, err
		}
		result = append(result, status)
	}
	return result, rows.Err()
}

func (r *catalogRepository) Priorities(ctx context.Context) ([]domain.Priority, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM priorities ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Priority
	for rows.Next() {
		var priority domain.Priority
		if err := rows.Scan(&priority.ID, &priority.Name); err != nil {
			return nil, err
		}
		result = append(result, priority)
	}
	return result, rows.Err()
}

func (r *catalogRepository) Categories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Description); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}

func (r *catalogRepository) Departments(ctx context.Context) ([]domain.Department, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM departments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Department
	for rows.Next() {
		var dept domain.Department
		if err := rows.Scan(&dept.ID, &dept.Name); err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}

func (r *catalogRepository) StatusNameByID(ctx context.Context, id int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM statuses WHERE id=$1`, id).Scan(&name)
	return name, err
}

func (r *catalogRepository) StatusIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM statuses WHERE UPPER(name)=UPPER($1)`, name).Scan(&id)
	return id, err
}

func (r *catalogRepository) CreateDepartment(ctx context.Context, name string) (*domain.Department, error) {
	dept := &domain.Department{Name: name}
	if err := r.pool.QueryRow(ctx,
		`INSERT INTO departments (name) VALUES ($1) RETURNING id`, name,
	).Scan(&dept.ID); err != nil {
		return nil, err
	}
	return dept, nil
}

func (r *catalogRepository) DeleteDepartment(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM departments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *catalogRepository) CreateCategory(ctx context.Context, name string, description *string) (*domain.Category, error) {
	category := &domain.Category{Name: name, Description: description}
	if err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (name, description) VALUES ($1,$2) RETURNING id`, name, description,
	).Scan(&category.ID); err != nil {
		return nil, err
	}
	return category, nil
}

func (r *catalogRepository) DeleteCategory(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
