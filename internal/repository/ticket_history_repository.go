package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/incidex/incidex/internal/domain"
)

// TicketHistoryRepository reads audit entries. Rows are only ever written
// inside the ticket repository's transactions.
type TicketHistoryRepository interface {
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistoryRow, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistoryRow, error) {
	const query = `
        SELECT h.id,
               TRIM(u.names_worker || ' ' || u.last_name),
               fs.name, ts.name, h.note, h.created_at
        FROM ticket_history h
        JOIN users u          ON u.id = h.actor_user_id
        LEFT JOIN statuses fs ON fs.id = h.from_status_id
        JOIN statuses ts      ON ts.id = h.to_status_id
        WHERE h.ticket_id=$1 ORDER BY h.created_at DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketHistoryRow
	for rows.Next() {
		var entry domain.TicketHistoryRow
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorName,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
