package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/incidex/incidex/internal/domain"
)

// AttachmentRepository stores uploaded file metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.TicketAttachment) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketAttachment, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository builds the repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.TicketAttachment) error {
	const query = `
        INSERT INTO ticket_attachments
            (ticket_id, uploader_user_id, file_name, mime_type, file_path, file_size, checksum_sha256)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		attachment.TicketID,
		attachment.UploaderUserID,
		attachment.FileName,
		attachment.MimeType,
		attachment.FilePath,
		attachment.FileSize,
		attachment.ChecksumSHA256,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketAttachment, error) {
	const query = `
        SELECT id, ticket_id, uploader_user_id, file_name, mime_type, file_path,
               file_size, checksum_sha256, created_at
        FROM ticket_attachments WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketAttachment
	for rows.Next() {
		var attachment domain.TicketAttachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.UploaderUserID,
			&attachment.FileName,
			&attachment.MimeType,
			&attachment.FilePath,
			&attachment.FileSize,
			&attachment.ChecksumSHA256,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}
