package domain

import "time"

// TicketComment is a free-text note on a ticket, visible to participants.
type TicketComment struct {
	ID           int64
	TicketID     int64
	AuthorUserID int64
	AuthorName   string
	Body         string
	CreatedAt    time.Time
}

// TicketAttachment records uploaded file metadata; the bytes live outside
// the workflow's scope.
type TicketAttachment struct {
	ID             int64
	TicketID       int64
	UploaderUserID int64
	FileName       string
	MimeType       string
	FilePath       string
	FileSize       *int64
	ChecksumSHA256 *string
	CreatedAt      time.Time
}
