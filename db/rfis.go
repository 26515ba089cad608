package db

import (
	"context"
	"time"
)

// Rfi (question/interest submission against one Rfp). The submitter is
// identified by email, not a foreign key: a submission may predate the
// account.
type Rfi struct {
	ID        int       `db:"id" json:"id"`
	RfpID     int       `db:"rfp_id" json:"rfpId"`
	Email     string    `db:"email" json:"email"`
	Message   string    `db:"message" json:"message"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// RfiMessage is one entry in the RFI conversation thread, append-only.
type RfiMessage struct {
	ID        int       `db:"id" json:"id"`
	RfiID     int       `db:"rfi_id" json:"rfiId"`
	SenderID  int       `db:"sender_id" json:"senderId"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type RfiAttachment struct {
	ID        int       `db:"id" json:"id"`
	MessageID int       `db:"message_id" json:"messageId"`
	FileName  string    `db:"file_name" json:"fileName"`
	FileURL   string    `db:"file_url" json:"fileUrl"`
	FileSize  int64     `db:"file_size" json:"fileSize"`
	MimeType  string    `db:"mime_type" json:"mimeType"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// RfiMessageDetail is a thread message with the sender identity joined in
// and its attachments nested.
type RfiMessageDetail struct {
	RfiMessage
	SenderEmail   string          `db:"sender_email" json:"senderEmail"`
	SenderCompany string          `db:"sender_company" json:"senderCompany"`
	Attachments   []RfiAttachment `db:"-" json:"attachments"`
}

func (s *Storage) CreateRfi(ctx context.Context, r *Rfi) error {
	query := `
        INSERT INTO rfis (rfp_id, email, message, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query, r.RfpID, r.Email, r.Message, r.Status).
		Scan(&r.ID, &r.CreatedAt)
}

func (s *Storage) GetRfi(ctx context.Context, id int) (*Rfi, error) {
	r := &Rfi{}
	query := `SELECT * FROM rfis WHERE id=$1`
	err := s.db.GetContext(ctx, r, query, id)
	return r, err
}

func (s *Storage) GetRfisForRfp(ctx context.Context, rfpID int) ([]Rfi, error) {
	query := `SELECT * FROM rfis WHERE rfp_id=$1 ORDER BY created_at DESC`
	rfis := []Rfi{}
	err := s.db.SelectContext(ctx, &rfis, query, rfpID)
	return rfis, err
}

func (s *Storage) GetRfisByEmail(ctx context.Context, email string) ([]Rfi, error) {
	query := `SELECT * FROM rfis WHERE lower(email)=lower($1) ORDER BY created_at DESC`
	rfis := []Rfi{}
	err := s.db.SelectContext(ctx, &rfis, query, email)
	return rfis, err
}

func (s *Storage) UpdateRfiStatus(ctx context.Context, id int, status string) error {
	query := `UPDATE rfis SET status=$1 WHERE id=$2`
	_, err := s.db.ExecContext(ctx, query, status, id)
	return err
}

// BulkUpdateRfiStatus sets the status for every RFI submitted against the
// owner's RFPs and returns how many rows changed.
func (s *Storage) BulkUpdateRfiStatus(ctx context.Context, ownerID int, status string) (int64, error) {
	query := `
        UPDATE rfis SET status=$1
        WHERE rfp_id IN (SELECT id FROM rfps WHERE organization_id=$2)`
	res, err := s.db.ExecContext(ctx, query, status, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteRfi removes the RFI; messages and attachments go with it via
// ON DELETE CASCADE.
func (s *Storage) DeleteRfi(ctx context.Context, id int) error {
	query := `DELETE FROM rfis WHERE id=$1`
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}

func (s *Storage) CreateRfiMessage(ctx context.Context, m *RfiMessage) error {
	query := `
        INSERT INTO rfi_messages (rfi_id, sender_id, message)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query, m.RfiID, m.SenderID, m.Message).
		Scan(&m.ID, &m.CreatedAt)
}

// GetRfiMessages returns the conversation thread in ascending creation
// order with sender identity and attachments resolved.
func (s *Storage) GetRfiMessages(ctx context.Context, rfiID int) ([]RfiMessageDetail, error) {
	query := `
        SELECT m.id, m.rfi_id, m.sender_id, m.message, m.created_at,
               u.email AS sender_email, u.company_name AS sender_company
        FROM rfi_messages m
        JOIN users u ON m.sender_id = u.id
        WHERE m.rfi_id = $1
        ORDER BY m.created_at ASC`
	messages := []RfiMessageDetail{}
	if err := s.db.SelectContext(ctx, &messages, query, rfiID); err != nil {
		return nil, err
	}

	attQuery := `
        SELECT a.* FROM rfi_attachments a
        JOIN rfi_messages m ON a.message_id = m.id
        WHERE m.rfi_id = $1
        ORDER BY a.id ASC`
	attachments := []RfiAttachment{}
	if err := s.db.SelectContext(ctx, &attachments, attQuery, rfiID); err != nil {
		return nil, err
	}

	byMessage := map[int][]RfiAttachment{}
	for _, a := range attachments {
		byMessage[a.MessageID] = append(byMessage[a.MessageID], a)
	}
	for i := range messages {
		messages[i].Attachments = byMessage[messages[i].ID]
		if messages[i].Attachments == nil {
			messages[i].Attachments = []RfiAttachment{}
		}
	}
	return messages, nil
}

func (s *Storage) CreateRfiAttachment(ctx context.Context, a *RfiAttachment) error {
	query := `
        INSERT INTO rfi_attachments (message_id, file_name, file_url, file_size, mime_type)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query,
		a.MessageID, a.FileName, a.FileURL, a.FileSize, a.MimeType).
		Scan(&a.ID, &a.CreatedAt)
}

func (s *Storage) GetRfiAttachment(ctx context.Context, id int) (*RfiAttachment, error) {
	a := &RfiAttachment{}
	query := `SELECT * FROM rfi_attachments WHERE id=$1`
	err := s.db.GetContext(ctx, a, query, id)
	return a, err
}

// GetRfiForAttachment resolves the RFI an attachment hangs off, for the
// participant check on downloads.
func (s *Storage) GetRfiForAttachment(ctx context.Context, attachmentID int) (*Rfi, error) {
	r := &Rfi{}
	query := `
        SELECT r.* FROM rfis r
        JOIN rfi_messages m ON m.rfi_id = r.id
        JOIN rfi_attachments a ON a.message_id = m.id
        WHERE a.id = $1`
	err := s.db.GetContext(ctx, r, query, attachmentID)
	return r, err
}
