package db

import (
	"context"
	"time"
)

// Notification is a fan-out record for one user. relatedId/relatedType
// point back at the entity that triggered it.
type Notification struct {
	ID          int       `db:"id" json:"id"`
	UserID      int       `db:"user_id" json:"userId"`
	Type        string    `db:"type" json:"type"`
	Title       string    `db:"title" json:"title"`
	Message     string    `db:"message" json:"message"`
	RelatedID   int       `db:"related_id" json:"relatedId"`
	RelatedType string    `db:"related_type" json:"relatedType"`
	IsRead      bool      `db:"is_read" json:"isRead"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

func (s *Storage) CreateNotification(ctx context.Context, n *Notification) error {
	query := `
        INSERT INTO notifications (user_id, type, title, message, related_id, related_type)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, is_read, created_at`
	return s.db.QueryRowContext(ctx, query,
		n.UserID, n.Type, n.Title, n.Message, n.RelatedID, n.RelatedType).
		Scan(&n.ID, &n.IsRead, &n.CreatedAt)
}

func (s *Storage) GetNotification(ctx context.Context, id int) (*Notification, error) {
	n := &Notification{}
	query := `SELECT * FROM notifications WHERE id=$1`
	err := s.db.GetContext(ctx, n, query, id)
	return n, err
}

func (s *Storage) GetNotificationsForUser(ctx context.Context, userID int) ([]Notification, error) {
	query := `SELECT * FROM notifications WHERE user_id=$1 ORDER BY created_at DESC`
	notifications := []Notification{}
	err := s.db.SelectContext(ctx, &notifications, query, userID)
	return notifications, err
}

func (s *Storage) GetUnreadNotificationCount(ctx context.Context, userID int) (int, error) {
	var count int
	query := `SELECT COUNT(1) FROM notifications WHERE user_id=$1 AND is_read=FALSE`
	err := s.db.GetContext(ctx, &count, query, userID)
	return count, err
}

func (s *Storage) MarkNotificationRead(ctx context.Context, id int) error {
	query := `UPDATE notifications SET is_read=TRUE WHERE id=$1`
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}

func (s *Storage) MarkAllNotificationsRead(ctx context.Context, userID int) error {
	query := `UPDATE notifications SET is_read=TRUE WHERE user_id=$1`
	_, err := s.db.ExecContext(ctx, query, userID)
	return err
}

func (s *Storage) DeleteNotification(ctx context.Context, id int) error {
	query := `DELETE FROM notifications WHERE id=$1`
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}
