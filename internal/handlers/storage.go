package handlers

import (
	"context"

	"rfpmarket/db"
)

type StorageInterface interface {
	CreateUser(ctx context.Context, u *db.User) error
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	GetUser(ctx context.Context, id int) (*db.User, error)
	UpdateUser(ctx context.Context, u *db.User) error

	CreateRfp(ctx context.Context, r *db.Rfp) error
	GetRfp(ctx context.Context, id int) (*db.Rfp, error)
	GetRfps(ctx context.Context, limit, offset int) ([]db.Rfp, error)
	GetUserRfps(ctx context.Context, organizationID, limit, offset int) ([]db.Rfp, error)
	UpdateRfp(ctx context.Context, r *db.Rfp) error
	DeleteRfp(ctx context.Context, id int) error
	SetRfpFeatured(ctx context.Context, id int) error

	CreateRfi(ctx context.Context, r *db.Rfi) error
	GetRfi(ctx context.Context, id int) (*db.Rfi, error)
	GetRfisForRfp(ctx context.Context, rfpID int) ([]db.Rfi, error)
	GetRfisByEmail(ctx context.Context, email string) ([]db.Rfi, error)
	UpdateRfiStatus(ctx context.Context, id int, status string) error
	BulkUpdateRfiStatus(ctx context.Context, ownerID int, status string) (int64, error)
	DeleteRfi(ctx context.Context, id int) error

	CreateRfiMessage(ctx context.Context, m *db.RfiMessage) error
	GetRfiMessages(ctx context.Context, rfiID int) ([]db.RfiMessageDetail, error)
	CreateRfiAttachment(ctx context.Context, a *db.RfiAttachment) error
	GetRfiAttachment(ctx context.Context, id int) (*db.RfiAttachment, error)
	GetRfiForAttachment(ctx context.Context, attachmentID int) (*db.Rfi, error)

	CreateNotification(ctx context.Context, n *db.Notification) error
	GetNotification(ctx context.Context, id int) (*db.Notification, error)
	GetNotificationsForUser(ctx context.Context, userID int) ([]db.Notification, error)
	GetUnreadNotificationCount(ctx context.Context, userID int) (int, error)
	MarkNotificationRead(ctx context.Context, id int) error
	MarkAllNotificationsRead(ctx context.Context, userID int) error
	DeleteNotification(ctx context.Context, id int) error

	CreateViewSession(ctx context.Context, v *db.RfpViewSession) error
	RecordView(ctx context.Context, rfpID, durationSeconds int) error
	RecordBid(ctx context.Context, rfpID, userID int) error
	GetBoostedAnalytics(ctx context.Context, ownerID int) ([]db.BoostedAnalytics, error)
}
