// Package notify persists notification rows and fans them out over the
// WebSocket hub. Delivery is best-effort: the row is the source of
// truth, a missed push is only a log line.
package notify

import (
	"context"

	"rfpmarket/db"
	"rfpmarket/internal/logging"
	"rfpmarket/internal/ws"
)

type Store interface {
	CreateNotification(ctx context.Context, n *db.Notification) error
}

type Pusher interface {
	Send(userID int, ev ws.Event)
}

type Service struct {
	store Store
	hub   Pusher
	log   logging.Logger
}

func NewService(store Store, hub Pusher, log logging.Logger) *Service {
	return &Service{store: store, hub: hub, log: log}
}

// Notify inserts the row, then pushes it to any connected sockets of the
// recipient. The returned notification carries the generated id.
func (s *Service) Notify(ctx context.Context, userID int, typ, title, message string, relatedID int, relatedType string) (*db.Notification, error) {
	n := &db.Notification{
		UserID:      userID,
		Type:        typ,
		Title:       title,
		Message:     message,
		RelatedID:   relatedID,
		RelatedType: relatedType,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, err
	}

	s.hub.Send(userID, ws.Event{Type: "notification", Data: n})
	s.log.Debug(ctx, "notification created", "userId", userID, "type", typ, "id", n.ID)
	return n, nil
}
