package handlers_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rfpmarket/db"
	"rfpmarket/internal/auth"
	"rfpmarket/internal/handlers"
	"rfpmarket/internal/logging"
	"rfpmarket/internal/mail"
	"rfpmarket/internal/notify"
	"rfpmarket/internal/payments"
	"rfpmarket/internal/ws"
)

var errNotFound = errors.New("not found")

// MockStorage implements handlers.StorageInterface with canned data and
// recorded mutations.
type MockStorage struct {
	users         map[int]*db.User
	usersByEmail  map[string]*db.User
	rfps          map[int]*db.Rfp
	rfis          map[int]*db.Rfi
	notifications map[int]*db.Notification
	attachment    *db.RfiAttachment
	attachmentRfi *db.Rfi
	messages      []db.RfiMessageDetail
	boosted       []db.BoostedAnalytics
	bulkCount     int64

	GetRfpFunc func(ctx context.Context, id int) (*db.Rfp, error)

	createdRfis          []*db.Rfi
	createdMessages      []*db.RfiMessage
	createdAttachments   []*db.RfiAttachment
	createdNotifications []*db.Notification
	createdSessions      []*db.RfpViewSession
	statusUpdates        map[int]string
	bulkCalls            []bulkCall
	recordViewCalls      []recordViewCall
	recordBidCalls       []recordBidCall
	deletedRfis          []int
	deletedNotifications []int
	featuredRfps         []int
	nextID               int
}

type bulkCall struct {
	ownerID int
	status  string
}

type recordViewCall struct {
	rfpID    int
	duration int
}

type recordBidCall struct {
	rfpID  int
	userID int
}

func newMockStorage() *MockStorage {
	return &MockStorage{
		users:         map[int]*db.User{},
		usersByEmail:  map[string]*db.User{},
		rfps:          map[int]*db.Rfp{},
		rfis:          map[int]*db.Rfi{},
		notifications: map[int]*db.Notification{},
		statusUpdates: map[int]string{},
		nextID:        100,
	}
}

func (m *MockStorage) addUser(u *db.User) *db.User {
	m.users[u.ID] = u
	m.usersByEmail[u.Email] = u
	return u
}

func (m *MockStorage) id() int {
	m.nextID++
	return m.nextID
}

func (m *MockStorage) CreateUser(ctx context.Context, u *db.User) error {
	if _, ok := m.usersByEmail[u.Email]; ok {
		return errors.New("duplicate email")
	}
	u.ID = m.id()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.addUser(u)
	return nil
}

func (m *MockStorage) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	if u, ok := m.usersByEmail[email]; ok {
		return u, nil
	}
	return nil, errNotFound
}

func (m *MockStorage) GetUser(ctx context.Context, id int) (*db.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, errNotFound
}

func (m *MockStorage) UpdateUser(ctx context.Context, u *db.User) error { return nil }

func (m *MockStorage) CreateRfp(ctx context.Context, r *db.Rfp) error {
	r.ID = m.id()
	r.CreatedAt = time.Now()
	m.rfps[r.ID] = r
	return nil
}

func (m *MockStorage) GetRfp(ctx context.Context, id int) (*db.Rfp, error) {
	if m.GetRfpFunc != nil {
		return m.GetRfpFunc(ctx, id)
	}
	if r, ok := m.rfps[id]; ok {
		return r, nil
	}
	return nil, errNotFound
}

func (m *MockStorage) GetRfps(ctx context.Context, limit, offset int) ([]db.Rfp, error) {
	out := []db.Rfp{}
	for _, r := range m.rfps {
		out = append(out, *r)
	}
	return out, nil
}

func (m *MockStorage) GetUserRfps(ctx context.Context, organizationID, limit, offset int) ([]db.Rfp, error) {
	out := []db.Rfp{}
	for _, r := range m.rfps {
		if r.OrganizationID == organizationID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *MockStorage) UpdateRfp(ctx context.Context, r *db.Rfp) error { return nil }

func (m *MockStorage) DeleteRfp(ctx context.Context, id int) error {
	delete(m.rfps, id)
	return nil
}

func (m *MockStorage) SetRfpFeatured(ctx context.Context, id int) error {
	m.featuredRfps = append(m.featuredRfps, id)
	return nil
}

func (m *MockStorage) CreateRfi(ctx context.Context, r *db.Rfi) error {
	r.ID = m.id()
	r.CreatedAt = time.Now()
	m.rfis[r.ID] = r
	m.createdRfis = append(m.createdRfis, r)
	return nil
}

func (m *MockStorage) GetRfi(ctx context.Context, id int) (*db.Rfi, error) {
	if r, ok := m.rfis[id]; ok {
		return r, nil
	}
	return nil, errNotFound
}

func (m *MockStorage) GetRfisForRfp(ctx context.Context, rfpID int) ([]db.Rfi, error) {
	out := []db.Rfi{}
	for _, r := range m.rfis {
		if r.RfpID == rfpID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *MockStorage) GetRfisByEmail(ctx context.Context, email string) ([]db.Rfi, error) {
	out := []db.Rfi{}
	for _, r := range m.rfis {
		if r.Email == email {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *MockStorage) UpdateRfiStatus(ctx context.Context, id int, status string) error {
	m.statusUpdates[id] = status
	if r, ok := m.rfis[id]; ok {
		r.Status = status
	}
	return nil
}

func (m *MockStorage) BulkUpdateRfiStatus(ctx context.Context, ownerID int, status string) (int64, error) {
	m.bulkCalls = append(m.bulkCalls, bulkCall{ownerID: ownerID, status: status})
	return m.bulkCount, nil
}

func (m *MockStorage) DeleteRfi(ctx context.Context, id int) error {
	m.deletedRfis = append(m.deletedRfis, id)
	delete(m.rfis, id)
	return nil
}

func (m *MockStorage) CreateRfiMessage(ctx context.Context, msg *db.RfiMessage) error {
	msg.ID = m.id()
	msg.CreatedAt = time.Now()
	m.createdMessages = append(m.createdMessages, msg)
	return nil
}

func (m *MockStorage) GetRfiMessages(ctx context.Context, rfiID int) ([]db.RfiMessageDetail, error) {
	return m.messages, nil
}

func (m *MockStorage) CreateRfiAttachment(ctx context.Context, a *db.RfiAttachment) error {
	a.ID = m.id()
	a.CreatedAt = time.Now()
	m.createdAttachments = append(m.createdAttachments, a)
	return nil
}

func (m *MockStorage) GetRfiAttachment(ctx context.Context, id int) (*db.RfiAttachment, error) {
	if m.attachment != nil && m.attachment.ID == id {
		return m.attachment, nil
	}
	return nil, errNotFound
}

func (m *MockStorage) GetRfiForAttachment(ctx context.Context, attachmentID int) (*db.Rfi, error) {
	if m.attachmentRfi != nil {
		return m.attachmentRfi, nil
	}
	return nil, errNotFound
}

func (m *MockStorage) CreateNotification(ctx context.Context, n *db.Notification) error {
	n.ID = m.id()
	n.CreatedAt = time.Now()
	m.notifications[n.ID] = n
	m.createdNotifications = append(m.createdNotifications, n)
	return nil
}

func (m *MockStorage) GetNotification(ctx context.Context, id int) (*db.Notification, error) {
	if n, ok := m.notifications[id]; ok {
		return n, nil
	}
	return nil, errNotFound
}

func (m *MockStorage) GetNotificationsForUser(ctx context.Context, userID int) ([]db.Notification, error) {
	out := []db.Notification{}
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *MockStorage) GetUnreadNotificationCount(ctx context.Context, userID int) (int, error) {
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *MockStorage) MarkNotificationRead(ctx context.Context, id int) error {
	if n, ok := m.notifications[id]; ok {
		n.IsRead = true
	}
	return nil
}

func (m *MockStorage) MarkAllNotificationsRead(ctx context.Context, userID int) error {
	for _, n := range m.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (m *MockStorage) DeleteNotification(ctx context.Context, id int) error {
	m.deletedNotifications = append(m.deletedNotifications, id)
	delete(m.notifications, id)
	return nil
}

func (m *MockStorage) CreateViewSession(ctx context.Context, v *db.RfpViewSession) error {
	v.ID = m.id()
	v.ViewedAt = time.Now()
	m.createdSessions = append(m.createdSessions, v)
	return nil
}

func (m *MockStorage) RecordView(ctx context.Context, rfpID, durationSeconds int) error {
	m.recordViewCalls = append(m.recordViewCalls, recordViewCall{rfpID: rfpID, duration: durationSeconds})
	return nil
}

func (m *MockStorage) RecordBid(ctx context.Context, rfpID, userID int) error {
	m.recordBidCalls = append(m.recordBidCalls, recordBidCall{rfpID: rfpID, userID: userID})
	return nil
}

func (m *MockStorage) GetBoostedAnalytics(ctx context.Context, ownerID int) ([]db.BoostedAnalytics, error) {
	return m.boosted, nil
}

// fakeUploader returns a deterministic URL without touching storage.
type fakeUploader struct {
	uploaded []string
}

func (f *fakeUploader) Upload(ctx context.Context, fileName, contentType string, body io.Reader) (string, error) {
	f.uploaded = append(f.uploaded, fileName)
	return "https://files.test/" + fileName, nil
}

type testEnv struct {
	store    *MockStorage
	handler  *handlers.Handler
	sessions *auth.Manager
	hub      *ws.Hub
	notifier *notify.Service
	uploader *fakeUploader
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMockStorage()
	sessions := auth.NewManager("test-secret", time.Hour)
	hub := ws.NewHub()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	uploader := &fakeUploader{}
	notifier := notify.NewService(store, hub, logger)

	h := handlers.NewHandler(handlers.Deps{
		Store:    store,
		Sessions: sessions,
		Log:      logger,
		Hub:      hub,
		Notifier: notifier,
		Uploader: uploader,
		Payments: payments.Manual{},
		Mailer:   mail.Noop{},
	})

	return &testEnv{store: store, handler: h, sessions: sessions, hub: hub, notifier: notifier, uploader: uploader}
}

// asUser attaches a valid session cookie for the given identity.
func (e *testEnv) asUser(t *testing.T, req *http.Request, userID int, email string) *http.Request {
	t.Helper()
	token, err := e.sessions.GenerateToken(userID, email)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	return req
}

// do runs the handler behind the auth middleware, as routed in main.
func (e *testEnv) do(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.RequireAuth(h).ServeHTTP(w, req)
	return w
}
