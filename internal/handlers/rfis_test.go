package handlers_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"rfpmarket/db"
	"rfpmarket/internal/handlers/testutils"

	"github.com/stretchr/testify/require"
)

const (
	ownerID     = 1
	ownerEmail  = "owner@acme.test"
	bidderID    = 2
	bidderEmail = "bob@builders.test"
	otherID     = 3
	otherEmail  = "mallory@other.test"
)

// seedConversation sets up an RFP owned by user 1 with a pending RFI
// from user 2.
func seedConversation(e *testEnv) (*db.Rfp, *db.Rfi) {
	e.store.addUser(&db.User{ID: ownerID, Email: ownerEmail, CompanyName: "Acme Construction"})
	e.store.addUser(&db.User{ID: bidderID, Email: bidderEmail, CompanyName: "Bob Builders"})
	e.store.addUser(&db.User{ID: otherID, Email: otherEmail, CompanyName: "Other Co"})

	rfp := &db.Rfp{ID: 10, OrganizationID: ownerID, Title: "Warehouse renovation", Status: "open"}
	e.store.rfps[rfp.ID] = rfp

	rfi := &db.Rfi{ID: 20, RfpID: rfp.ID, Email: bidderEmail, Message: "When is the walkthrough?", Status: "pending"}
	e.store.rfis[rfi.ID] = rfi
	return rfp, rfi
}

func TestGetRfiMessagesForbiddenForStranger(t *testing.T) {
	e := newTestEnv(t)
	seedConversation(e)

	req := newRequest(http.MethodGet, "/api/rfis/20/messages", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"id": "20"})
	req = e.asUser(t, req, otherID, otherEmail)

	w := e.do(e.handler.GetRfiMessagesHandler, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	// Generic body: must not reveal which branch failed.
	require.JSONEq(t, `{"message":"Unauthorized"}`, w.Body.String())
}

func TestGetRfiMessagesAsSubmitter(t *testing.T) {
	e := newTestEnv(t)
	seedConversation(e)
	e.store.messages = []db.RfiMessageDetail{
		{RfiMessage: db.RfiMessage{ID: 30, RfiID: 20, SenderID: bidderID, Message: "hello"}, SenderEmail: bidderEmail},
	}

	req := newRequest(http.MethodGet, "/api/rfis/20/messages", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"id": "20"})
	req = e.asUser(t, req, bidderID, bidderEmail)

	w := e.do(e.handler.GetRfiMessagesHandler, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "hello")
}

func TestGetRfiMessagesRequiresSession(t *testing.T) {
	e := newTestEnv(t)
	seedConversation(e)

	req := newRequest(http.MethodGet, "/api/rfis/20/messages", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"id": "20"})

	w := e.do(e.handler.GetRfiMessagesHandler, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostRfiMessageRejectsEmpty(t *testing.T) {
	e := newTestEnv(t)
	seedConversation(e)

	body, contentType := multipartBody(t, "   ", nil)
	req := newRequest(http.MethodPost, "/api/rfis/20/messages", body)
	req.Header.Set("Content-Type", contentType)
	req = testutils.WithChiURLParams(req, map[string]string{"id": "20"})
	req = e.asUser(t, req, bidderID, bidderEmail)

	w := e.do(e.handler.PostRfiMessageHandler, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, e.store.createdMessages)
}

func TestPostRfiMessageOwnerReplyTransitionsStatus(t *testing.T) {
	e := newTestEnv(t)
	_, rfi := seedConversation(e)

	body, contentType := multipartBody(t, "Walkthrough is next Tuesday", nil)
	req := newRequest(http.MethodPost, "/api/rfis/20/messages", body)
	req.Header.Set("Content-Type", contentType)
	req = testutils.WithChiURLParams(req, map[string]string{"id": "20"})
	req = e.asUser(t, req, ownerID, ownerEmail)

	w := e.do(e.handler.PostRfiMessageHandler, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "responded", e.store.statusUpdates[rfi.ID])

	// The submitter's account gets an rfi_response notification.
	require.Len(t, e.store.createdNotifications, 1)
	n := e.store.createdNotifications[0]
	require.Equal(t, bidderID, n.UserID)
	require.Equal(t, "rfi_response", n.Type)
	require.Equal(t, rfi.ID, n.RelatedID)
}

func TestPostRfiMessageSubmitterKeepsStatus(t *testing.T) {
	e := newTestEnv(t)
	_, rfi := seedConversation(e)

	body, contentType := multipartBody(t, "Any update?", nil)
	req := newRequest(http.MethodPost, "/api/rfis/20/messages", body)
	req.Header.Set("Content-Type", contentType)
	req = testutils.WithChiURLParams(req, map[string]string{"id": "20"})
	req = e.asUser(t, req, bidderID, bidderEmail)

	w := e.do(e.handler.PostRfiMessageHandler, req)

	require.Equal(t, http.StatusCreated, w.Code)
	_, changed := e.store.statusUpdates[rfi.ID]
	require.False(t, changed)

	// Owner is notified instead.
	require.Len(t, e.store.createdNotifications, 1)
	require.Equal(t, ownerID, e.store.createdNotifications[0].UserID)
	require.Equal(t, "rfi_message", e.store.createdNotifications[0].Type)
}

func TestPostRfiMessageSkipsBadFiles(t *testing.T) {
	e := newTestEnv(t)
	seedConversation(e)

	files := []testFile{
		{name: "site plan (v2).pdf", contentType: "application/pdf", content: strings.Repeat("a", 128)},
		{name: "huge.pdf", contentType: "application/pdf", content: "", size: 6 << 20},
		{name: "malware.exe", contentType: "application/x-msdownload", content: "MZ"},
	}
	body, contentType := multipartBody(t, "", files)
	req := newRequest(http.MethodPost, "/api/rfis/20/messages", body)
	req.Header.Set("Content-Type", contentType)
	req = testutils.WithChiURLParams(req, map[string]string{"id": "20"})
	req = e.asUser(t, req, bidderID, bidderEmail)

	w := e.do(e.handler.PostRfiMessageHandler, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, e.store.createdMessages, 1)
	require.Len(t, e.store.createdAttachments, 1)
	// Filename is sanitized: only alphanumerics, dot, underscore, hyphen survive.
	require.Equal(t, "siteplanv2.pdf", e.store.createdAttachments[0].FileName)
	require.Equal(t, []string{"siteplanv2.pdf"}, e.uploader.uploaded)
}

func TestPostRfiMessageAllFilesInvalidNoText(t *testing.T) {
	e := newTestEnv(t)
	seedConversation(e)

	files := []testFile{{name: "malware.exe", contentType: "application/x-msdownload", content: "MZ"}}
	body, contentType := multipartBody(t, "", files)
	req := newRequest(http.MethodPost, "/api/rfis/20/messages", body)
	req.Header.Set("Content-Type", contentType)
	req = testutils.WithChiURLParams(req, map[string]string{"id": "20"})
	req = e.asUser(t, req, bidderID, bidderEmail)

	w := e.do(e.handler.PostRfiMessageHandler, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, e.store.createdMessages)
}

func TestCreateRfiNotifiesOwner(t *testing.T) {
	e := newTestEnv(t)
	seedConversation(e)

	req := newRequest(http.MethodPost, "/api/rfps/10/rfis",
		strings.NewReader(`{"message":"What is the budget ceiling?"}`))
	req.Header.Set("Content-Type", "application/json")
	req = testutils.WithChiURLParams(req, map[string]string{"rfpId": "10"})
	req = e.asUser(t, req, bidderID, bidderEmail)

	w := e.do(e.handler.CreateRfiHandler, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, e.store.createdRfis, 1)
	require.Equal(t, "pending", e.store.createdRfis[0].Status)
	require.Equal(t, bidderEmail, e.store.createdRfis[0].Email)

	require.Len(t, e.store.createdNotifications, 1)
	require.Equal(t, ownerID, e.store.createdNotifications[0].UserID)
	require.Equal(t, "rfi_received", e.store.createdNotifications[0].Type)
}

func TestUpdateRfiStatusOwnerOnly(t *testing.T) {
	e := newTestEnv(t)
	seedConversation(e)

	req := newRequest(http.MethodPut, "/api/rfps/10/rfi/20/status",
		strings.NewReader(`{"status":"responded"}`))
	req.Header.Set("Content-Type", "application/json")
	req = testutils.WithChiURLParams(req, map[string]string{"rfpId": "10", "rfiId": "20"})
	req = e.asUser(t, req, bidderID, bidderEmail)

	w := e.do(e.handler.UpdateRfiStatusHandler, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	req = newRequest(http.MethodPut, "/api/rfps/10/rfi/20/status",
		strings.NewReader(`{"status":"pending"}`))
	req.Header.Set("Content-Type", "application/json")
	req = testutils.WithChiURLParams(req, map[string]string{"rfpId": "10", "rfiId": "20"})
	req = e.asUser(t, req, ownerID, ownerEmail)

	w = e.do(e.handler.UpdateRfiStatusHandler, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "pending", e.store.statusUpdates[20])
}

func TestUpdateRfiStatusRejectsBadEnum(t *testing.T) {
	e := newTestEnv(t)
	seedConversation(e)

	req := newRequest(http.MethodPut, "/api/rfps/10/rfi/20/status",
		strings.NewReader(`{"status":"archived"}`))
	req.Header.Set("Content-Type", "application/json")
	req = testutils.WithChiURLParams(req, map[string]string{"rfpId": "10", "rfiId": "20"})
	req = e.asUser(t, req, ownerID, ownerEmail)

	w := e.do(e.handler.UpdateRfiStatusHandler, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkRfiStatusScopedToCaller(t *testing.T) {
	e := newTestEnv(t)
	seedConversation(e)
	e.store.bulkCount = 3

	req := newRequest(http.MethodPut, "/api/rfis/bulk-status",
		strings.NewReader(`{"status":"responded"}`))
	req.Header.Set("Content-Type", "application/json")
	req = e.asUser(t, req, ownerID, ownerEmail)

	w := e.do(e.handler.BulkRfiStatusHandler, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"updated":3}`, w.Body.String())
	require.Len(t, e.store.bulkCalls, 1)
	require.Equal(t, ownerID, e.store.bulkCalls[0].ownerID)
	require.Equal(t, "responded", e.store.bulkCalls[0].status)
}

func TestDeleteRfiParticipantsOnly(t *testing.T) {
	e := newTestEnv(t)
	seedConversation(e)

	req := newRequest(http.MethodDelete, "/api/rfis/20", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"id": "20"})
	req = e.asUser(t, req, otherID, otherEmail)

	w := e.do(e.handler.DeleteRfiHandler, req)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Empty(t, e.store.deletedRfis)

	req = newRequest(http.MethodDelete, "/api/rfis/20", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"id": "20"})
	req = e.asUser(t, req, bidderID, bidderEmail)

	w = e.do(e.handler.DeleteRfiHandler, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []int{20}, e.store.deletedRfis)
}

func TestDownloadAttachmentRedirectsParticipant(t *testing.T) {
	e := newTestEnv(t)
	_, rfi := seedConversation(e)
	e.store.attachment = &db.RfiAttachment{ID: 40, MessageID: 30, FileName: "plan.pdf", FileURL: "https://files.test/plan.pdf"}
	e.store.attachmentRfi = rfi

	req := newRequest(http.MethodGet, "/api/attachments/40/download", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"attachmentId": "40"})
	req = e.asUser(t, req, ownerID, ownerEmail)

	w := e.do(e.handler.DownloadAttachmentHandler, req)

	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "https://files.test/plan.pdf", w.Header().Get("Location"))
}

func TestDownloadAttachmentForbiddenForStranger(t *testing.T) {
	e := newTestEnv(t)
	_, rfi := seedConversation(e)
	e.store.attachment = &db.RfiAttachment{ID: 40, MessageID: 30, FileURL: "https://files.test/plan.pdf"}
	e.store.attachmentRfi = rfi

	req := newRequest(http.MethodGet, "/api/attachments/40/download", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"attachmentId": "40"})
	req = e.asUser(t, req, otherID, otherEmail)

	w := e.do(e.handler.DownloadAttachmentHandler, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRfiAccessDeniedWhenRfpGone(t *testing.T) {
	e := newTestEnv(t)
	_, rfi := seedConversation(e)
	delete(e.store.rfps, rfi.RfpID)

	req := newRequest(http.MethodGet, "/api/rfis/20/messages", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"id": "20"})
	req = e.asUser(t, req, bidderID, bidderEmail)

	w := e.do(e.handler.GetRfiMessagesHandler, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

// helpers

type testFile struct {
	name        string
	contentType string
	content     string
	size        int64 // synthesized size when content itself stays small
}

func multipartBody(t *testing.T, message string, files []testFile) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if message != "" {
		require.NoError(t, mw.WriteField("message", message))
	}
	for _, f := range files {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="files"; filename="`+f.name+`"`)
		hdr.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		content := f.content
		if f.size > 0 {
			content = strings.Repeat("x", int(f.size))
		}
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newRequest(method, target string, body io.Reader) *http.Request {
	return httptest.NewRequest(method, target, body)
}
