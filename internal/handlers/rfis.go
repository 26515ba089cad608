package handlers

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"rfpmarket/db"
	"rfpmarket/internal/auth"

	"github.com/go-chi/chi/v5"
)

const (
	maxAttachmentSize        = 5 << 20
	maxAttachmentsPerMessage = 5
)

var allowedMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"text/plain": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

var fileNameSanitizer = regexp.MustCompile(`[^A-Za-z0-9._-]`)

func sanitizeFileName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = fileNameSanitizer.ReplaceAllString(name, "")
	if name == "" {
		name = "file"
	}
	return name
}

// rfiRole is the capability the session user holds on an RFI. Downstream
// logic (status transition, who to notify) branches on the same value
// instead of re-deriving it.
type rfiRole int

const (
	roleNone rfiRole = iota
	roleSubmitter
	roleOwner
)

// rfiRoleFor resolves the capability: submitter by stored email, or
// owner of the referenced RFP. A dangling RFP reference denies access.
// The RFP is returned alongside so callers can find the other party.
func (h *Handler) rfiRoleFor(ctx context.Context, sess auth.Session, rfi *db.Rfi) (rfiRole, *db.Rfp) {
	rfp, err := h.Store.GetRfp(ctx, rfi.RfpID)
	if err != nil {
		return roleNone, nil
	}
	if strings.EqualFold(rfi.Email, sess.Email) {
		return roleSubmitter, rfp
	}
	if rfp.OrganizationID == sess.UserID {
		return roleOwner, rfp
	}
	return roleNone, rfp
}

// denyRfi writes the generic 403 and leaves the audit trail server-side;
// the response never reveals which branch failed.
func (h *Handler) denyRfi(w http.ResponseWriter, r *http.Request, rfiID int, action string) {
	sess := sessionFrom(r)
	h.Log.Warn(r.Context(), "unauthorized rfi access",
		"userId", sess.UserID, "rfiId", rfiID, "action", action,
		"path", r.URL.Path, "remote", r.RemoteAddr)
	respondError(w, http.StatusForbidden, "Unauthorized")
}

type rfiSubmitRequest struct {
	Message string `json:"message"`
}

// CreateRfiHandler submits a question against an RFP. The submitter is
// recorded by session email; status starts at "pending".
func (h *Handler) CreateRfiHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	rfpID, ok := rfpIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid rfpId")
		return
	}

	var req rfiSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	rfp, err := h.Store.GetRfp(r.Context(), rfpID)
	if err != nil {
		respondError(w, http.StatusNotFound, "RFP not found")
		return
	}

	rfi := &db.Rfi{
		RfpID:   rfp.ID,
		Email:   sess.Email,
		Message: strings.TrimSpace(req.Message),
		Status:  "pending",
	}
	if err := h.Store.CreateRfi(r.Context(), rfi); err != nil {
		h.Log.Error(r.Context(), "create rfi", "rfpId", rfp.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to submit RFI")
		return
	}

	if rfp.OrganizationID != sess.UserID {
		if _, err := h.Notifier.Notify(r.Context(), rfp.OrganizationID, "rfi_received",
			"New RFI on "+rfp.Title, rfi.Message, rfi.ID, "rfi"); err != nil {
			h.Log.Warn(r.Context(), "rfi notification not created", "rfiId", rfi.ID, "error", err)
		}
	}

	respondJSON(w, http.StatusCreated, rfi)
}

// GetRfpRfisHandler lists RFIs on one of the caller's RFPs.
func (h *Handler) GetRfpRfisHandler(w http.ResponseWriter, r *http.Request) {
	rfp := h.ownedRfp(w, r)
	if rfp == nil {
		return
	}
	rfis, err := h.Store.GetRfisForRfp(r.Context(), rfp.ID)
	if err != nil {
		h.Log.Error(r.Context(), "list rfis", "rfpId", rfp.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to get RFIs")
		return
	}
	respondJSON(w, http.StatusOK, rfis)
}

// GetMyRfisHandler lists RFIs the caller submitted, matched by email.
func (h *Handler) GetMyRfisHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	rfis, err := h.Store.GetRfisByEmail(r.Context(), sess.Email)
	if err != nil {
		h.Log.Error(r.Context(), "list my rfis", "userId", sess.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to get RFIs")
		return
	}
	respondJSON(w, http.StatusOK, rfis)
}

func rfiIDParam(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	return id, err == nil && id > 0
}

// GetRfiMessagesHandler returns the conversation thread, participants only.
func (h *Handler) GetRfiMessagesHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	rfiID, ok := rfiIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid RFI id")
		return
	}

	rfi, err := h.Store.GetRfi(r.Context(), rfiID)
	if err != nil {
		respondError(w, http.StatusNotFound, "RFI not found")
		return
	}
	if role, _ := h.rfiRoleFor(r.Context(), sess, rfi); role == roleNone {
		h.denyRfi(w, r, rfiID, "list_messages")
		return
	}

	messages, err := h.Store.GetRfiMessages(r.Context(), rfiID)
	if err != nil {
		h.Log.Error(r.Context(), "list rfi messages", "rfiId", rfiID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to get messages")
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// validAttachment applies the MIME allow-list and the size cap.
func validAttachment(fh *multipart.FileHeader) bool {
	if fh.Size > maxAttachmentSize {
		return false
	}
	return allowedMimeTypes[strings.ToLower(fh.Header.Get("Content-Type"))]
}

// PostRfiMessageHandler appends a message (plus attachments) to the
// thread. A bad file is skipped and logged, never fatal for the request;
// an owner reply flips the RFI to "responded" and notifies the
// submitter, a submitter message notifies the owner.
func (h *Handler) PostRfiMessageHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	rfiID, ok := rfiIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid RFI id")
		return
	}

	rfi, err := h.Store.GetRfi(r.Context(), rfiID)
	if err != nil {
		respondError(w, http.StatusNotFound, "RFI not found")
		return
	}
	role, rfp := h.rfiRoleFor(r.Context(), sess, rfi)
	if role == roleNone {
		h.denyRfi(w, r, rfiID, "post_message")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil && err != http.ErrNotMultipart {
		respondError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	text := strings.TrimSpace(r.FormValue("message"))

	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File["files"]
	}
	if len(files) > maxAttachmentsPerMessage {
		respondError(w, http.StatusBadRequest, "At most 5 attachments per message")
		return
	}

	// Filter before persisting anything so a text-less message with only
	// rejected files fails validation instead of storing an empty row.
	valid := make([]*multipart.FileHeader, 0, len(files))
	for _, fh := range files {
		if validAttachment(fh) {
			valid = append(valid, fh)
			continue
		}
		h.Log.Warn(r.Context(), "attachment rejected",
			"rfiId", rfiID, "file", fh.Filename,
			"size", fh.Size, "mimeType", fh.Header.Get("Content-Type"))
	}
	if text == "" && len(valid) == 0 {
		respondError(w, http.StatusBadRequest, "Message text or at least one valid file is required")
		return
	}

	msg := &db.RfiMessage{RfiID: rfiID, SenderID: sess.UserID, Message: text}
	if err := h.Store.CreateRfiMessage(r.Context(), msg); err != nil {
		h.Log.Error(r.Context(), "create rfi message", "rfiId", rfiID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to post message")
		return
	}

	attachments := []db.RfiAttachment{}
	for _, fh := range valid {
		att, err := h.storeAttachment(r.Context(), msg.ID, fh)
		if err != nil {
			h.Log.Warn(r.Context(), "attachment skipped",
				"messageId", msg.ID, "file", fh.Filename, "error", err)
			continue
		}
		attachments = append(attachments, *att)
	}

	if role == roleOwner && rfi.Status == "pending" {
		if err := h.Store.UpdateRfiStatus(r.Context(), rfi.ID, "responded"); err != nil {
			h.Log.Error(r.Context(), "update rfi status", "rfiId", rfi.ID, "error", err)
		} else {
			rfi.Status = "responded"
		}
	}

	h.notifyOtherParty(r.Context(), role, rfi, rfp, text)

	detail := db.RfiMessageDetail{RfiMessage: *msg, SenderEmail: sess.Email, Attachments: attachments}
	if sender, err := h.Store.GetUser(r.Context(), sess.UserID); err == nil {
		detail.SenderCompany = sender.CompanyName
	}
	respondJSON(w, http.StatusCreated, detail)
}

func (h *Handler) storeAttachment(ctx context.Context, messageID int, fh *multipart.FileHeader) (*db.RfiAttachment, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := sanitizeFileName(fh.Filename)
	contentType := fh.Header.Get("Content-Type")
	url, err := h.Uploader.Upload(ctx, name, contentType, f)
	if err != nil {
		return nil, err
	}

	att := &db.RfiAttachment{
		MessageID: messageID,
		FileName:  name,
		FileURL:   url,
		FileSize:  fh.Size,
		MimeType:  contentType,
	}
	if err := h.Store.CreateRfiAttachment(ctx, att); err != nil {
		return nil, err
	}
	return att, nil
}

// notifyOtherParty fans out to whichever side of the conversation did
// not send the message. Best-effort: failures are logged only.
func (h *Handler) notifyOtherParty(ctx context.Context, role rfiRole, rfi *db.Rfi, rfp *db.Rfp, text string) {
	switch role {
	case roleSubmitter:
		if rfp == nil {
			return
		}
		if _, err := h.Notifier.Notify(ctx, rfp.OrganizationID, "rfi_message",
			"New message on "+rfp.Title, text, rfi.ID, "rfi"); err != nil {
			h.Log.Warn(ctx, "owner notification not created", "rfiId", rfi.ID, "error", err)
		}
	case roleOwner:
		submitter, err := h.Store.GetUserByEmail(ctx, rfi.Email)
		if err != nil {
			// Submitter has no account; nothing to deliver to.
			return
		}
		title := "Response to your RFI"
		if rfp != nil {
			title = "Response to your RFI on " + rfp.Title
		}
		if _, err := h.Notifier.Notify(ctx, submitter.ID, "rfi_response",
			title, text, rfi.ID, "rfi"); err != nil {
			h.Log.Warn(ctx, "submitter notification not created", "rfiId", rfi.ID, "error", err)
		}
	}
}

type rfiStatusRequest struct {
	Status string `json:"status"`
}

func validRfiStatus(s string) bool {
	return s == "pending" || s == "responded"
}

// UpdateRfiStatusHandler is the owner-only manual override; it bypasses
// message semantics on purpose.
func (h *Handler) UpdateRfiStatusHandler(w http.ResponseWriter, r *http.Request) {
	rfp := h.ownedRfp(w, r)
	if rfp == nil {
		return
	}
	rfiID, ok := rfiIDParam(r, "rfiId")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid RFI id")
		return
	}

	var req rfiStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if !validRfiStatus(req.Status) {
		respondError(w, http.StatusBadRequest, "status must be 'pending' or 'responded'")
		return
	}

	rfi, err := h.Store.GetRfi(r.Context(), rfiID)
	if err != nil || rfi.RfpID != rfp.ID {
		respondError(w, http.StatusNotFound, "RFI not found")
		return
	}

	if err := h.Store.UpdateRfiStatus(r.Context(), rfi.ID, req.Status); err != nil {
		h.Log.Error(r.Context(), "update rfi status", "rfiId", rfi.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}
	rfi.Status = req.Status
	respondJSON(w, http.StatusOK, rfi)
}

// BulkRfiStatusHandler overrides the status of every RFI across the
// caller's RFPs in one statement.
func (h *Handler) BulkRfiStatusHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req rfiStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if !validRfiStatus(req.Status) {
		respondError(w, http.StatusBadRequest, "status must be 'pending' or 'responded'")
		return
	}

	updated, err := h.Store.BulkUpdateRfiStatus(r.Context(), sess.UserID, req.Status)
	if err != nil {
		h.Log.Error(r.Context(), "bulk rfi status", "userId", sess.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to update statuses")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

// DeleteRfiHandler hard-deletes an RFI, participants only.
func (h *Handler) DeleteRfiHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	rfiID, ok := rfiIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid RFI id")
		return
	}

	rfi, err := h.Store.GetRfi(r.Context(), rfiID)
	if err != nil {
		respondError(w, http.StatusNotFound, "RFI not found")
		return
	}
	if role, _ := h.rfiRoleFor(r.Context(), sess, rfi); role == roleNone {
		h.denyRfi(w, r, rfiID, "delete")
		return
	}

	if err := h.Store.DeleteRfi(r.Context(), rfiID); err != nil {
		h.Log.Error(r.Context(), "delete rfi", "rfiId", rfiID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete RFI")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// DownloadAttachmentHandler redirects a participant to the attachment's
// remote URL.
func (h *Handler) DownloadAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	attachmentID, ok := rfiIDParam(r, "attachmentId")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid attachment id")
		return
	}

	att, err := h.Store.GetRfiAttachment(r.Context(), attachmentID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Attachment not found")
		return
	}
	rfi, err := h.Store.GetRfiForAttachment(r.Context(), attachmentID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Attachment not found")
		return
	}
	if role, _ := h.rfiRoleFor(r.Context(), sess, rfi); role == roleNone {
		h.denyRfi(w, r, rfi.ID, "download_attachment")
		return
	}

	http.Redirect(w, r, att.FileURL, http.StatusFound)
}
