package handlers

import (
	"net/http"
	"strconv"

	"rfpmarket/db"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	notifications, err := h.Store.GetNotificationsForUser(r.Context(), sess.UserID)
	if err != nil {
		h.Log.Error(r.Context(), "list notifications", "userId", sess.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to get notifications")
		return
	}
	respondJSON(w, http.StatusOK, notifications)
}

func (h *Handler) GetUnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	count, err := h.Store.GetUnreadNotificationCount(r.Context(), sess.UserID)
	if err != nil {
		h.Log.Error(r.Context(), "unread count", "userId", sess.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to get unread count")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

// ownedNotification loads the notification and enforces that the caller
// is its recipient.
func (h *Handler) ownedNotification(w http.ResponseWriter, r *http.Request) *db.Notification {
	sess := sessionFrom(r)
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid notification id")
		return nil
	}
	n, err := h.Store.GetNotification(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Notification not found")
		return nil
	}
	if n.UserID != sess.UserID {
		h.Log.Warn(r.Context(), "unauthorized notification access",
			"userId", sess.UserID, "notificationId", n.ID, "path", r.URL.Path, "remote", r.RemoteAddr)
		respondError(w, http.StatusForbidden, "Unauthorized")
		return nil
	}
	return n
}

func (h *Handler) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	n := h.ownedNotification(w, r)
	if n == nil {
		return
	}
	if err := h.Store.MarkNotificationRead(r.Context(), n.ID); err != nil {
		h.Log.Error(r.Context(), "mark notification read", "notificationId", n.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to update notification")
		return
	}
	n.IsRead = true
	respondJSON(w, http.StatusOK, n)
}

func (h *Handler) MarkAllNotificationsReadHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := h.Store.MarkAllNotificationsRead(r.Context(), sess.UserID); err != nil {
		h.Log.Error(r.Context(), "mark all notifications read", "userId", sess.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to update notifications")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	n := h.ownedNotification(w, r)
	if n == nil {
		return
	}
	if err := h.Store.DeleteNotification(r.Context(), n.ID); err != nil {
		h.Log.Error(r.Context(), "delete notification", "notificationId", n.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete notification")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
