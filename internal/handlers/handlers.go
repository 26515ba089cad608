package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"rfpmarket/internal/auth"
	"rfpmarket/internal/logging"
	"rfpmarket/internal/mail"
	"rfpmarket/internal/notify"
	"rfpmarket/internal/payments"
	"rfpmarket/internal/upload"
	"rfpmarket/internal/ws"
)

// Handler glues storage and the collaborator services to the HTTP layer.
type Handler struct {
	Store    StorageInterface
	Sessions *auth.Manager
	Log      logging.Logger
	Hub      *ws.Hub
	Notifier *notify.Service
	Uploader upload.Uploader
	Payments payments.Provider
	Mailer   mail.Mailer
}

type Deps struct {
	Store    StorageInterface
	Sessions *auth.Manager
	Log      logging.Logger
	Hub      *ws.Hub
	Notifier *notify.Service
	Uploader upload.Uploader
	Payments payments.Provider
	Mailer   mail.Mailer
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		Store:    d.Store,
		Sessions: d.Sessions,
		Log:      d.Log,
		Hub:      d.Hub,
		Notifier: d.Notifier,
		Uploader: d.Uploader,
		Payments: d.Payments,
		Mailer:   d.Mailer,
	}
}

// PingHandler answers "ok" for liveness checks.
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type ctxKey int

const sessionKey ctxKey = iota

// RequireAuth resolves the session cookie and stores the identity in the
// request context; 401 without a valid session.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.Sessions.SessionFromRequest(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

func sessionFrom(r *http.Request) auth.Session {
	sess, _ := r.Context().Value(sessionKey).(auth.Session)
	return sess
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError writes the generic client-facing message. Detailed causes
// belong in the server log only.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

type PaginationParams struct {
	Limit  int
	Offset int
}

// parsePaginationParams parses limit and offset with defaults and caps.
func parsePaginationParams(r *http.Request) PaginationParams {
	params := PaginationParams{Limit: 20, Offset: 0}

	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 100 {
			params.Limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil && o >= 0 {
			params.Offset = o
		}
	}
	return params
}
