package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"rfpmarket/db"
	"rfpmarket/internal/auth"
)

type registerRequest struct {
	Email          string   `json:"email"`
	Password       string   `json:"password"`
	CompanyName    string   `json:"companyName"`
	Phone          string   `json:"phone"`
	Certifications []string `json:"certifications"`
}

func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		respondError(w, http.StatusBadRequest, "A valid email is required")
		return
	}
	if len(req.Password) < 8 {
		respondError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.Log.Error(r.Context(), "hash password", "error", err)
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	user := &db.User{
		Email:          req.Email,
		PasswordHash:   hash,
		CompanyName:    strings.TrimSpace(req.CompanyName),
		Phone:          strings.TrimSpace(req.Phone),
		Certifications: req.Certifications,
		Status:         "active",
	}
	if err := h.Store.CreateUser(r.Context(), user); err != nil {
		h.Log.Error(r.Context(), "create user", "email", req.Email, "error", err)
		respondError(w, http.StatusConflict, "Account could not be created")
		return
	}

	// Verification mail is best-effort.
	if err := h.Mailer.Send(r.Context(), user.Email, "Welcome to the RFP marketplace",
		fmt.Sprintf("<p>Your account for %s has been created.</p>", user.CompanyName)); err != nil {
		h.Log.Warn(r.Context(), "verification mail not sent", "userId", user.ID, "error", err)
	}

	token, err := h.Sessions.GenerateToken(user.ID, user.Email)
	if err != nil {
		h.Log.Error(r.Context(), "issue session", "userId", user.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	h.Sessions.SetCookie(w, token)
	respondJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	user, err := h.Store.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.Sessions.GenerateToken(user.ID, user.Email)
	if err != nil {
		h.Log.Error(r.Context(), "issue session", "userId", user.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	h.Sessions.SetCookie(w, token)
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	h.Sessions.ClearCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	user, err := h.Store.GetUser(r.Context(), sess.UserID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Account not found")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	CompanyName    *string  `json:"companyName"`
	Phone          *string  `json:"phone"`
	Certifications []string `json:"certifications"`
}

func (h *Handler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	user, err := h.Store.GetUser(r.Context(), sess.UserID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Account not found")
		return
	}

	if req.CompanyName != nil {
		user.CompanyName = strings.TrimSpace(*req.CompanyName)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Certifications != nil {
		user.Certifications = req.Certifications
	}

	if err := h.Store.UpdateUser(r.Context(), user); err != nil {
		h.Log.Error(r.Context(), "update user", "userId", user.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Profile could not be updated")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
