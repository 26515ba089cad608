package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rfpmarket/db"

	"github.com/go-chi/chi/v5"
)

// featurePriceCents is the flat price for boosting a listing.
const featurePriceCents int64 = 4900

type rfpRequest struct {
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	WalkthroughDate    time.Time `json:"walkthroughDate"`
	RfiDueDate         time.Time `json:"rfiDueDate"`
	DeadlineDate       time.Time `json:"deadlineDate"`
	BudgetMin          int64     `json:"budgetMin"`
	CertificationGoals string    `json:"certificationGoals"`
	Address            string    `json:"address"`
}

func validateRfpRequest(req *rfpRequest) string {
	if strings.TrimSpace(req.Title) == "" || len(req.Title) > 200 {
		return "title is required and max length 200"
	}
	if strings.TrimSpace(req.Description) == "" {
		return "description is required"
	}
	if req.WalkthroughDate.IsZero() || req.RfiDueDate.IsZero() || req.DeadlineDate.IsZero() {
		return "walkthroughDate, rfiDueDate and deadlineDate are required"
	}
	if req.BudgetMin < 0 {
		return "budgetMin must not be negative"
	}
	return ""
}

func (h *Handler) CreateRfpHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	var req rfpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if msg := validateRfpRequest(&req); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	rfp := &db.Rfp{
		OrganizationID:     sess.UserID,
		Title:              strings.TrimSpace(req.Title),
		Description:        req.Description,
		WalkthroughDate:    req.WalkthroughDate,
		RfiDueDate:         req.RfiDueDate,
		DeadlineDate:       req.DeadlineDate,
		BudgetMin:          req.BudgetMin,
		CertificationGoals: req.CertificationGoals,
		Address:            req.Address,
		Status:             "open",
	}
	if err := h.Store.CreateRfp(r.Context(), rfp); err != nil {
		h.Log.Error(r.Context(), "create rfp", "userId", sess.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create RFP")
		return
	}
	respondJSON(w, http.StatusCreated, rfp)
}

func (h *Handler) GetRfpsHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)
	rfps, err := h.Store.GetRfps(r.Context(), params.Limit, params.Offset)
	if err != nil {
		h.Log.Error(r.Context(), "list rfps", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to get RFPs")
		return
	}
	respondJSON(w, http.StatusOK, rfps)
}

func (h *Handler) GetUserRfpsHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	params := parsePaginationParams(r)
	rfps, err := h.Store.GetUserRfps(r.Context(), sess.UserID, params.Limit, params.Offset)
	if err != nil {
		h.Log.Error(r.Context(), "list user rfps", "userId", sess.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to get RFPs")
		return
	}
	respondJSON(w, http.StatusOK, rfps)
}

func rfpIDParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "rfpId"))
	return id, err == nil && id > 0
}

func (h *Handler) GetRfpHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := rfpIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid rfpId")
		return
	}
	rfp, err := h.Store.GetRfp(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "RFP not found")
		return
	}
	respondJSON(w, http.StatusOK, rfp)
}

// ownedRfp loads the RFP and enforces that the session user owns it.
// Writes the error response itself and returns nil when the caller
// should stop.
func (h *Handler) ownedRfp(w http.ResponseWriter, r *http.Request) *db.Rfp {
	sess := sessionFrom(r)
	id, ok := rfpIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid rfpId")
		return nil
	}
	rfp, err := h.Store.GetRfp(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "RFP not found")
		return nil
	}
	if rfp.OrganizationID != sess.UserID {
		h.Log.Warn(r.Context(), "unauthorized rfp access",
			"userId", sess.UserID, "rfpId", rfp.ID, "path", r.URL.Path, "remote", r.RemoteAddr)
		respondError(w, http.StatusForbidden, "Unauthorized")
		return nil
	}
	return rfp
}

func (h *Handler) UpdateRfpHandler(w http.ResponseWriter, r *http.Request) {
	rfp := h.ownedRfp(w, r)
	if rfp == nil {
		return
	}

	var req rfpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if msg := validateRfpRequest(&req); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	rfp.Title = strings.TrimSpace(req.Title)
	rfp.Description = req.Description
	rfp.WalkthroughDate = req.WalkthroughDate
	rfp.RfiDueDate = req.RfiDueDate
	rfp.DeadlineDate = req.DeadlineDate
	rfp.BudgetMin = req.BudgetMin
	rfp.CertificationGoals = req.CertificationGoals
	rfp.Address = req.Address

	if err := h.Store.UpdateRfp(r.Context(), rfp); err != nil {
		h.Log.Error(r.Context(), "update rfp", "rfpId", rfp.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to update RFP")
		return
	}
	respondJSON(w, http.StatusOK, rfp)
}

func (h *Handler) DeleteRfpHandler(w http.ResponseWriter, r *http.Request) {
	rfp := h.ownedRfp(w, r)
	if rfp == nil {
		return
	}
	if err := h.Store.DeleteRfp(r.Context(), rfp.ID); err != nil {
		h.Log.Error(r.Context(), "delete rfp", "rfpId", rfp.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete RFP")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

type featureRequest struct {
	PaymentReference string `json:"paymentReference"`
}

// FeatureRfpHandler marks a listing featured after the billing
// collaborator confirms the payment reference.
func (h *Handler) FeatureRfpHandler(w http.ResponseWriter, r *http.Request) {
	rfp := h.ownedRfp(w, r)
	if rfp == nil {
		return
	}

	var req featureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if err := h.Payments.VerifyPayment(r.Context(), req.PaymentReference, featurePriceCents); err != nil {
		h.Log.Warn(r.Context(), "feature payment rejected",
			"rfpId", rfp.ID, "reference", req.PaymentReference, "error", err)
		respondError(w, http.StatusPaymentRequired, "Payment could not be verified")
		return
	}

	if err := h.Store.SetRfpFeatured(r.Context(), rfp.ID); err != nil {
		h.Log.Error(r.Context(), "feature rfp", "rfpId", rfp.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to feature RFP")
		return
	}

	rfp.Featured = true
	now := time.Now()
	rfp.FeaturedAt = &now
	respondJSON(w, http.StatusOK, rfp)
}
