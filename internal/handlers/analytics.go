package handlers

import (
	"encoding/json"
	"net/http"

	"rfpmarket/db"
)

type trackViewRequest struct {
	RfpID    int `json:"rfpId"`
	Duration int `json:"duration"`
}

// TrackViewHandler records one view event and rolls it into today's
// aggregate. Self-views by the listing owner are reported back as
// skipped and never touch the counters.
func (h *Handler) TrackViewHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req trackViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if req.RfpID <= 0 || req.Duration < 0 {
		respondError(w, http.StatusBadRequest, "rfpId and a non-negative duration are required")
		return
	}

	rfp, err := h.Store.GetRfp(r.Context(), req.RfpID)
	if err != nil {
		respondError(w, http.StatusNotFound, "RFP not found")
		return
	}

	if rfp.OrganizationID == sess.UserID {
		respondJSON(w, http.StatusOK, map[string]bool{"skipped": true})
		return
	}

	// The session row goes in first so the distinct-viewer recount in
	// RecordView sees the current viewer.
	session := &db.RfpViewSession{RfpID: rfp.ID, UserID: sess.UserID, ViewDuration: req.Duration}
	if err := h.Store.CreateViewSession(r.Context(), session); err != nil {
		h.Log.Error(r.Context(), "create view session", "rfpId", rfp.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to track view")
		return
	}
	if err := h.Store.RecordView(r.Context(), rfp.ID, req.Duration); err != nil {
		h.Log.Error(r.Context(), "record view", "rfpId", rfp.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to track view")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"skipped": false})
}

type trackBidRequest struct {
	RfpID int `json:"rfpId"`
}

// TrackBidHandler bumps the daily bid counter and marks the bidder's
// latest view session converted.
func (h *Handler) TrackBidHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req trackBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if req.RfpID <= 0 {
		respondError(w, http.StatusBadRequest, "rfpId is required")
		return
	}

	rfp, err := h.Store.GetRfp(r.Context(), req.RfpID)
	if err != nil {
		respondError(w, http.StatusNotFound, "RFP not found")
		return
	}
	if rfp.OrganizationID == sess.UserID {
		respondJSON(w, http.StatusOK, map[string]bool{"skipped": true})
		return
	}

	if err := h.Store.RecordBid(r.Context(), rfp.ID, sess.UserID); err != nil {
		h.Log.Error(r.Context(), "record bid", "rfpId", rfp.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to track bid")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"skipped": false})
}

// GetBoostedAnalyticsHandler reports the latest daily aggregates for the
// caller's featured listings, zero-valued when nothing was recorded yet.
func (h *Handler) GetBoostedAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	rows, err := h.Store.GetBoostedAnalytics(r.Context(), sess.UserID)
	if err != nil {
		h.Log.Error(r.Context(), "boosted analytics", "userId", sess.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to get analytics")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}
