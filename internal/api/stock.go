package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"bloodfinder/m/domain"
)

type stockRequest struct {
	BloodGroup domain.BloodGroup `json:"bloodGroup"`
	Quantity   *int              `json:"quantity"`
	ExpiryDate string            `json:"expiryDate"`
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, domain.Validationf("expiryDate must be YYYY-MM-DD or RFC 3339")
	}
	return t.UTC(), nil
}

func (h *Handler) addStock(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleBloodBank) {
		return
	}
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Quantity == nil || req.ExpiryDate == "" {
		respondError(w, http.StatusBadRequest, "bloodGroup, quantity and expiryDate are required")
		return
	}
	expiry, err := parseDate(req.ExpiryDate)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	entry, err := h.svc.Ledger.Add(r.Context(), currentAccount(r), domain.StockInput{
		BloodGroup: req.BloodGroup,
		Quantity:   *req.Quantity,
		ExpiryDate: expiry,
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

func (h *Handler) listStock(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleBloodBank) {
		return
	}
	entries, err := h.svc.Ledger.List(r.Context(), currentAccount(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *Handler) updateStock(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleBloodBank) {
		return
	}
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "quantity is required")
		return
	}
	if req.BloodGroup != "" {
		respondError(w, http.StatusBadRequest, "bloodGroup cannot be changed")
		return
	}
	var expiry time.Time
	if req.ExpiryDate != "" {
		var err error
		if expiry, err = parseDate(req.ExpiryDate); err != nil {
			h.respondErr(w, r, err)
			return
		}
	}

	entry, err := h.svc.Ledger.Update(r.Context(), currentAccount(r), chi.URLParam(r, "id"), *req.Quantity, expiry)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if entry == nil {
		respondJSON(w, http.StatusOK, map[string]string{"message": "Stock entry removed."})
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (h *Handler) deleteStock(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleBloodBank) {
		return
	}
	if err := h.svc.Ledger.Delete(r.Context(), currentAccount(r), chi.URLParam(r, "id")); err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Stock entry removed."})
}

func (h *Handler) myStock(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleBloodBank) {
		return
	}
	totals, err := h.svc.Ledger.Totals(r.Context(), currentAccount(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, totals)
}

func (h *Handler) listDonations(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleBloodBank) {
		return
	}
	donations, err := h.svc.Ledger.Donations(r.Context(), currentAccount(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, donations)
}
