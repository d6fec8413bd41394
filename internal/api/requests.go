package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bloodfinder/m/domain"
)

const maxBodyBytes = 1 << 20

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var in domain.RequestInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	request, err := h.svc.Registry.Create(r.Context(), currentAccount(r), in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Emergency request created successfully!",
		"request": request,
	})
}

func (h *Handler) listRequestsForBank(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleBloodBank) {
		return
	}
	requests, err := h.svc.Registry.ListForBank(r.Context(), currentAccount(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, requests)
}

func (h *Handler) myRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.svc.Registry.Mine(r.Context(), currentAccount(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, requests)
}

// updateRequestBody is a partial edit: fields left out keep their value.
type updateRequestBody struct {
	domain.RequestInput
	Version int `json:"version,omitempty"`
}

func (h *Handler) updateRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unable to read body")
		return
	}
	var meta struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	request, err := h.svc.Registry.Update(r.Context(), currentAccount(r), chi.URLParam(r, "id"), meta.Version,
		func(in *domain.RequestInput) error {
			payload := updateRequestBody{RequestInput: *in}
			decoder := json.NewDecoder(bytes.NewReader(body))
			decoder.DisallowUnknownFields()
			if err := decoder.Decode(&payload); err != nil {
				return domain.Validationf("%s", err.Error())
			}
			*in = payload.RequestInput
			return nil
		})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Request updated successfully!",
		"request": request,
	})
}

func (h *Handler) closeRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Registry.Close(r.Context(), currentAccount(r), chi.URLParam(r, "id")); err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Request closed successfully."})
}

func (h *Handler) fulfillRequest(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleBloodBank) {
		return
	}
	request, donation, err := h.svc.Fulfiller.Fulfill(r.Context(), currentAccount(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message":  "Request marked as fulfilled and stock updated!",
		"request":  request,
		"donation": donation,
	})
}
