package api

import (
	"net/http"
	"strconv"

	"bloodfinder/m/domain"
)

func queryInt(r *http.Request, name string) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, domain.Validationf("%s must be a number", name)
	}
	return n, nil
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year")
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	month, err := queryInt(r, "month")
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	page, err := h.svc.Notifier.List(r.Context(), currentAccount(r), year, month)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *Handler) markNotificationsRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.svc.Notifier.MarkAllRead(r.Context(), currentAccount(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Notifications marked as read.",
		"updated": updated,
	})
}
