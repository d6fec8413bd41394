package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"bloodfinder/m/domain"
	"bloodfinder/m/internal/logging"
	"bloodfinder/m/internal/repository"
	"bloodfinder/m/internal/service"
)

// Services are the use cases the HTTP API exposes.
type Services struct {
	Ledger    *service.Ledger
	Registry  *service.Registry
	Fulfiller *service.Fulfiller
	Notifier  *service.Notifier
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	accounts repository.AccountStore
	svc      Services
	secret   string
	origins  []string
	logger   *zap.Logger
}

// New constructs a Handler. origins lists the browser origins allowed by CORS.
func New(accounts repository.AccountStore, svc Services, secret string, origins []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{accounts: accounts, svc: svc, secret: secret, origins: origins, logger: logger}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.login)

		r.Group(func(pr chi.Router) {
			pr.Use(h.authMiddleware)

			pr.Route("/emergency-requests", func(r chi.Router) {
				r.Post("/", h.createRequest)
				r.Get("/", h.listRequestsForBank)
				r.Get("/my-requests", h.myRequests)
				r.Put("/{id}", h.updateRequest)
				r.Delete("/{id}", h.closeRequest)
				r.Put("/{id}/fulfill", h.fulfillRequest)
			})

			pr.Route("/blood-bank", func(r chi.Router) {
				r.Post("/stock", h.addStock)
				r.Get("/stock", h.listStock)
				r.Put("/stock/{id}", h.updateStock)
				r.Delete("/stock/{id}", h.deleteStock)
				r.Get("/my-stock", h.myStock)
				r.Get("/donations", h.listDonations)
			})

			pr.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.listNotifications)
				r.Put("/read", h.markNotificationsRead)
			})
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondErr maps domain error kinds to status codes. Anything else is an
// internal failure: it is logged and the client gets a generic message.
func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondError(w, status, err.Error())
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
