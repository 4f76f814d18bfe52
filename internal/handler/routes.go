package handler

import (
	"net/http"

	"github.com/Dan9191/loanflow/internal/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// RouterConfig carries the cross-cutting pieces of the router
type RouterConfig struct {
	Authenticator middleware.Authenticator
	// LoginLimit wraps the login route; nil disables throttling
	LoginLimit func(http.Handler) http.Handler
	// Metrics serves /metrics when set
	Metrics http.Handler
	Log     *logrus.Logger
}

// NewRouter builds the API routes
func NewRouter(h *Handler, cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RecoveryMiddleware(cfg.Log), middleware.LoggingMiddleware(cfg.Log))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "no such route"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method_not_allowed", Message: "method not allowed for this route"})
	})

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	// Public routes
	public := r.PathPrefix("/api/auth").Subrouter()
	public.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	var login http.Handler = http.HandlerFunc(h.Login)
	if cfg.LoginLimit != nil {
		login = cfg.LoginLimit(login)
	}
	public.Handle("/login", login).Methods(http.MethodPost)

	// Protected routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg.Authenticator, cfg.Log))
	api.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)

	api.HandleFunc("/loans/apply", h.ApplyLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans", h.ListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}", h.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/approve", h.ApproveLoan).Methods(http.MethodPatch)
	api.HandleFunc("/loans/{id}/reject", h.RejectLoan).Methods(http.MethodPatch)

	api.HandleFunc("/admin/users", h.ListUsers).Methods(http.MethodGet)
	api.HandleFunc("/admin/users/{id}/role", h.ChangeRole).Methods(http.MethodPut)
	api.HandleFunc("/admin/users/{id}/active", h.SetActive).Methods(http.MethodPut)
	api.HandleFunc("/admin/metrics", h.AdminMetrics).Methods(http.MethodGet)

	api.HandleFunc("/market/key-rate", h.KeyRate).Methods(http.MethodGet)
	return r
}
