package handler

import (
	"net/http"
	"strings"

	"github.com/Dan9191/loanflow/internal/middleware"
	"github.com/Dan9191/loanflow/internal/models"
	"github.com/Dan9191/loanflow/internal/service"
)

type roleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

type activeRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// ListUsers returns all users, optionally filtered by ?role=
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var role models.Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed, ok := models.ParseRole(raw)
		if !ok {
			h.writeError(w, r, &service.ValidationError{Fields: []service.FieldError{{Field: "role", Message: "is not a known role"}}})
			return
		}
		role = parsed
	}
	p, _ := middleware.PrincipalFrom(r.Context())
	users, err := h.admin.ListUsers(r.Context(), p, role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ChangeRole assigns a new role
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req roleRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	role, _ := models.ParseRole(strings.TrimSpace(req.Role))
	p, _ := middleware.PrincipalFrom(r.Context())
	user, err := h.admin.ChangeRole(r.Context(), p, id, role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// SetActive enables or disables an account
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req activeRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, _ := middleware.PrincipalFrom(r.Context())
	user, err := h.admin.SetActive(r.Context(), p, id, *req.Active)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// AdminMetrics returns dashboard counts
func (h *Handler) AdminMetrics(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	m, err := h.admin.Metrics(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// KeyRate returns the latest central bank key rate
func (h *Handler) KeyRate(w http.ResponseWriter, r *http.Request) {
	if h.rates == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable", Message: "key rate source not configured"})
		return
	}
	kr, err := h.rates.KeyRate(r.Context())
	if err != nil {
		h.log.Warnf("Failed to get key rate: %v", err)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "upstream_error", Message: "failed to get key rate"})
		return
	}
	writeJSON(w, http.StatusOK, kr)
}
