package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Dan9191/loanflow/internal/integrations/cbr"
	"github.com/Dan9191/loanflow/internal/models"
	"github.com/Dan9191/loanflow/internal/service"
	"github.com/sirupsen/logrus"
)

// AuthUseCase is the account side of the API
type AuthUseCase interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, *models.User, error)
	Me(ctx context.Context, p models.Principal) (*models.User, error)
}

// LoanUseCase is the application lifecycle
type LoanUseCase interface {
	Apply(ctx context.Context, rec models.ApplicantRecord, owner models.Principal) (*models.LoanApplication, error)
	Transition(ctx context.Context, id int64, target models.LoanStatus, actor models.Principal) (*models.LoanApplication, error)
	Get(ctx context.Context, id int64, viewer models.Principal) (*models.LoanApplication, error)
	List(ctx context.Context, q models.LoanQuery, viewer models.Principal) (*models.LoanPage, error)
}

// AdminUseCase is user management and dashboard counts
type AdminUseCase interface {
	ListUsers(ctx context.Context, actor models.Principal, role models.Role) ([]models.User, error)
	ChangeRole(ctx context.Context, actor models.Principal, id int64, role models.Role) (*models.User, error)
	SetActive(ctx context.Context, actor models.Principal, id int64, active bool) (*models.User, error)
	Metrics(ctx context.Context, actor models.Principal) (*models.AdminMetrics, error)
}

// KeyRateSource provides the central bank key rate
type KeyRateSource interface {
	KeyRate(ctx context.Context) (cbr.KeyRate, error)
}

// Handler serves the JSON API
type Handler struct {
	auth     AuthUseCase
	loans    LoanUseCase
	admin    AdminUseCase
	rates    KeyRateSource
	log      *logrus.Logger
	validate *Validator
}

// NewHandler wires the use cases. rates may be nil, in which case the key
// rate endpoint answers 503.
func NewHandler(auth AuthUseCase, loans LoanUseCase, admin AdminUseCase, rates KeyRateSource, log *logrus.Logger) *Handler {
	return &Handler{
		auth:     auth,
		loans:    loans,
		admin:    admin,
		rates:    rates,
		log:      log,
		validate: NewValidator(),
	}
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string               `json:"error"`
	Message string               `json:"message"`
	Details []service.FieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to status codes. Anything unrecognised is
// logged and reported as a bare 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_failed", Message: "request is invalid", Details: verr.Fields})
	case errors.Is(err, service.ErrValidation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_failed", Message: err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid_credentials", Message: service.ErrInvalidCredentials.Error()})
	case errors.Is(err, service.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "forbidden", Message: "operation not permitted for this role"})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: err.Error()})
	case errors.Is(err, service.ErrIllegalTransition):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "illegal_transition", Message: err.Error()})
	case errors.Is(err, service.ErrConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "conflict", Message: err.Error()})
	default:
		h.log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Errorf("Request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "internal server error"})
	}
}

// decode reads a JSON body into dst and runs struct validation
func (h *Handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &service.ValidationError{Fields: []service.FieldError{{Field: "body", Message: "must be a valid JSON object"}}}
	}
	return h.validate.Struct(dst)
}
