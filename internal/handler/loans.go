package handler

import (
	"net/http"
	"strconv"

	"github.com/Dan9191/loanflow/internal/middleware"
	"github.com/Dan9191/loanflow/internal/models"
	"github.com/Dan9191/loanflow/internal/service"
	"github.com/gorilla/mux"
)

type applyRequest struct {
	FullName       string   `json:"fullName" validate:"required,max=200"`
	Amount         *float64 `json:"amount" validate:"required,gt=0"`
	Tenure         *int     `json:"tenure" validate:"required,gt=0,max=600"`
	MonthlyIncome  *float64 `json:"monthlyIncome"`
	MonthlyDebt    *float64 `json:"monthlyDebt"`
	CreditScore    *int     `json:"creditScore" validate:"omitempty,max=1000"`
	EmploymentType string   `json:"employmentType" validate:"max=32"`
	Purpose        string   `json:"purpose" validate:"max=200"`
}

func (req applyRequest) record() models.ApplicantRecord {
	return models.ApplicantRecord{
		FullName:       req.FullName,
		Amount:         req.Amount,
		Tenure:         req.Tenure,
		MonthlyIncome:  req.MonthlyIncome,
		MonthlyDebt:    req.MonthlyDebt,
		CreditScore:    req.CreditScore,
		EmploymentType: req.EmploymentType,
		Purpose:        req.Purpose,
	}
}

// ApplyLoan submits a new application for the caller
func (h *Handler) ApplyLoan(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, _ := middleware.PrincipalFrom(r.Context())
	loan, err := h.loans.Apply(r.Context(), req.record(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

// ListLoans returns a page of applications visible to the caller
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	q, err := parseLoanQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, _ := middleware.PrincipalFrom(r.Context())
	page, err := h.loans.List(r.Context(), q, p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetLoan returns one application
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, _ := middleware.PrincipalFrom(r.Context())
	loan, err := h.loans.Get(r.Context(), id, p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// ApproveLoan moves an application to APPROVED
func (h *Handler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusApproved)
}

// RejectLoan moves an application to REJECTED
func (h *Handler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusRejected)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, target models.LoanStatus) {
	p, _ := middleware.PrincipalFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	loan, err := h.loans.Transition(r.Context(), id, target, p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, &service.ValidationError{Fields: []service.FieldError{{Field: "id", Message: "must be a positive integer"}}}
	}
	return id, nil
}

func parseLoanQuery(r *http.Request) (models.LoanQuery, error) {
	v := r.URL.Query()
	q := models.LoanQuery{
		SortBy:    v.Get("sortBy"),
		Direction: v.Get("direction"),
		Status:    models.LoanStatus(v.Get("status")),
	}
	verr := &service.ValidationError{}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &q.Page}, {"size", &q.Size}} {
		raw := v.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			verr.Fields = append(verr.Fields, service.FieldError{Field: p.name, Message: "must be an integer"})
			continue
		}
		*p.dst = n
	}
	if len(verr.Fields) > 0 {
		return q, verr
	}
	return q, nil
}
