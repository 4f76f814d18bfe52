package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Dan9191/loanflow/internal/auth"
	"github.com/Dan9191/loanflow/internal/metrics"
	"github.com/Dan9191/loanflow/internal/models"
	"github.com/Dan9191/loanflow/internal/repository"
	"github.com/Dan9191/loanflow/internal/risk"
	"github.com/Dan9191/loanflow/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	defaultSortBy   = "createdAt"
)

// LoanService owns the application lifecycle:
// SUBMITTED -> APPROVED | REJECTED, both terminal.
type LoanService struct {
	loans      LoanStore
	log        *logrus.Logger
	metrics    metrics.Recorder
	hmacSecret string
	now        func() time.Time
}

// NewLoanService initializes a new loan service
func NewLoanService(loans LoanStore, log *logrus.Logger, rec metrics.Recorder, hmacSecret string) *LoanService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &LoanService{
		loans:      loans,
		log:        log,
		metrics:    rec,
		hmacSecret: hmacSecret,
		now:        time.Now,
	}
}

// Apply scores the applicant and stores a new SUBMITTED application owned by owner
func (s *LoanService) Apply(ctx context.Context, rec models.ApplicantRecord, owner models.Principal) (*models.LoanApplication, error) {
	if err := auth.Authorize(owner, auth.ActionLoanCreate); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrForbidden, err)
	}
	if err := validateApplicant(rec); err != nil {
		return nil, err
	}

	eval := risk.Evaluate(rec)
	now := s.now().UTC()
	loan := &models.LoanApplication{
		UserID:              owner.UserID,
		FullName:            strings.TrimSpace(rec.FullName),
		Amount:              *rec.Amount,
		Tenure:              *rec.Tenure,
		MonthlyIncome:       valueOr(rec.MonthlyIncome),
		MonthlyDebt:         valueOr(rec.MonthlyDebt),
		CreditScore:         valueOr(rec.CreditScore),
		EmploymentType:      strings.ToUpper(strings.TrimSpace(rec.EmploymentType)),
		Purpose:             strings.TrimSpace(rec.Purpose),
		DTI:                 eval.DTI,
		RiskScore:           eval.RiskScore,
		EligibilityDecision: eval.Decision,
		InterestRate:        eval.InterestRate,
		Status:              models.StatusSubmitted,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if s.hmacSecret != "" {
		loan.HMAC = utils.GenerateHMAC(loan, s.hmacSecret)
	}

	if err := s.loans.CreateLoan(ctx, loan); err != nil {
		return nil, err
	}

	s.metrics.RecordApplication(loan.EligibilityDecision)
	s.log.WithFields(logrus.Fields{
		"loan_id":    loan.ID,
		"owner":      owner.Username,
		"decision":   loan.EligibilityDecision,
		"risk_score": loan.RiskScore,
	}).Info("Loan application submitted")
	return loan, nil
}

// Transition moves a SUBMITTED application to target on behalf of actor.
// The role check runs before the lookup, so a caller without the role always
// gets ErrForbidden and learns nothing about the application.
func (s *LoanService) Transition(ctx context.Context, id int64, target models.LoanStatus, actor models.Principal) (*models.LoanApplication, error) {
	action, ok := auth.TransitionAction(target)
	if !ok {
		s.metrics.RecordTransition(target, metrics.OutcomeIllegal)
		return nil, fmt.Errorf("%w: %q is not a valid target", ErrIllegalTransition, target)
	}
	if err := auth.Authorize(actor, action); err != nil {
		s.metrics.RecordTransition(target, metrics.OutcomeForbidden)
		return nil, fmt.Errorf("%w: %w", ErrForbidden, err)
	}

	current, err := s.loans.FindLoanByID(ctx, id)
	if err != nil {
		return nil, s.transitionFailed(target, id, err)
	}
	if current.Status != models.StatusSubmitted {
		s.metrics.RecordTransition(target, metrics.OutcomeIllegal)
		return nil, fmt.Errorf("%w: loan %d is already %s", ErrIllegalTransition, id, current.Status)
	}

	updated, err := s.loans.UpdateLoanStatus(ctx, id, models.StatusSubmitted, target)
	if err != nil {
		return nil, s.transitionFailed(target, id, err)
	}

	s.metrics.RecordTransition(target, metrics.OutcomeApplied)
	s.log.WithFields(logrus.Fields{
		"loan_id": id,
		"status":  target,
		"actor":   actor.Username,
		"role":    actor.Role,
	}).Info("Loan application status changed")
	return updated, nil
}

func (s *LoanService) transitionFailed(target models.LoanStatus, id int64, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.metrics.RecordTransition(target, metrics.OutcomeNotFound)
		return fmt.Errorf("loan %d: %w", id, ErrNotFound)
	case errors.Is(err, repository.ErrStatusConflict):
		s.metrics.RecordTransition(target, metrics.OutcomeIllegal)
		return fmt.Errorf("%w: loan %d was decided concurrently", ErrIllegalTransition, id)
	default:
		s.metrics.RecordTransition(target, metrics.OutcomeError)
		return err
	}
}

// Get returns one application. Customers only see their own; anything else
// is reported as not found.
func (s *LoanService) Get(ctx context.Context, id int64, viewer models.Principal) (*models.LoanApplication, error) {
	loan, err := s.loans.FindLoanByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("loan %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !auth.Allowed(viewer, auth.ActionLoanViewAny) && loan.UserID != viewer.UserID {
		return nil, fmt.Errorf("loan %d: %w", id, ErrNotFound)
	}
	if s.hmacSecret != "" && !utils.VerifyHMAC(loan, s.hmacSecret) {
		s.log.WithField("loan_id", id).Error("Loan analytics seal mismatch")
	}
	return loan, nil
}

// List returns a page of applications visible to viewer
func (s *LoanService) List(ctx context.Context, q models.LoanQuery, viewer models.Principal) (*models.LoanPage, error) {
	q, err := normalizeQuery(q)
	if err != nil {
		return nil, err
	}
	if !auth.Allowed(viewer, auth.ActionLoanViewAny) {
		q.UserID = viewer.UserID
	}

	loans, total, err := s.loans.ListLoans(ctx, q)
	if err != nil {
		return nil, err
	}
	return &models.LoanPage{
		Content:       loans,
		Page:          q.Page,
		Size:          q.Size,
		TotalElements: total,
		TotalPages:    int(math.Ceil(float64(total) / float64(q.Size))),
	}, nil
}

func normalizeQuery(q models.LoanQuery) (models.LoanQuery, error) {
	verr := &ValidationError{}
	if q.Page < 0 {
		verr.add("page", "must not be negative")
	}
	switch {
	case q.Size == 0:
		q.Size = defaultPageSize
	case q.Size < 0 || q.Size > maxPageSize:
		verr.add("size", fmt.Sprintf("must be between 1 and %d", maxPageSize))
	}
	if q.SortBy == "" {
		q.SortBy = defaultSortBy
	} else if !repository.IsSortable(q.SortBy) {
		verr.add("sortBy", "is not a sortable field")
	}
	switch strings.ToLower(q.Direction) {
	case "":
		q.Direction = "desc"
	case "asc", "desc":
		q.Direction = strings.ToLower(q.Direction)
	default:
		verr.add("direction", "must be asc or desc")
	}
	if q.Status != "" {
		if _, ok := models.ParseLoanStatus(string(q.Status)); !ok {
			verr.add("status", "is not a known status")
		}
	}
	return q, verr.orNil()
}

func validateApplicant(rec models.ApplicantRecord) error {
	verr := &ValidationError{}
	if strings.TrimSpace(rec.FullName) == "" {
		verr.add("fullName", "is required")
	}
	switch {
	case rec.Amount == nil:
		verr.add("amount", "is required")
	case *rec.Amount <= 0 || math.IsNaN(*rec.Amount) || math.IsInf(*rec.Amount, 0):
		verr.add("amount", "must be a positive number")
	}
	switch {
	case rec.Tenure == nil:
		verr.add("tenure", "is required")
	case *rec.Tenure <= 0:
		verr.add("tenure", "must be a positive number of months")
	}
	return verr.orNil()
}

func valueOr[T int | float64](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
