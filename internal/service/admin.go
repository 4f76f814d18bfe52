package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/loanflow/internal/auth"
	"github.com/Dan9191/loanflow/internal/models"
	"github.com/Dan9191/loanflow/internal/repository"
	"github.com/sirupsen/logrus"
)

// AdminService handles user management and dashboard metrics
type AdminService struct {
	users UserStore
	loans LoanStore
	log   *logrus.Logger
}

// NewAdminService initializes a new admin service
func NewAdminService(users UserStore, loans LoanStore, log *logrus.Logger) *AdminService {
	return &AdminService{users: users, loans: loans, log: log}
}

func authorize(p models.Principal, a auth.Action) error {
	if err := auth.Authorize(p, a); err != nil {
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	}
	return nil
}

// ListUsers returns all users, or those with role when role is set
func (s *AdminService) ListUsers(ctx context.Context, actor models.Principal, role models.Role) ([]models.User, error) {
	if err := authorize(actor, auth.ActionUserList); err != nil {
		return nil, err
	}
	return s.users.ListUsers(ctx, role)
}

// ChangeRole assigns role to user id
func (s *AdminService) ChangeRole(ctx context.Context, actor models.Principal, id int64, role models.Role) (*models.User, error) {
	if err := authorize(actor, auth.ActionUserChangeRole); err != nil {
		return nil, err
	}
	role, ok := models.ParseRole(string(role))
	if !ok {
		return nil, &ValidationError{Fields: []FieldError{{Field: "role", Message: "is not a known role"}}}
	}

	user, err := s.users.UpdateUserRole(ctx, id, role)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": id, "role": role, "actor": actor.Username}).Info("User role changed")
	return user, nil
}

// SetActive enables or disables user id
func (s *AdminService) SetActive(ctx context.Context, actor models.Principal, id int64, active bool) (*models.User, error) {
	if err := authorize(actor, auth.ActionUserSetActive); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateUserActive(ctx, id, active)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": id, "active": active, "actor": actor.Username}).Info("User activation changed")
	return user, nil
}

// Metrics returns dashboard counts for an admin
func (s *AdminService) Metrics(ctx context.Context, actor models.Principal) (*models.AdminMetrics, error) {
	if err := authorize(actor, auth.ActionMetricsView); err != nil {
		return nil, err
	}
	return s.Collect(ctx)
}

// Collect gathers dashboard counts without an actor; used by the scheduler
func (s *AdminService) Collect(ctx context.Context) (*models.AdminMetrics, error) {
	m := &models.AdminMetrics{}
	counts := []struct {
		role models.Role
		dst  *int64
	}{
		{models.RoleCustomer, &m.Customers},
		{models.RoleAnalyst, &m.Analysts},
		{models.RoleAdmin, &m.Admins},
	}
	for _, c := range counts {
		n, err := s.users.CountUsersByRole(ctx, c.role)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}

	byStatus, err := s.loans.CountLoansByStatus(ctx)
	if err != nil {
		return nil, err
	}
	m.ByStatus = byStatus
	for _, n := range byStatus {
		m.Loans += n
	}
	return m, nil
}
