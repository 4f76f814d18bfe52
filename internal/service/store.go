package service

import (
	"context"

	"github.com/Dan9191/loanflow/internal/models"
)

// LoanStore persists credit applications.
// UpdateLoanStatus must be a single conditional write: it fails with
// repository.ErrStatusConflict when the row is no longer in from.
type LoanStore interface {
	CreateLoan(ctx context.Context, l *models.LoanApplication) error
	FindLoanByID(ctx context.Context, id int64) (*models.LoanApplication, error)
	UpdateLoanStatus(ctx context.Context, id int64, from, to models.LoanStatus) (*models.LoanApplication, error)
	ListLoans(ctx context.Context, q models.LoanQuery) ([]models.LoanApplication, int64, error)
	CountLoansByStatus(ctx context.Context) (map[models.LoanStatus]int64, error)
}

// UserStore persists user accounts
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, role models.Role) ([]models.User, error)
	UpdateUserRole(ctx context.Context, id int64, role models.Role) (*models.User, error)
	UpdateUserActive(ctx context.Context, id int64, active bool) (*models.User, error)
	CountUsersByRole(ctx context.Context, role models.Role) (int64, error)
}
