package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/loanflow/internal/models"
)

const loanColumns = `id, user_id, full_name, amount, tenure, monthly_income, monthly_debt, credit_score,
	employment_type, purpose, dti, risk_score, eligibility_decision, interest_rate, status, hmac,
	created_at, updated_at`

// sortColumns whitelists the sortable API fields
var sortColumns = map[string]string{
	"id":           "id",
	"createdAt":    "created_at",
	"amount":       "amount",
	"riskScore":    "risk_score",
	"interestRate": "interest_rate",
	"creditScore":  "credit_score",
}

// IsSortable reports whether field may be used as a sort key
func IsSortable(field string) bool {
	_, ok := sortColumns[field]
	return ok
}

// orderClause builds a safe ORDER BY from a whitelisted field and direction
func orderClause(sortBy, direction string) string {
	col, ok := sortColumns[sortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(direction, "asc") {
		dir = "ASC"
	}
	// id breaks ties so pages are stable
	if col == "id" {
		return "ORDER BY id " + dir
	}
	return "ORDER BY " + col + " " + dir + ", id " + dir
}

func scanLoan(row rowScanner) (*models.LoanApplication, error) {
	l := &models.LoanApplication{}
	err := row.Scan(
		&l.ID, &l.UserID, &l.FullName, &l.Amount, &l.Tenure, &l.MonthlyIncome, &l.MonthlyDebt, &l.CreditScore,
		&l.EmploymentType, &l.Purpose, &l.DTI, &l.RiskScore, &l.EligibilityDecision, &l.InterestRate, &l.Status, &l.HMAC,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// CreateLoan inserts a new application and fills its id
func (r *Repository) CreateLoan(ctx context.Context, l *models.LoanApplication) error {
	query := `
		INSERT INTO loan_applications (user_id, full_name, amount, tenure, monthly_income, monthly_debt, credit_score,
			employment_type, purpose, dti, risk_score, eligibility_decision, interest_rate, status, hmac,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
		RETURNING id, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		l.UserID, l.FullName, l.Amount, l.Tenure, l.MonthlyIncome, l.MonthlyDebt, l.CreditScore,
		l.EmploymentType, l.Purpose, l.DTI, l.RiskScore, l.EligibilityDecision, l.InterestRate, l.Status, l.HMAC,
		l.CreatedAt,
	).Scan(&l.ID, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create loan application: %w", err)
	}
	return nil
}

// FindLoanByID retrieves an application by id
func (r *Repository) FindLoanByID(ctx context.Context, id int64) (*models.LoanApplication, error) {
	query := `SELECT ` + loanColumns + ` FROM loan_applications WHERE id = $1`
	l, err := scanLoan(r.db.QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to find loan application: %w", err)
	}
	return l, err
}

// UpdateLoanStatus moves an application from one status to another in a single
// conditional UPDATE. If the row exists but is no longer in from, it returns
// ErrStatusConflict; concurrent callers therefore cannot both succeed.
// Only status and updated_at are ever written after creation.
func (r *Repository) UpdateLoanStatus(ctx context.Context, id int64, from, to models.LoanStatus) (*models.LoanApplication, error) {
	query := `
		UPDATE loan_applications SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = $3
		RETURNING ` + loanColumns
	l, err := scanLoan(r.db.QueryRowContext(ctx, query, to, id, from))
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to update loan status: %w", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM loan_applications WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check loan application: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrStatusConflict
}

// ListLoans returns one page of applications and the total match count
func (r *Repository) ListLoans(ctx context.Context, q models.LoanQuery) ([]models.LoanApplication, int64, error) {
	var (
		where []string
		args  []any
	)
	if q.Status != "" {
		args = append(args, q.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q.UserID != 0 {
		args = append(args, q.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	filter := ""
	if len(where) > 0 {
		filter = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM loan_applications`+filter, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count loan applications: %w", err)
	}

	args = append(args, q.Size, q.Page*q.Size)
	query := fmt.Sprintf(`SELECT %s FROM loan_applications%s %s LIMIT $%d OFFSET $%d`,
		loanColumns, filter, orderClause(q.SortBy, q.Direction), len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list loan applications: %w", err)
	}
	defer rows.Close()

	loans := []models.LoanApplication{}
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan loan application: %w", err)
		}
		loans = append(loans, *l)
	}
	return loans, total, rows.Err()
}

// CountLoansByStatus returns the number of applications per status
func (r *Repository) CountLoansByStatus(ctx context.Context) (map[models.LoanStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM loan_applications GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count loan applications: %w", err)
	}
	defer rows.Close()

	counts := map[models.LoanStatus]int64{
		models.StatusSubmitted: 0,
		models.StatusApproved:  0,
		models.StatusRejected:  0,
	}
	for rows.Next() {
		var (
			status models.LoanStatus
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
