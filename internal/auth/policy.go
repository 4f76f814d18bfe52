package auth

import (
	"errors"
	"fmt"

	"github.com/Dan9191/loanflow/internal/models"
)

// Action is a protected operation
type Action string

const (
	ActionLoanCreate     Action = "loan:create"
	ActionLoanApprove    Action = "loan:approve"
	ActionLoanReject     Action = "loan:reject"
	ActionLoanViewAny    Action = "loan:view-any"
	ActionUserChangeRole Action = "user:change-role"
	ActionUserSetActive  Action = "user:set-active"
	ActionUserList       Action = "user:list"
	ActionMetricsView    Action = "metrics:view"
)

// ErrDenied is returned when a principal's role does not allow an action
var ErrDenied = errors.New("action not permitted for role")

type roleSet map[models.Role]struct{}

func roles(rs ...models.Role) roleSet {
	s := make(roleSet, len(rs))
	for _, r := range rs {
		s[r] = struct{}{}
	}
	return s
}

// policy is the single source of truth for who may do what.
var policy = map[Action]roleSet{
	ActionLoanCreate:     roles(models.RoleCustomer, models.RoleAnalyst, models.RoleAdmin),
	ActionLoanApprove:    roles(models.RoleAnalyst, models.RoleAdmin),
	ActionLoanReject:     roles(models.RoleAnalyst, models.RoleAdmin),
	ActionLoanViewAny:    roles(models.RoleAnalyst, models.RoleAdmin),
	ActionUserChangeRole: roles(models.RoleAdmin),
	ActionUserSetActive:  roles(models.RoleAdmin),
	ActionUserList:       roles(models.RoleAdmin),
	ActionMetricsView:    roles(models.RoleAdmin),
}

// Authorize returns nil if p may perform a, ErrDenied otherwise.
// Inactive principals and unknown actions are always denied.
func Authorize(p models.Principal, a Action) error {
	allowed, ok := policy[a]
	if !ok || !p.Active {
		return fmt.Errorf("%w: %s as %s", ErrDenied, a, p.Role)
	}
	if _, ok := allowed[p.Role]; !ok {
		return fmt.Errorf("%w: %s as %s", ErrDenied, a, p.Role)
	}
	return nil
}

// Allowed is the boolean form of Authorize
func Allowed(p models.Principal, a Action) bool {
	return Authorize(p, a) == nil
}

// TransitionAction maps a target status to the action that guards it
func TransitionAction(target models.LoanStatus) (Action, bool) {
	switch target {
	case models.StatusApproved:
		return ActionLoanApprove, true
	case models.StatusRejected:
		return ActionLoanReject, true
	}
	return "", false
}
