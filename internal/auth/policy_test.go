package auth

import (
	"errors"
	"testing"

	"github.com/Dan9191/loanflow/internal/models"
)

func principal(role models.Role) models.Principal {
	return models.Principal{UserID: 1, Username: "u", Role: role, Active: true}
}

func TestAuthorize_Table(t *testing.T) {
	all := []models.Role{models.RoleCustomer, models.RoleAnalyst, models.RoleAdmin}
	want := map[Action][]models.Role{
		ActionLoanCreate:     all,
		ActionLoanApprove:    {models.RoleAnalyst, models.RoleAdmin},
		ActionLoanReject:     {models.RoleAnalyst, models.RoleAdmin},
		ActionLoanViewAny:    {models.RoleAnalyst, models.RoleAdmin},
		ActionUserChangeRole: {models.RoleAdmin},
		ActionUserSetActive:  {models.RoleAdmin},
		ActionUserList:       {models.RoleAdmin},
		ActionMetricsView:    {models.RoleAdmin},
	}

	for action, allowed := range want {
		for _, role := range all {
			expect := false
			for _, r := range allowed {
				if r == role {
					expect = true
				}
			}
			err := Authorize(principal(role), action)
			if expect && err != nil {
				t.Errorf("%s as %s: unexpected %v", action, role, err)
			}
			if !expect && !errors.Is(err, ErrDenied) {
				t.Errorf("%s as %s: want ErrDenied, got %v", action, role, err)
			}
		}
	}
}

func TestAuthorize_InactiveDenied(t *testing.T) {
	p := principal(models.RoleAdmin)
	p.Active = false
	if Allowed(p, ActionLoanCreate) {
		t.Fatal("inactive admin must be denied")
	}
}

func TestAuthorize_UnknownActionDenied(t *testing.T) {
	if Allowed(principal(models.RoleAdmin), Action("loan:delete")) {
		t.Fatal("unknown action must be denied")
	}
}

func TestTransitionAction(t *testing.T) {
	if a, ok := TransitionAction(models.StatusApproved); !ok || a != ActionLoanApprove {
		t.Fatalf("APPROVED -> %v %v", a, ok)
	}
	if a, ok := TransitionAction(models.StatusRejected); !ok || a != ActionLoanReject {
		t.Fatalf("REJECTED -> %v %v", a, ok)
	}
	if _, ok := TransitionAction(models.StatusSubmitted); ok {
		t.Fatal("SUBMITTED must not be a transition target")
	}
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)
	hash, err := h.Hash("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "s3cret" {
		t.Fatal("hash must not equal the raw password")
	}
	if !h.Matches("s3cret", hash) {
		t.Fatal("expected match")
	}
	if h.Matches("wrong", hash) {
		t.Fatal("expected mismatch")
	}
}
