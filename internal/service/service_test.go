package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dan9191/loanflow/internal/auth"
	"github.com/Dan9191/loanflow/internal/models"
)

var tokenSecret = []byte("an-unguessable-32-byte-secret!!!")

type spyMetrics struct {
	mu           sync.Mutex
	authFailures []string
}

func (s *spyMetrics) RecordApplication(models.Decision)           {}
func (s *spyMetrics) RecordTransition(models.LoanStatus, string) {}
func (s *spyMetrics) RecordAuthFailure(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authFailures = append(s.authFailures, reason)
}

type authFixture struct {
	store *memStore
	svc   *AuthService
	spy   *spyMetrics
	now   time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		store: newMemStore(),
		spy:   &spyMetrics{},
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	tokens, err := auth.NewTokenManager(tokenSecret, time.Hour, auth.WithClock(func() time.Time { return f.now }))
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	f.svc = NewAuthService(f.store, auth.NewBcryptHasher(4), tokens, quietLogger(), f.spy, "")
	return f
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, " alice ", "s3cret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Username != "alice" || u.Role != models.RoleCustomer || !u.Active {
		t.Fatalf("user = %+v", u)
	}
	if u.PasswordHash == "s3cret" || u.PasswordHash == "" {
		t.Fatal("password stored unhashed")
	}

	if _, err := f.svc.Register(ctx, "alice", "other"); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate: want ErrConflict, got %v", err)
	}
	if _, err := f.svc.Register(ctx, "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty: want ErrValidation, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, "bob", "hunter2"); err != nil {
		t.Fatal(err)
	}

	token, u, err := f.svc.Login(ctx, "bob", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" || u.Username != "bob" {
		t.Fatalf("token=%q user=%+v", token, u)
	}

	tests := []struct {
		name, user, pass, reason string
	}{
		{"wrong password", "bob", "nope", "bad_password"},
		{"unknown user", "mallory", "hunter2", "unknown_user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := f.svc.Login(ctx, tt.user, tt.pass); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("want ErrInvalidCredentials, got %v", err)
			}
		})
	}

	if _, err := f.store.UpdateUserActive(ctx, u.ID, false); err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.svc.Login(ctx, "bob", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("inactive: want ErrInvalidCredentials, got %v", err)
	}

	want := []string{"bad_password", "unknown_user", "inactive"}
	if len(f.spy.authFailures) != len(want) {
		t.Fatalf("auth failures = %v, want %v", f.spy.authFailures, want)
	}
	for i := range want {
		if f.spy.authFailures[i] != want[i] {
			t.Fatalf("auth failures = %v, want %v", f.spy.authFailures, want)
		}
	}
}

func TestAuthenticate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, "carol", "pw"); err != nil {
		t.Fatal(err)
	}
	token, u, err := f.svc.Login(ctx, "carol", "pw")
	if err != nil {
		t.Fatal(err)
	}

	p, err := f.svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.UserID != u.ID || p.Role != models.RoleCustomer || !p.Active {
		t.Fatalf("principal = %+v", p)
	}

	t.Run("role comes from the store", func(t *testing.T) {
		if _, err := f.store.UpdateUserRole(ctx, u.ID, models.RoleAnalyst); err != nil {
			t.Fatal(err)
		}
		p, err := f.svc.Authenticate(ctx, token)
		if err != nil {
			t.Fatal(err)
		}
		if p.Role != models.RoleAnalyst {
			t.Fatalf("Role = %s, want ANALYST", p.Role)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := f.svc.Authenticate(ctx, "not.a.token")
		if !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("want ErrUnauthenticated, got %v", err)
		}
		var verr *auth.VerificationError
		if !errors.As(err, &verr) || verr.Kind != auth.Malformed {
			t.Fatalf("want malformed verification error, got %v", err)
		}
	})

	t.Run("disabled account", func(t *testing.T) {
		if _, err := f.store.UpdateUserActive(ctx, u.ID, false); err != nil {
			t.Fatal(err)
		}
		defer f.store.UpdateUserActive(ctx, u.ID, true)
		if _, err := f.svc.Authenticate(ctx, token); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("want ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		f.now = f.now.Add(2 * time.Hour)
		_, err := f.svc.Authenticate(ctx, token)
		var verr *auth.VerificationError
		if !errors.Is(err, ErrUnauthenticated) || !errors.As(err, &verr) || verr.Kind != auth.Expired {
			t.Fatalf("want expired, got %v", err)
		}
	})
}

func TestMe(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	p := f.store.seedUser("dave", models.RoleAdmin)

	u, err := f.svc.Me(ctx, p)
	if err != nil || u.Username != "dave" {
		t.Fatalf("Me = %+v, %v", u, err)
	}
	if _, err := f.svc.Me(ctx, models.Principal{UserID: 999}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
