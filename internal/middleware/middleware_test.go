package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/loanflow/internal/models"
	"github.com/sirupsen/logrus"
)

type authFunc func(ctx context.Context, token string) (models.Principal, error)

func (f authFunc) Authenticate(ctx context.Context, token string) (models.Principal, error) {
	return f(ctx, token)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestAuthMiddleware(t *testing.T) {
	alice := models.Principal{UserID: 7, Username: "alice", Role: models.RoleAnalyst, Active: true}
	authn := authFunc(func(_ context.Context, token string) (models.Principal, error) {
		switch token {
		case "good":
			return alice, nil
		case "expired":
			return models.Principal{}, errors.New("token expired")
		default:
			return models.Principal{}, errors.New("token malformed")
		}
	})

	var seen models.Principal
	h := AuthMiddleware(authn, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer good", http.StatusNoContent},
		{"lowercase scheme", "bearer good", http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"basic scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"expired", "Bearer expired", http.StatusUnauthorized},
		{"garbage", "Bearer xyz", http.StatusUnauthorized},
	}

	var bodies []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = models.Principal{}
			req := httptest.NewRequest(http.MethodGet, "/api/loans", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusNoContent && seen.UserID != alice.UserID {
				t.Fatalf("principal not propagated: %+v", seen)
			}
			if tt.want == http.StatusUnauthorized {
				bodies = append(bodies, rec.Body.String())
				if rec.Header().Get("WWW-Authenticate") == "" {
					t.Error("missing WWW-Authenticate")
				}
			}
		})
	}

	for _, b := range bodies[1:] {
		if b != bodies[0] {
			t.Fatalf("401 bodies differ: %q vs %q", bodies[0], b)
		}
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	h := LoggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPatch, "/api/loans/1/approve", nil))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	if line["status"] != float64(http.StatusConflict) || line["method"] != "PATCH" || line["level"] != "warning" {
		t.Fatalf("log line = %v", line)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(quietLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLoginLimiter(t *testing.T) {
	l := NewLoginLimiter(2, time.Minute, quietLogger())
	defer l.Stop()

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("{}"))
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("10.0.0.1:5000"); rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: status %d", i, rec.Code)
		}
	}
	rec := do("10.0.0.1:5001")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt: status %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "30" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if rec := do("10.0.0.2:5000"); rec.Code != http.StatusOK {
		t.Fatalf("other client throttled: %d", rec.Code)
	}

	if l.Clients() != 2 {
		t.Fatalf("Clients = %d", l.Clients())
	}
	l.cleanup(time.Now().Add(3 * time.Minute))
	if l.Clients() != 0 {
		t.Fatalf("idle clients not dropped: %d", l.Clients())
	}
}
