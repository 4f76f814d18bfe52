package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Dan9191/loanflow/internal/models"
	"github.com/sirupsen/logrus"
)

type contextKey string

const principalKey contextKey = "principal"

// Authenticator resolves a bearer token to the current principal
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Principal, error)
}

// WithPrincipal stores p in ctx
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the principal set by AuthMiddleware
func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	return p, ok
}

// AuthMiddleware rejects requests without a valid bearer token. Every
// failure gets the same 401 body so callers cannot tell a bad signature
// from an expired token or a disabled account.
func AuthMiddleware(authn Authenticator, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}

			p, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				log.WithFields(logrus.Fields{"path": r.URL.Path, "error": err}).Debug("Authentication failed")
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="loanflow"`)
	writeJSONError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
