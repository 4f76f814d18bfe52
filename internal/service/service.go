package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/loanflow/internal/auth"
	"github.com/Dan9191/loanflow/internal/metrics"
	"github.com/Dan9191/loanflow/internal/models"
	"github.com/Dan9191/loanflow/internal/repository"
	"github.com/sirupsen/logrus"
)

// Tokens issues and verifies credential tokens
type Tokens interface {
	Issue(username string, role models.Role) (string, error)
	Verify(token string) (auth.Identity, error)
}

// AuthService handles registration, login and per-request authentication
type AuthService struct {
	users       UserStore
	hasher      auth.Hasher
	tokens      Tokens
	log         *logrus.Logger
	metrics     metrics.Recorder
	defaultRole models.Role
}

// NewAuthService initializes a new auth service
func NewAuthService(users UserStore, hasher auth.Hasher, tokens Tokens, log *logrus.Logger, rec metrics.Recorder, defaultRole models.Role) *AuthService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if defaultRole == "" {
		defaultRole = models.RoleCustomer
	}
	return &AuthService{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		log:         log,
		metrics:     rec,
		defaultRole: defaultRole,
	}
}

// Register creates a new active user with the default role
func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	verr := &ValidationError{}
	if username == "" {
		verr.add("username", "is required")
	}
	if strings.TrimSpace(password) == "" {
		verr.add("password", "is required")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	// Hash password
	hashedPassword, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hashedPassword,
		Role:         s.defaultRole,
		Active:       true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: username already exists", ErrConflict)
		}
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Username)
	return user, nil
}

// Login authenticates a user and returns a signed token
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.RecordAuthFailure("unknown_user")
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	// Verify password
	if !s.hasher.Matches(password, user.PasswordHash) {
		s.metrics.RecordAuthFailure("bad_password")
		return "", nil, ErrInvalidCredentials
	}
	if !user.Active {
		s.metrics.RecordAuthFailure("inactive")
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Username, user.Role)
	if err != nil {
		return "", nil, err
	}

	s.log.Infof("User logged in: %s", user.Username)
	return token, user, nil
}

// Authenticate turns a bearer token into a fresh principal. The account must
// still exist and be active; the role comes from the store, so role changes
// apply to tokens issued before them.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.Principal, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		var verr *auth.VerificationError
		if errors.As(err, &verr) {
			s.metrics.RecordAuthFailure(string(verr.Kind))
		}
		return models.Principal{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	user, err := s.users.FindUserByUsername(ctx, id.Username)
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.RecordAuthFailure("unknown_user")
		return models.Principal{}, fmt.Errorf("%w: account no longer exists", ErrUnauthenticated)
	}
	if err != nil {
		return models.Principal{}, err
	}
	if !user.Active {
		s.metrics.RecordAuthFailure("inactive")
		return models.Principal{}, fmt.Errorf("%w: account disabled", ErrUnauthenticated)
	}
	if user.Role != id.Role {
		s.log.WithFields(logrus.Fields{
			"username":   user.Username,
			"token_role": id.Role,
			"role":       user.Role,
		}).Debug("Token role differs from stored role")
	}
	return models.PrincipalFromUser(user), nil
}

// Me returns the account behind p
func (s *AuthService) Me(ctx context.Context, p models.Principal) (*models.User, error) {
	user, err := s.users.FindUserByID(ctx, p.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return user, err
}
