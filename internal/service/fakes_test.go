package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/Dan9191/loanflow/internal/models"
	"github.com/Dan9191/loanflow/internal/repository"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// memStore is an in-memory LoanStore/UserStore. UpdateLoanStatus is a real
// compare-and-set under the mutex, like the conditional UPDATE in postgres.
type memStore struct {
	mu     sync.Mutex
	loans  map[int64]models.LoanApplication
	users  map[int64]models.User
	nextID int64

	// optional hook to fail calls
	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		loans: map[int64]models.LoanApplication{},
		users: map[int64]models.User{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateLoan(_ context.Context, l *models.LoanApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	l.ID = m.id()
	m.loans[l.ID] = *l
	return nil
}

func (m *memStore) FindLoanByID(_ context.Context, id int64) (*models.LoanApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	l, ok := m.loans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (m *memStore) UpdateLoanStatus(_ context.Context, id int64, from, to models.LoanStatus) (*models.LoanApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if l.Status != from {
		return nil, repository.ErrStatusConflict
	}
	l.Status = to
	l.UpdatedAt = time.Now()
	m.loans[id] = l
	return &l, nil
}

func (m *memStore) ListLoans(_ context.Context, q models.LoanQuery) ([]models.LoanApplication, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LoanApplication
	for _, l := range m.loans {
		if q.Status != "" && l.Status != q.Status {
			continue
		}
		if q.UserID != 0 && l.UserID != q.UserID {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	start := q.Page * q.Size
	if start > len(out) {
		start = len(out)
	}
	end := start + q.Size
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (m *memStore) CountLoansByStatus(_ context.Context) (map[models.LoanStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[models.LoanStatus]int64{}
	for _, l := range m.loans {
		counts[l.Status]++
	}
	return counts, nil
}

func (m *memStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return repository.ErrDuplicate
		}
	}
	u.ID = m.id()
	u.CreatedAt = time.Now()
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) FindUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) ListUsers(_ context.Context, role models.Role) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, u := range m.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateUserRole(_ context.Context, id int64, role models.Role) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Role = role
	m.users[id] = u
	return &u, nil
}

func (m *memStore) UpdateUserActive(_ context.Context, id int64, active bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Active = active
	m.users[id] = u
	return &u, nil
}

func (m *memStore) CountUsersByRole(_ context.Context, role models.Role) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// seedUser stores an active user and returns its principal
func (m *memStore) seedUser(username string, role models.Role) models.Principal {
	u := &models.User{Username: username, Role: role, Active: true, PasswordHash: "x"}
	_ = m.CreateUser(context.Background(), u)
	return models.PrincipalFromUser(u)
}
