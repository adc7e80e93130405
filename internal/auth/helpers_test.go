package auth

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-test-secret-test-secret"

type memoryCredentialStore struct {
	mu       sync.Mutex
	accounts map[string]Account
	seq      int
}

func newMemoryCredentialStore() *memoryCredentialStore {
	return &memoryCredentialStore{accounts: make(map[string]Account)}
}

func (m *memoryCredentialStore) FindByUsername(_ context.Context, username string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (m *memoryCredentialStore) FindByEmail(_ context.Context, email string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (m *memoryCredentialStore) FindByID(_ context.Context, id string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (m *memoryCredentialStore) Create(_ context.Context, input NewAccount) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Username == input.Username || a.Email == input.Email {
			return Account{}, ErrDuplicateAccount
		}
	}
	m.seq++
	now := time.Now().UTC()
	a := Account{
		ID:           "acc-" + strconv.Itoa(m.seq),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		CreatedAt:    now.Add(time.Duration(m.seq) * time.Millisecond),
		UpdatedAt:    now,
	}
	m.accounts[a.ID] = a
	return a, nil
}

func (m *memoryCredentialStore) List(_ context.Context) ([]Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryCredentialStore) UpdateRole(_ context.Context, id string, role Role) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	a.Role = role
	m.accounts[id] = a
	return a, nil
}

func (m *memoryCredentialStore) UpsertAdmin(ctx context.Context, input NewAccount) (Account, error) {
	m.mu.Lock()
	for id, a := range m.accounts {
		if a.Role == RoleAdmin {
			a.Username, a.Email, a.PasswordHash = input.Username, input.Email, input.PasswordHash
			m.accounts[id] = a
			m.mu.Unlock()
			return a, nil
		}
	}
	m.mu.Unlock()
	input.Role = RoleAdmin
	return m.Create(ctx, input)
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTestService(t *testing.T) (*Service, *memoryCredentialStore) {
	t.Helper()
	store := newMemoryCredentialStore()
	tokens := NewTokenService(testSecret, DefaultSessionTTL, DefaultElevatedTTL)
	return NewService(store, NewBcryptHasher(bcrypt.MinCost), tokens), store
}
