package users

import (
	"context"
	"sync"

	"campus-mobility/internal/apperr"
)

// memStore is an in-memory Store for service tests.
type memStore struct {
	mu    sync.Mutex
	users map[string]User
}

func newMemStore() *memStore { return &memStore{users: map[string]User{}} }

func (m *memStore) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, apperr.ErrUserNotFound
	}
	return &u, nil
}

func (m *memStore) ListByEmails(_ context.Context, emails []string) ([]*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*User
	for _, e := range emails {
		if u, ok := m.users[e]; ok {
			u := u
			out = append(out, &u)
		}
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return apperr.ErrAlreadyExists
	}
	m.users[u.Email] = *u
	return nil
}

func (m *memStore) Update(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; !ok {
		return apperr.ErrUserNotFound
	}
	m.users[u.Email] = *u
	return nil
}

func (m *memStore) Delete(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; !ok {
		return apperr.ErrUserNotFound
	}
	delete(m.users, email)
	return nil
}
