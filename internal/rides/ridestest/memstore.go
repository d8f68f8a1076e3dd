// Package ridestest provides an in-memory rides.Store for tests.
package ridestest

import (
	"context"
	"slices"
	"sync"

	"campus-mobility/internal/apperr"
	"campus-mobility/internal/rides"
)

// MemStore mirrors the conditional semantics of the Postgres store.
type MemStore struct {
	mu    sync.Mutex
	order []string
	rides map[string]*rides.Ride
}

func NewMemStore() *MemStore {
	return &MemStore{rides: map[string]*rides.Ride{}}
}

func clone(r *rides.Ride) *rides.Ride {
	c := *r
	c.UserIDs = slices.Clone(r.UserIDs)
	c.Communities = slices.Clone(r.Communities)
	return &c
}

// Put inserts or replaces a ride directly, bypassing validation.
func (m *MemStore) Put(r *rides.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	m.rides[r.ID] = clone(r)
}

func (m *MemStore) Create(_ context.Context, r *rides.Ride) error {
	m.Put(r)
	return nil
}

func (m *MemStore) Get(_ context.Context, id string) (*rides.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, apperr.ErrRideNotFound
	}
	return clone(r), nil
}

func (m *MemStore) list(keep func(*rides.Ride) bool) []*rides.Ride {
	out := []*rides.Ride{}
	for _, id := range m.order {
		if r, ok := m.rides[id]; ok && keep(r) {
			out = append(out, clone(r))
		}
	}
	return out
}

func (m *MemStore) ListForCommunities(_ context.Context, communities []string) ([]*rides.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(r *rides.Ride) bool {
		for _, c := range r.Communities {
			if slices.Contains(communities, c) {
				return true
			}
		}
		return false
	}), nil
}

func (m *MemStore) ListForMember(_ context.Context, email string) ([]*rides.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(r *rides.Ride) bool { return r.IsMember(email) }), nil
}

func (m *MemStore) AddParticipant(_ context.Context, id, email string) (*rides.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok || r.IsMember(email) || len(r.UserIDs) >= r.MaxParticipants {
		return nil, rides.ErrNotApplied
	}
	r.UserIDs = append(r.UserIDs, email)
	r.Status = rides.StatusActive
	if len(r.UserIDs) >= r.MaxParticipants {
		r.Status = rides.StatusFull
	}
	return clone(r), nil
}

func (m *MemStore) RemoveParticipant(_ context.Context, id, email string) (*rides.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok || r.CreatorEmail == email || !slices.Contains(r.UserIDs, email) {
		return nil, rides.ErrNotApplied
	}
	r.UserIDs = slices.DeleteFunc(r.UserIDs, func(e string) bool { return e == email })
	r.Status = rides.StatusActive
	return clone(r), nil
}

func (m *MemStore) TransferOwnership(_ context.Context, id, creator string) (*rides.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok || r.CreatorEmail != creator {
		return nil, rides.ErrNotApplied
	}
	rest := slices.DeleteFunc(slices.Clone(r.UserIDs), func(e string) bool { return e == creator })
	if len(rest) == 0 {
		return nil, rides.ErrNotApplied
	}
	r.UserIDs = rest
	r.CreatorEmail = rest[0]
	r.Status = rides.StatusActive
	return clone(r), nil
}

func (m *MemStore) Delete(_ context.Context, id, creator string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok || r.CreatorEmail != creator {
		return rides.ErrNotApplied
	}
	delete(m.rides, id)
	return nil
}
