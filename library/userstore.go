package library

import (
	"fmt"
	"iter"
	"strings"
)

// UserStore owns the collection of registered users, keyed by ID, in
// insertion order.
type UserStore struct {
	byID  map[string]*User
	order []string
}

// NewUserStore returns an empty store.
func NewUserStore() *UserStore {
	return &UserStore{byID: make(map[string]*User)}
}

// Add fails with ErrDuplicateKey when the ID is already taken.
func (s *UserStore) Add(id, name string) (*User, error) {
	if _, ok := s.byID[id]; ok {
		return nil, fmt.Errorf("add user %s: %w", id, ErrDuplicateKey)
	}
	u := &User{ID: id, Name: name}
	s.byID[id] = u
	s.order = append(s.order, id)
	return u, nil
}

// Get fails with ErrNotFound when the ID is absent.
func (s *UserStore) Get(id string) (*User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return u, nil
}

// Update renames an existing user.
func (s *UserStore) Update(id, name string) error {
	u, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("update user %s: %w", id, ErrNotFound)
	}
	if name != "" {
		u.Name = name
	}
	return nil
}

// Remove deletes the user.
func (s *UserStore) Remove(id string) error {
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("remove user %s: %w", id, ErrNotFound)
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List yields all users in insertion order; the sequence is restartable.
func (s *UserStore) List() iter.Seq[*User] {
	return func(yield func(*User) bool) {
		for _, id := range s.order {
			if !yield(s.byID[id]) {
				return
			}
		}
	}
}

// Len reports the number of users in the store.
func (s *UserStore) Len() int { return len(s.order) }

// Search returns users whose name or ID contains the query,
// case-insensitively, in insertion order.
func (s *UserStore) Search(query string) []*User {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var hits []*User
	for u := range s.List() {
		if strings.Contains(strings.ToLower(u.Name), q) ||
			strings.Contains(strings.ToLower(u.ID), q) {
			hits = append(hits, u)
		}
	}
	return hits
}

func (s *UserStore) insert(u *User) error {
	if _, ok := s.byID[u.ID]; ok {
		return fmt.Errorf("load user %s: %w", u.ID, ErrDuplicateKey)
	}
	s.byID[u.ID] = u
	s.order = append(s.order, u.ID)
	return nil
}
