package library

import (
	"fmt"
	"iter"
	"strings"
)

// BookStore owns the collection of books, keyed by their ISBN-like ID.
// It preserves insertion order for listing. Availability is flipped only
// by the CheckoutLedger; BookStore itself never decides it.
type BookStore struct {
	byID  map[string]*Book
	order []string
}

// NewBookStore returns an empty store.
func NewBookStore() *BookStore {
	return &BookStore{byID: make(map[string]*Book)}
}

// Add inserts a new book, available by default.
// It fails with ErrDuplicateKey when the ID is already taken.
func (s *BookStore) Add(id, title, author string) (*Book, error) {
	if _, ok := s.byID[id]; ok {
		return nil, fmt.Errorf("add book %s: %w", id, ErrDuplicateKey)
	}
	b := &Book{ID: id, Title: title, Author: author, Available: true}
	s.byID[id] = b
	s.order = append(s.order, id)
	return b, nil
}

// Get fails with ErrNotFound when the ID is absent.
func (s *BookStore) Get(id string) (*Book, error) {
	b, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	return b, nil
}

// Update replaces the title and/or author of an existing book.
// An empty argument leaves the corresponding field untouched.
func (s *BookStore) Update(id, title, author string) error {
	b, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("update book %s: %w", id, ErrNotFound)
	}
	if title != "" {
		b.Title = title
	}
	if author != "" {
		b.Author = author
	}
	return nil
}

// Remove deletes the book. Callers that hold a checkout ledger should
// consult it first; the store itself does not know about open checkouts.
func (s *BookStore) Remove(id string) error {
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("remove book %s: %w", id, ErrNotFound)
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

// List yields all books in insertion order. The sequence is restartable:
// each range over it walks the collection from the start.
func (s *BookStore) List() iter.Seq[*Book] {
	return func(yield func(*Book) bool) {
		for _, id := range s.order {
			if !yield(s.byID[id]) {
				return
			}
		}
	}
}

// Len reports the number of books in the store.
func (s *BookStore) Len() int { return len(s.order) }

// Search returns books whose title, author, or ID contains the query,
// case-insensitively, in insertion order.
func (s *BookStore) Search(query string) []*Book {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var hits []*Book
	for b := range s.List() {
		if strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) ||
			strings.Contains(strings.ToLower(b.ID), q) {
			hits = append(hits, b)
		}
	}
	return hits
}

// setAvailable is the ledger-only mutator backing checkout and return.
func (s *BookStore) setAvailable(id string, available bool) error {
	b, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	b.Available = available
	return nil
}

// insert places an already-built book into the store, used when loading
// persisted state. It keeps the duplicate check so corrupt data surfaces.
func (s *BookStore) insert(b *Book) error {
	if _, ok := s.byID[b.ID]; ok {
		return fmt.Errorf("load book %s: %w", b.ID, ErrDuplicateKey)
	}
	s.byID[b.ID] = b
	s.order = append(s.order, b.ID)
	return nil
}
