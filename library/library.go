package library

import (
	"fmt"
	"iter"
	"time"
)

// Library is a thin façade wiring the stores, the checkout ledger, and a
// persistence gateway, keeping CLI code simple. It also enforces the
// cross-entity removal policy: entities referenced by an open checkout
// cannot be removed.
type Library struct {
	books   *BookStore
	users   *UserStore
	ledger  *CheckoutLedger
	gateway Gateway
	logger  Logger
}

// Option configures a Library.
type Option func(*libraryConfig)

type libraryConfig struct {
	logger     Logger
	ledgerOpts []LedgerOption
}

// WithLogger sets the logger for the façade and the ledger.
func WithLogger(logger Logger) Option {
	return func(c *libraryConfig) {
		c.logger = logger
		c.ledgerOpts = append(c.ledgerOpts, WithLedgerLogger(logger))
	}
}

// WithLedgerOptions forwards options to the checkout ledger.
func WithLedgerOptions(opts ...LedgerOption) Option {
	return func(c *libraryConfig) {
		c.ledgerOpts = append(c.ledgerOpts, opts...)
	}
}

// New builds an empty library over the given gateway. Call Load to
// hydrate previously saved state.
func New(gateway Gateway, opts ...Option) (*Library, error) {
	cfg := libraryConfig{logger: nopLogger{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	books := NewBookStore()
	users := NewUserStore()
	ledger, err := NewCheckoutLedger(books, users, cfg.ledgerOpts...)
	if err != nil {
		return nil, err
	}

	return &Library{
		books:   books,
		users:   users,
		ledger:  ledger,
		gateway: gateway,
		logger:  cfg.logger,
	}, nil
}

// Books exposes the book store for direct iteration.
func (l *Library) Books() *BookStore { return l.books }

// Users exposes the user store for direct iteration.
func (l *Library) Users() *UserStore { return l.users }

// Ledger exposes the checkout ledger.
func (l *Library) Ledger() *CheckoutLedger { return l.ledger }

// ------------------ Book helpers ------------------

func (l *Library) AddBook(id, title, author string) (*Book, error) {
	return l.books.Add(id, title, author)
}

func (l *Library) GetBook(id string) (*Book, error) { return l.books.Get(id) }

func (l *Library) UpdateBook(id, title, author string) error {
	return l.books.Update(id, title, author)
}

func (l *Library) SearchBooks(query string) []*Book { return l.books.Search(query) }

func (l *Library) ListBooks() iter.Seq[*Book] { return l.books.List() }

// RemoveBook refuses with ErrOpenCheckouts while an open checkout
// references the book; closed checkout history keeps its (now dangling)
// book ID.
func (l *Library) RemoveBook(id string) error {
	if _, err := l.books.Get(id); err != nil {
		return err
	}
	if l.ledger.HasOpenCheckoutForBook(id) {
		return fmt.Errorf("remove book %s: %w", id, ErrOpenCheckouts)
	}
	return l.books.Remove(id)
}

// ------------------ User helpers ------------------

func (l *Library) AddUser(id, name string) (*User, error) { return l.users.Add(id, name) }

func (l *Library) GetUser(id string) (*User, error) { return l.users.Get(id) }

func (l *Library) UpdateUser(id, name string) error { return l.users.Update(id, name) }

func (l *Library) SearchUsers(query string) []*User { return l.users.Search(query) }

func (l *Library) ListUsers() iter.Seq[*User] { return l.users.List() }

// RemoveUser refuses with ErrOpenCheckouts while the user still has
// books out.
func (l *Library) RemoveUser(id string) error {
	if _, err := l.users.Get(id); err != nil {
		return err
	}
	if l.ledger.HasOpenCheckoutsForUser(id) {
		return fmt.Errorf("remove user %s: %w", id, ErrOpenCheckouts)
	}
	return l.users.Remove(id)
}

// ------------------ Circulation ------------------

func (l *Library) CheckoutBook(userID, bookID string) (*Checkout, error) {
	return l.ledger.Checkout(userID, bookID)
}

func (l *Library) ReturnBook(userID, bookID string) (*Checkout, error) {
	return l.ledger.Return(userID, bookID)
}

func (l *Library) ListCheckouts(filter CheckoutFilter) iter.Seq[*Checkout] {
	return l.ledger.List(filter)
}

func (l *Library) ListOverdue(asOf time.Time) []*Checkout {
	return l.ledger.ListOverdue(asOf)
}

// History returns the user's full borrowing history, open and closed, in
// checkout order. It fails with ErrNotFound for an unknown user.
func (l *Library) History(userID string) ([]*Checkout, error) {
	if _, err := l.users.Get(userID); err != nil {
		return nil, err
	}
	var history []*Checkout
	for c := range l.ledger.List(CheckoutFilter{UserID: userID}) {
		history = append(history, c)
	}
	return history, nil
}

// ------------------ Persistence ------------------

// Load hydrates all three collections from the gateway, replacing any
// in-memory state. Collections that were never saved load empty.
func (l *Library) Load() error {
	bookRecords, err := l.gateway.Load(BooksCollection)
	if err != nil {
		return fmt.Errorf("load books: %w", err)
	}
	userRecords, err := l.gateway.Load(UsersCollection)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	checkoutRecords, err := l.gateway.Load(CheckoutsCollection)
	if err != nil {
		return fmt.Errorf("load checkouts: %w", err)
	}

	books := NewBookStore()
	for _, r := range bookRecords {
		b, err := bookFromRecord(r)
		if err != nil {
			return err
		}
		if err := books.insert(b); err != nil {
			return err
		}
	}

	users := NewUserStore()
	for _, r := range userRecords {
		if err := users.insert(userFromRecord(r)); err != nil {
			return err
		}
	}

	checkouts := make([]*Checkout, 0, len(checkoutRecords))
	for _, r := range checkoutRecords {
		c, err := checkoutFromRecord(r)
		if err != nil {
			return err
		}
		checkouts = append(checkouts, c)
	}

	// Swap in the loaded state only after every record decoded cleanly.
	l.books.byID, l.books.order = books.byID, books.order
	l.users.byID, l.users.order = users.byID, users.order
	l.ledger.checkouts = checkouts

	l.logger.Debug("state loaded",
		"books", l.books.Len(), "users", l.users.Len(), "checkouts", l.ledger.Len())
	return nil
}

// Save persists all three collections through the gateway.
func (l *Library) Save() error {
	bookRecords := make([]Record, 0, l.books.Len())
	for b := range l.books.List() {
		bookRecords = append(bookRecords, b.record())
	}
	if err := l.gateway.Save(BooksCollection, bookRecords); err != nil {
		return fmt.Errorf("save books: %w", err)
	}

	userRecords := make([]Record, 0, l.users.Len())
	for u := range l.users.List() {
		userRecords = append(userRecords, u.record())
	}
	if err := l.gateway.Save(UsersCollection, userRecords); err != nil {
		return fmt.Errorf("save users: %w", err)
	}

	checkoutRecords := make([]Record, 0, l.ledger.Len())
	for c := range l.ledger.List(CheckoutFilter{}) {
		checkoutRecords = append(checkoutRecords, c.record())
	}
	if err := l.gateway.Save(CheckoutsCollection, checkoutRecords); err != nil {
		return fmt.Errorf("save checkouts: %w", err)
	}

	l.logger.Debug("state saved",
		"books", len(bookRecords), "users", len(userRecords), "checkouts", len(checkoutRecords))
	return nil
}
