package library

import (
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
)

// DefaultLoanPeriod is the due-date offset applied when a checkout does
// not specify its own loan period.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// CheckoutLedger owns all checkout records and coordinates book
// availability. It enforces that at most one open checkout exists per
// book at any time; Book.Available is false exactly while such a record
// exists.
type CheckoutLedger struct {
	books *BookStore
	users *UserStore

	checkouts []*Checkout

	loanPeriod time.Duration
	grace      time.Duration
	now        func() time.Time
	logger     Logger
}

// LedgerOption configures a CheckoutLedger.
type LedgerOption func(*CheckoutLedger) error

// WithLoanPeriod overrides the default loan period for new checkouts.
func WithLoanPeriod(period time.Duration) LedgerOption {
	return func(l *CheckoutLedger) error {
		if period <= 0 {
			return fmt.Errorf("loan period must be positive, got %s", period)
		}
		l.loanPeriod = period
		return nil
	}
}

// WithGracePeriod sets a tolerance added to due dates before a checkout
// counts as overdue. It never changes the stored due date.
func WithGracePeriod(grace time.Duration) LedgerOption {
	return func(l *CheckoutLedger) error {
		if grace < 0 {
			return fmt.Errorf("grace period must not be negative, got %s", grace)
		}
		l.grace = grace
		return nil
	}
}

// WithClock replaces the time source, mainly for tests.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *CheckoutLedger) error {
		l.now = now
		return nil
	}
}

// WithLedgerLogger sets the logger for ledger operations.
func WithLedgerLogger(logger Logger) LedgerOption {
	return func(l *CheckoutLedger) error {
		l.logger = logger
		return nil
	}
}

// NewCheckoutLedger builds a ledger over the given stores. Both stores
// must outlive the ledger; the caller keeps ownership.
func NewCheckoutLedger(books *BookStore, users *UserStore, opts ...LedgerOption) (*CheckoutLedger, error) {
	l := &CheckoutLedger{
		books:      books,
		users:      users,
		loanPeriod: DefaultLoanPeriod,
		now:        time.Now,
		logger:     nopLogger{},
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Checkout lends a book to a user with the ledger's configured loan period.
func (l *CheckoutLedger) Checkout(userID, bookID string) (*Checkout, error) {
	return l.CheckoutWithPeriod(userID, bookID, l.loanPeriod)
}

// CheckoutWithPeriod lends a book with an explicit loan period. It fails
// with ErrNotFound when the user or book is unknown and ErrBookUnavailable
// when the book is already lent out; no state changes on failure.
func (l *CheckoutLedger) CheckoutWithPeriod(userID, bookID string, period time.Duration) (*Checkout, error) {
	user, err := l.users.Get(userID)
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}
	book, err := l.books.Get(bookID)
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}
	if !book.Available {
		return nil, fmt.Errorf("checkout book %s: %w", bookID, ErrBookUnavailable)
	}

	now := l.now()
	c := &Checkout{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		BookID:       book.ID,
		CheckoutDate: now,
		DueDate:      now.Add(period),
	}
	l.checkouts = append(l.checkouts, c)
	if err := l.books.setAvailable(bookID, false); err != nil {
		// Book was resolved above, so this cannot happen in a
		// single-caller process.
		l.checkouts = l.checkouts[:len(l.checkouts)-1]
		return nil, fmt.Errorf("checkout book %s: %w", bookID, err)
	}

	l.logger.Info("book checked out",
		"book_id", book.ID, "user_id", user.ID, "due_date", c.DueDate)
	return c, nil
}

// Return closes the open checkout for the (user, book) pair, stamps the
// return date, and makes the book available again. It fails with
// ErrNoOpenCheckout when no such record exists. Should several open
// checkouts ever match, the earliest by checkout date is closed.
func (l *CheckoutLedger) Return(userID, bookID string) (*Checkout, error) {
	var match *Checkout
	for _, c := range l.checkouts {
		if !c.Open() || c.UserID != userID || c.BookID != bookID {
			continue
		}
		if match == nil || c.CheckoutDate.Before(match.CheckoutDate) {
			match = c
		}
	}
	if match == nil {
		return nil, fmt.Errorf("return book %s for user %s: %w", bookID, userID, ErrNoOpenCheckout)
	}

	returned := l.now()
	match.ReturnDate = &returned
	if err := l.books.setAvailable(bookID, true); err != nil {
		match.ReturnDate = nil
		return nil, fmt.Errorf("return book %s: %w", bookID, err)
	}

	l.logger.Info("book returned", "book_id", bookID, "user_id", userID)
	return match, nil
}

// CheckoutFilter narrows List. Zero values match everything; AsOf is the
// reference date for StatusOverdue and defaults to the ledger clock.
type CheckoutFilter struct {
	UserID string
	BookID string
	Status Status
	AsOf   time.Time
}

func (l *CheckoutLedger) matches(c *Checkout, f CheckoutFilter) bool {
	if f.UserID != "" && c.UserID != f.UserID {
		return false
	}
	if f.BookID != "" && c.BookID != f.BookID {
		return false
	}
	switch f.Status {
	case StatusAny:
		return true
	case StatusOpen:
		return c.Open()
	case StatusClosed:
		return !c.Open()
	case StatusOverdue:
		asOf := f.AsOf
		if asOf.IsZero() {
			asOf = l.now()
		}
		return c.OverdueAt(asOf.Add(-l.grace))
	default:
		return false
	}
}

// List yields checkouts matching the filter in creation order. The
// sequence is restartable.
func (l *CheckoutLedger) List(filter CheckoutFilter) iter.Seq[*Checkout] {
	return func(yield func(*Checkout) bool) {
		for _, c := range l.checkouts {
			if !l.matches(c, filter) {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// ListOverdue returns every open checkout whose due date (plus the
// configured grace period) lies strictly before asOf. A zero asOf means
// now.
func (l *CheckoutLedger) ListOverdue(asOf time.Time) []*Checkout {
	var overdue []*Checkout
	for c := range l.List(CheckoutFilter{Status: StatusOverdue, AsOf: asOf}) {
		overdue = append(overdue, c)
	}
	return overdue
}

// HasOpenCheckoutForBook reports whether any open checkout references the
// book.
func (l *CheckoutLedger) HasOpenCheckoutForBook(bookID string) bool {
	for _, c := range l.checkouts {
		if c.Open() && c.BookID == bookID {
			return true
		}
	}
	return false
}

// HasOpenCheckoutsForUser reports whether any open checkout references
// the user.
func (l *CheckoutLedger) HasOpenCheckoutsForUser(userID string) bool {
	for _, c := range l.checkouts {
		if c.Open() && c.UserID == userID {
			return true
		}
	}
	return false
}

// Len reports the total number of checkout records, open and closed.
func (l *CheckoutLedger) Len() int { return len(l.checkouts) }
