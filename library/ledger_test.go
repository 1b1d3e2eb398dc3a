package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newLedger arranges a ledger over one book and one user with a
// controllable clock.
func newLedger(t *testing.T, opts ...LedgerOption) (*CheckoutLedger, *BookStore, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	books := NewBookStore()
	users := NewUserStore()

	_, err := books.Add("1234567890", "The Great Gatsby", "F. Scott Fitzgerald")
	require.NoError(t, err)
	_, err = users.Add("1", "John Doe")
	require.NoError(t, err)

	ledger, err := NewCheckoutLedger(books, users, append([]LedgerOption{WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	return ledger, books, clock
}

func TestCheckoutHappyPath(t *testing.T) {
	ledger, books, clock := newLedger(t)

	c, err := ledger.Checkout("1", "1234567890")
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "1", c.UserID)
	assert.Equal(t, "1234567890", c.BookID)
	assert.True(t, c.Open())
	assert.Equal(t, clock.now, c.CheckoutDate)
	assert.Equal(t, clock.now.Add(14*24*time.Hour), c.DueDate, "default loan period is 14 days")

	book, err := books.Get("1234567890")
	require.NoError(t, err)
	assert.False(t, book.Available)
}

func TestCheckoutUnknownUserOrBook(t *testing.T) {
	ledger, books, _ := newLedger(t)

	_, err := ledger.Checkout("ghost", "1234567890")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ledger.Checkout("1", "0000000000")
	assert.ErrorIs(t, err, ErrNotFound)

	// Failed checkouts leave nothing behind.
	assert.Equal(t, 0, ledger.Len())
	book, err := books.Get("1234567890")
	require.NoError(t, err)
	assert.True(t, book.Available)
}

func TestCheckoutUnavailableBookLeavesLedgerUnchanged(t *testing.T) {
	ledger, _, _ := newLedger(t)
	users := ledger.users
	_, err := users.Add("2", "Jane Doe")
	require.NoError(t, err)

	_, err = ledger.Checkout("1", "1234567890")
	require.NoError(t, err)

	_, err = ledger.Checkout("2", "1234567890")
	assert.ErrorIs(t, err, ErrBookUnavailable)
	assert.Equal(t, 1, ledger.Len())
}

func TestCheckoutWithExplicitPeriod(t *testing.T) {
	ledger, _, clock := newLedger(t)

	c, err := ledger.CheckoutWithPeriod("1", "1234567890", 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(7*24*time.Hour), c.DueDate)
}

func TestConfiguredLoanPeriod(t *testing.T) {
	ledger, _, clock := newLedger(t, WithLoanPeriod(21*24*time.Hour))

	c, err := ledger.Checkout("1", "1234567890")
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(21*24*time.Hour), c.DueDate)
}

func TestLedgerOptionValidation(t *testing.T) {
	books, users := NewBookStore(), NewUserStore()

	_, err := NewCheckoutLedger(books, users, WithLoanPeriod(0))
	assert.Error(t, err)

	_, err = NewCheckoutLedger(books, users, WithGracePeriod(-time.Hour))
	assert.Error(t, err)
}

func TestReturnClosesCheckoutAndRestoresAvailability(t *testing.T) {
	ledger, books, clock := newLedger(t)

	_, err := ledger.Checkout("1", "1234567890")
	require.NoError(t, err)

	clock.Advance(48 * time.Hour)
	c, err := ledger.Return("1", "1234567890")
	require.NoError(t, err)

	assert.False(t, c.Open())
	require.NotNil(t, c.ReturnDate)
	assert.Equal(t, clock.now, *c.ReturnDate)

	book, err := books.Get("1234567890")
	require.NoError(t, err)
	assert.True(t, book.Available)

	// Exactly one closed checkout remains.
	assert.Equal(t, 1, ledger.Len())

	_, err = ledger.Return("1", "1234567890")
	assert.ErrorIs(t, err, ErrNoOpenCheckout)
}

func TestReturnWithoutCheckout(t *testing.T) {
	ledger, _, _ := newLedger(t)

	_, err := ledger.Return("1", "1234567890")
	assert.ErrorIs(t, err, ErrNoOpenCheckout)
}

func TestReturnPicksEarliestWhenMultipleOpenCheckoutsMatch(t *testing.T) {
	ledger, _, clock := newLedger(t)

	first, err := ledger.Checkout("1", "1234567890")
	require.NoError(t, err)

	// Force a second open checkout for the same pair, bypassing the
	// availability check, to exercise the defensive tie-break.
	clock.Advance(time.Hour)
	second := &Checkout{
		ID:           "forced",
		UserID:       "1",
		BookID:       "1234567890",
		CheckoutDate: clock.now,
		DueDate:      clock.now.Add(DefaultLoanPeriod),
	}
	ledger.checkouts = append(ledger.checkouts, second)

	closed, err := ledger.Return("1", "1234567890")
	require.NoError(t, err)
	assert.Equal(t, first.ID, closed.ID)
	assert.True(t, second.Open())
}

func TestAvailabilityMatchesOpenCheckouts(t *testing.T) {
	ledger, books, _ := newLedger(t)
	_, err := books.Add("111", "Second Book", "Author")
	require.NoError(t, err)

	check := func() {
		t.Helper()
		for b := range books.List() {
			assert.Equal(t, !ledger.HasOpenCheckoutForBook(b.ID), b.Available,
				"book %s availability must mirror open checkouts", b.ID)
		}
	}

	check()
	_, err = ledger.Checkout("1", "1234567890")
	require.NoError(t, err)
	check()
	_, err = ledger.Checkout("1", "111")
	require.NoError(t, err)
	check()
	_, err = ledger.Return("1", "1234567890")
	require.NoError(t, err)
	check()
	_, err = ledger.Return("1", "111")
	require.NoError(t, err)
	check()
}

func TestListFilters(t *testing.T) {
	ledger, books, clock := newLedger(t)
	_, err := books.Add("111", "Second Book", "Author")
	require.NoError(t, err)
	_, err = ledger.users.Add("2", "Jane Doe")
	require.NoError(t, err)

	_, err = ledger.Checkout("1", "1234567890")
	require.NoError(t, err)
	_, err = ledger.Checkout("2", "111")
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = ledger.Return("1", "1234567890")
	require.NoError(t, err)

	count := func(f CheckoutFilter) int {
		n := 0
		for range ledger.List(f) {
			n++
		}
		return n
	}

	assert.Equal(t, 2, count(CheckoutFilter{}))
	assert.Equal(t, 1, count(CheckoutFilter{UserID: "1"}))
	assert.Equal(t, 1, count(CheckoutFilter{BookID: "111"}))
	assert.Equal(t, 1, count(CheckoutFilter{Status: StatusOpen}))
	assert.Equal(t, 1, count(CheckoutFilter{Status: StatusClosed}))
	assert.Equal(t, 0, count(CheckoutFilter{UserID: "2", Status: StatusClosed}))
	assert.Equal(t, 0, count(CheckoutFilter{Status: "bogus"}))
}

func TestListIsCreationOrderedAndRestartable(t *testing.T) {
	ledger, books, _ := newLedger(t)
	_, err := books.Add("111", "Second Book", "Author")
	require.NoError(t, err)

	c1, err := ledger.Checkout("1", "1234567890")
	require.NoError(t, err)
	c2, err := ledger.Checkout("1", "111")
	require.NoError(t, err)

	collect := func() []string {
		var ids []string
		for c := range ledger.List(CheckoutFilter{}) {
			ids = append(ids, c.ID)
		}
		return ids
	}

	want := []string{c1.ID, c2.ID}
	assert.Equal(t, want, collect())
	assert.Equal(t, want, collect())
}

func TestListOverdue(t *testing.T) {
	ledger, _, clock := newLedger(t)

	c, err := ledger.Checkout("1", "1234567890")
	require.NoError(t, err)

	// Not overdue before the due date, nor exactly at it.
	assert.Empty(t, ledger.ListOverdue(c.DueDate.Add(-time.Hour)))
	assert.Empty(t, ledger.ListOverdue(c.DueDate))

	overdue := ledger.ListOverdue(c.DueDate.Add(time.Hour))
	require.Len(t, overdue, 1)
	assert.Equal(t, c.ID, overdue[0].ID)

	// Zero asOf falls back to the ledger clock.
	clock.now = c.DueDate.Add(time.Minute)
	assert.Len(t, ledger.ListOverdue(time.Time{}), 1)

	// A returned book drops out of the overdue listing.
	_, err = ledger.Return("1", "1234567890")
	require.NoError(t, err)
	assert.Empty(t, ledger.ListOverdue(c.DueDate.Add(time.Hour)))
}

func TestGracePeriodShiftsOverdueThreshold(t *testing.T) {
	ledger, _, _ := newLedger(t, WithGracePeriod(3*24*time.Hour))

	c, err := ledger.Checkout("1", "1234567890")
	require.NoError(t, err)

	// Past due but inside grace: not overdue yet.
	assert.Empty(t, ledger.ListOverdue(c.DueDate.Add(24*time.Hour)))
	// Past due plus grace: overdue, and the stored due date is untouched.
	assert.Len(t, ledger.ListOverdue(c.DueDate.Add(4*24*time.Hour)), 1)
	assert.Equal(t, c.CheckoutDate.Add(DefaultLoanPeriod), c.DueDate)
}

func TestHasOpenCheckoutsForUser(t *testing.T) {
	ledger, _, _ := newLedger(t)

	assert.False(t, ledger.HasOpenCheckoutsForUser("1"))
	_, err := ledger.Checkout("1", "1234567890")
	require.NoError(t, err)
	assert.True(t, ledger.HasOpenCheckoutsForUser("1"))
	_, err = ledger.Return("1", "1234567890")
	require.NoError(t, err)
	assert.False(t, ledger.HasOpenCheckoutsForUser("1"))
}
