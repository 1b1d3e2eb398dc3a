package library

import "time"

// Book represents metadata and current availability of a book in the library.
// The ID is an ISBN-like code chosen by the caller, unique within a BookStore.
type Book struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Available bool   `json:"available"`
}

// User represents a registered library user.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Checkout records one lending transaction. A checkout is open while
// ReturnDate is nil and closed once it is set. Overdue is never stored;
// it is derived from DueDate relative to a reference date.
type Checkout struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	BookID       string     `json:"book_id"`
	CheckoutDate time.Time  `json:"checkout_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
}

// Open reports whether the checkout has not been returned yet.
func (c *Checkout) Open() bool { return c.ReturnDate == nil }

// OverdueAt reports whether the checkout is open and its due date has
// passed relative to asOf.
func (c *Checkout) OverdueAt(asOf time.Time) bool {
	return c.Open() && c.DueDate.Before(asOf)
}

// Status classifies checkouts for filtering.
type Status string

const (
	StatusAny     Status = ""
	StatusOpen    Status = "open"
	StatusClosed  Status = "closed"
	StatusOverdue Status = "overdue"
)
