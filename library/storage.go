package library

import (
	"fmt"
	"strconv"
	"time"
)

// Collection names understood by Load and Save on the Library façade.
const (
	BooksCollection     = "books"
	UsersCollection     = "users"
	CheckoutsCollection = "checkouts"
)

// Record is a flat field-mapping, the unit of persisted state. Dates are
// RFC 3339 strings, booleans the literals "true"/"false". An absent date
// field means null.
type Record map[string]string

// Gateway abstracts durable storage of whole collections. Save fully
// overwrites the persisted collection; Load of a collection that was
// never saved yields an empty slice. I/O failures are reported wrapped
// in ErrStorageUnavailable.
type Gateway interface {
	Load(collection string) ([]Record, error)
	Save(collection string, records []Record) error
}

func (b *Book) record() Record {
	return Record{
		"id":        b.ID,
		"title":     b.Title,
		"author":    b.Author,
		"available": strconv.FormatBool(b.Available),
	}
}

func bookFromRecord(r Record) (*Book, error) {
	available, err := strconv.ParseBool(r["available"])
	if err != nil {
		return nil, fmt.Errorf("book record %q: bad available field: %w", r["id"], err)
	}
	return &Book{
		ID:        r["id"],
		Title:     r["title"],
		Author:    r["author"],
		Available: available,
	}, nil
}

func (u *User) record() Record {
	return Record{
		"id":   u.ID,
		"name": u.Name,
	}
}

func userFromRecord(r Record) *User {
	return &User{ID: r["id"], Name: r["name"]}
}

func (c *Checkout) record() Record {
	r := Record{
		"id":            c.ID,
		"user_id":       c.UserID,
		"book_id":       c.BookID,
		"checkout_date": c.CheckoutDate.Format(time.RFC3339Nano),
		"due_date":      c.DueDate.Format(time.RFC3339Nano),
	}
	if c.ReturnDate != nil {
		r["return_date"] = c.ReturnDate.Format(time.RFC3339Nano)
	}
	return r
}

func checkoutFromRecord(r Record) (*Checkout, error) {
	checkoutDate, err := time.Parse(time.RFC3339Nano, r["checkout_date"])
	if err != nil {
		return nil, fmt.Errorf("checkout record %q: bad checkout_date: %w", r["id"], err)
	}
	dueDate, err := time.Parse(time.RFC3339Nano, r["due_date"])
	if err != nil {
		return nil, fmt.Errorf("checkout record %q: bad due_date: %w", r["id"], err)
	}
	c := &Checkout{
		ID:           r["id"],
		UserID:       r["user_id"],
		BookID:       r["book_id"],
		CheckoutDate: checkoutDate,
		DueDate:      dueDate,
	}
	if v, ok := r["return_date"]; ok && v != "" {
		returnDate, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("checkout record %q: bad return_date: %w", r["id"], err)
		}
		c.ReturnDate = &returnDate
	}
	return c, nil
}
