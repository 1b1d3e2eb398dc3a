package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"library-tracker/library"
	"library-tracker/storage"
)

var (
	dataPath  string
	backend   string
	loanDays  int
	graceDays int
	verbose   bool
)

func newGateway() (library.Gateway, func() error, error) {
	switch backend {
	case "sqlite":
		gw, err := storage.NewSQLiteGateway(dataPath)
		if err != nil {
			return nil, nil, err
		}
		return gw, gw.Close, nil
	case "json":
		gw, err := storage.NewJSONGateway(dataPath)
		if err != nil {
			return nil, nil, err
		}
		return gw, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (want sqlite or json)", backend)
	}
}

// openLibrary builds the gateway and a hydrated library. The returned
// close func must run after any Save.
func openLibrary() (*library.Library, func() error, error) {
	gw, closeGw, err := newGateway()
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	lib, err := library.New(gw,
		library.WithLogger(logger),
		library.WithLedgerOptions(
			library.WithLoanPeriod(time.Duration(loanDays)*24*time.Hour),
			library.WithGracePeriod(time.Duration(graceDays)*24*time.Hour),
		),
	)
	if err != nil {
		closeGw()
		return nil, nil, err
	}
	if err := lib.Load(); err != nil {
		closeGw()
		return nil, nil, err
	}
	return lib, closeGw, nil
}

// mutate runs fn against a hydrated library and persists on success.
func mutate(fn func(lib *library.Library) error) error {
	lib, closeGw, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeGw()

	if err := fn(lib); err != nil {
		return err
	}
	return lib.Save()
}

// view runs fn read-only; nothing is saved.
func view(fn func(lib *library.Library) error) error {
	lib, closeGw, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeGw()
	return fn(lib)
}

func printBooks(books func(yield func(*library.Book) bool)) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tAVAILABLE")
	for b := range books {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", b.ID, b.Title, b.Author, b.Available)
	}
	w.Flush()
}

func printUsers(users func(yield func(*library.User) bool)) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for u := range users {
		fmt.Fprintf(w, "%s\t%s\n", u.ID, u.Name)
	}
	w.Flush()
}

func printCheckouts(checkouts func(yield func(*library.Checkout) bool)) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BOOK\tUSER\tCHECKED OUT\tDUE\tRETURNED")
	for c := range checkouts {
		returned := "-"
		if c.ReturnDate != nil {
			returned = c.ReturnDate.Format(time.DateOnly)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.BookID, c.UserID,
			c.CheckoutDate.Format(time.DateOnly),
			c.DueDate.Format(time.DateOnly),
			returned)
	}
	w.Flush()
}

func newBookCmd() *cobra.Command {
	bookCmd := &cobra.Command{
		Use:   "book",
		Short: "Manage the book catalog",
	}

	bookCmd.AddCommand(&cobra.Command{
		Use:   "add <isbn> <title> <author>",
		Short: "Add a book to the catalog",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(func(lib *library.Library) error {
				b, err := lib.AddBook(args[0], args[1], args[2])
				if err != nil {
					return err
				}
				fmt.Printf("Added book %s (%s by %s)\n", b.ID, b.Title, b.Author)
				return nil
			})
		},
	})

	bookCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all books in catalog order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return view(func(lib *library.Library) error {
				printBooks(lib.ListBooks())
				return nil
			})
		},
	})

	updateCmd := &cobra.Command{
		Use:   "update <isbn>",
		Short: "Update a book's title and/or author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			author, _ := cmd.Flags().GetString("author")
			if title == "" && author == "" {
				return errors.New("nothing to update: pass --title and/or --author")
			}
			return mutate(func(lib *library.Library) error {
				return lib.UpdateBook(args[0], title, author)
			})
		},
	}
	updateCmd.Flags().String("title", "", "new title")
	updateCmd.Flags().String("author", "", "new author")
	bookCmd.AddCommand(updateCmd)

	bookCmd.AddCommand(&cobra.Command{
		Use:   "rm <isbn>",
		Short: "Remove a book (refused while it is checked out)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(func(lib *library.Library) error {
				return lib.RemoveBook(args[0])
			})
		},
	})

	bookCmd.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Search books by title, author, or ISBN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return view(func(lib *library.Library) error {
				hits := lib.SearchBooks(args[0])
				printBooks(func(yield func(*library.Book) bool) {
					for _, b := range hits {
						if !yield(b) {
							return
						}
					}
				})
				return nil
			})
		},
	})

	return bookCmd
}

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage registered users",
	}

	userCmd.AddCommand(&cobra.Command{
		Use:   "add <id> <name>",
		Short: "Register a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(func(lib *library.Library) error {
				u, err := lib.AddUser(args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Printf("Added user %s (%s)\n", u.ID, u.Name)
				return nil
			})
		},
	})

	userCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all users in registration order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return view(func(lib *library.Library) error {
				printUsers(lib.ListUsers())
				return nil
			})
		},
	})

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return errors.New("nothing to update: pass --name")
			}
			return mutate(func(lib *library.Library) error {
				return lib.UpdateUser(args[0], name)
			})
		},
	}
	updateCmd.Flags().String("name", "", "new name")
	userCmd.AddCommand(updateCmd)

	userCmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a user (refused while they have books out)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(func(lib *library.Library) error {
				return lib.RemoveUser(args[0])
			})
		},
	})

	userCmd.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Search users by name or ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return view(func(lib *library.Library) error {
				hits := lib.SearchUsers(args[0])
				printUsers(func(yield func(*library.User) bool) {
					for _, u := range hits {
						if !yield(u) {
							return
						}
					}
				})
				return nil
			})
		},
	})

	userCmd.AddCommand(&cobra.Command{
		Use:   "history <id>",
		Short: "Show a user's borrowing history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return view(func(lib *library.Library) error {
				history, err := lib.History(args[0])
				if err != nil {
					return err
				}
				printCheckouts(func(yield func(*library.Checkout) bool) {
					for _, c := range history {
						if !yield(c) {
							return
						}
					}
				})
				return nil
			})
		},
	})

	return userCmd
}

func newCirculationCmds() []*cobra.Command {
	checkoutCmd := &cobra.Command{
		Use:   "checkout <user-id> <isbn>",
		Short: "Check a book out to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(func(lib *library.Library) error {
				c, err := lib.CheckoutBook(args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Printf("Checked out %s to %s, due %s\n",
					c.BookID, c.UserID, c.DueDate.Format(time.DateOnly))
				return nil
			})
		},
	}

	returnCmd := &cobra.Command{
		Use:   "return <user-id> <isbn>",
		Short: "Return a checked-out book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(func(lib *library.Library) error {
				c, err := lib.ReturnBook(args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Printf("Returned %s from %s on %s\n",
					c.BookID, c.UserID, c.ReturnDate.Format(time.DateOnly))
				return nil
			})
		},
	}

	checkoutsCmd := &cobra.Command{
		Use:   "checkouts",
		Short: "List checkout records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			bookID, _ := cmd.Flags().GetString("book")
			status, _ := cmd.Flags().GetString("status")
			filter := library.CheckoutFilter{
				UserID: userID,
				BookID: bookID,
				Status: library.Status(status),
			}
			return view(func(lib *library.Library) error {
				printCheckouts(lib.ListCheckouts(filter))
				return nil
			})
		},
	}
	checkoutsCmd.Flags().String("user", "", "filter by user ID")
	checkoutsCmd.Flags().String("book", "", "filter by book ISBN")
	checkoutsCmd.Flags().String("status", "", "filter by status: open, closed, or overdue")

	overdueCmd := &cobra.Command{
		Use:   "overdue",
		Short: "List overdue checkouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asOfStr, _ := cmd.Flags().GetString("as-of")
			var asOf time.Time
			if asOfStr != "" {
				var err error
				asOf, err = time.Parse(time.DateOnly, asOfStr)
				if err != nil {
					return fmt.Errorf("bad --as-of date %q: %w", asOfStr, err)
				}
			}
			return view(func(lib *library.Library) error {
				overdue := lib.ListOverdue(asOf)
				printCheckouts(func(yield func(*library.Checkout) bool) {
					for _, c := range overdue {
						if !yield(c) {
							return
						}
					}
				})
				return nil
			})
		},
	}
	overdueCmd.Flags().String("as-of", "", "reference date (YYYY-MM-DD), default today")

	return []*cobra.Command{checkoutCmd, returnCmd, checkoutsCmd, overdueCmd}
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "library-tracker",
		Short:         "Track books, users, and checkouts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "library.db",
		"database file (sqlite) or data directory (json)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "sqlite",
		"storage backend: sqlite or json")
	rootCmd.PersistentFlags().IntVar(&loanDays, "loan-days", 14, "default loan period in days")
	rootCmd.PersistentFlags().IntVar(&graceDays, "grace-days", 0, "grace days before a checkout counts as overdue")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(newBookCmd())
	rootCmd.AddCommand(newUserCmd())
	rootCmd.AddCommand(newCirculationCmds()...)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
