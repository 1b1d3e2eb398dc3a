// Command import_books bulk-loads a book catalog from a CSV file with
// isbn,title,author rows into the library database. Rows whose ISBN is
// already in the catalog are skipped.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"library-tracker/library"
	"library-tracker/storage"
)

func main() {
	dbPath := flag.String("data", "library.db", "sqlite database file")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: import_books [-data library.db] <catalog.csv>")
		os.Exit(2)
	}

	if err := run(*dbPath, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(dbPath, csvPath string) error {
	gw, err := storage.NewSQLiteGateway(dbPath)
	if err != nil {
		return err
	}
	defer gw.Close()

	lib, err := library.New(gw)
	if err != nil {
		return err
	}
	if err := lib.Load(); err != nil {
		return err
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 3

	var added, skipped int
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read catalog: %w", err)
		}

		isbn, title, author := row[0], row[1], row[2]
		if _, err := lib.AddBook(isbn, title, author); err != nil {
			if errors.Is(err, library.ErrDuplicateKey) {
				skipped++
				continue
			}
			return err
		}
		added++
	}

	if err := lib.Save(); err != nil {
		return err
	}

	fmt.Printf("Imported %d books (%d already present)\n", added, skipped)
	return nil
}
