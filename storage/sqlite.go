package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect import
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	_ "github.com/mattn/go-sqlite3" // driver import

	"library-tracker/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const recordsTable = "records"

// SQLiteGateway persists collections as ordered flat records in a single
// SQLite table. Position keeps the insertion order of each collection
// stable across save/load cycles.
type SQLiteGateway struct {
	db      *sqlx.DB
	builder goqu.DialectWrapper
}

// NewSQLiteGateway opens (or creates) the SQLite database at dbPath and
// applies schema migrations.
func NewSQLiteGateway(dbPath string) (*SQLiteGateway, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w: %w", library.ErrStorageUnavailable, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w: %w", library.ErrStorageUnavailable, err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w: %w", library.ErrStorageUnavailable, err)
	}

	return &SQLiteGateway{db: db, builder: goqu.Dialect("sqlite3")}, nil
}

// Close closes the underlying database.
func (g *SQLiteGateway) Close() error { return g.db.Close() }

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS records (
            collection TEXT NOT NULL,
            position INTEGER NOT NULL,
            data TEXT NOT NULL,
            PRIMARY KEY (collection, position)
        );`); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}

	return tx.Commit()
}

// Load reads all records of a collection in saved order. A collection
// that was never saved yields an empty slice.
func (g *SQLiteGateway) Load(collection string) ([]library.Record, error) {
	query, args, err := g.builder.
		From(recordsTable).
		Select("data").
		Where(goqu.C("collection").Eq(collection)).
		Order(goqu.C("position").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build load query: %w", err)
	}

	rows, err := g.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w: %w", collection, library.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	records := []library.Record{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("load %s: %w: %w", collection, library.ErrStorageUnavailable, err)
		}
		var r library.Record
		if err := json.UnmarshalFromString(data, &r); err != nil {
			return nil, fmt.Errorf("load %s: decode record: %w", collection, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w: %w", collection, library.ErrStorageUnavailable, err)
	}
	return records, nil
}

// Save replaces the persisted collection with the given records in one
// transaction.
func (g *SQLiteGateway) Save(collection string, records []library.Record) error {
	deleteSQL, deleteArgs, err := g.builder.
		Delete(recordsTable).
		Where(goqu.C("collection").Eq(collection)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}

	tx, err := g.db.Beginx()
	if err != nil {
		return fmt.Errorf("save %s: %w: %w", collection, library.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(deleteSQL, deleteArgs...); err != nil {
		return fmt.Errorf("save %s: %w: %w", collection, library.ErrStorageUnavailable, err)
	}

	for i, r := range records {
		data, err := json.MarshalToString(r)
		if err != nil {
			return fmt.Errorf("save %s: encode record: %w", collection, err)
		}
		insertSQL, insertArgs, err := g.builder.
			Insert(recordsTable).
			Rows(goqu.Record{"collection": collection, "position": i, "data": data}).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build insert query: %w", err)
		}
		if _, err := tx.Exec(insertSQL, insertArgs...); err != nil {
			return fmt.Errorf("save %s: %w: %w", collection, library.ErrStorageUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save %s: %w: %w", collection, library.ErrStorageUnavailable, err)
	}
	return nil
}
