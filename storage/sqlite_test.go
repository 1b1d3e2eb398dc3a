package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-tracker/library"
)

func tempSQLite(t *testing.T) *SQLiteGateway {
	t.Helper()
	gw, err := NewSQLiteGateway(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { gw.Close() })
	return gw
}

func TestSQLiteLoadNeverSavedCollection(t *testing.T) {
	gw := tempSQLite(t)

	records, err := gw.Load("books")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLiteSaveLoadRoundTrip(t *testing.T) {
	gw := tempSQLite(t)

	in := []library.Record{
		{"id": "1234567890", "title": "The Great Gatsby", "author": "F. Scott Fitzgerald", "available": "false"},
		{"id": "9780451524935", "title": "1984", "author": "George Orwell", "available": "true"},
	}
	require.NoError(t, gw.Save("books", in))

	out, err := gw.Load("books")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSQLiteSaveOverwrites(t *testing.T) {
	gw := tempSQLite(t)

	require.NoError(t, gw.Save("users", []library.Record{
		{"id": "1", "name": "Alice"},
		{"id": "2", "name": "Bob"},
	}))
	require.NoError(t, gw.Save("users", []library.Record{
		{"id": "3", "name": "Charlie"},
	}))

	out, err := gw.Load("users")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "3", out[0]["id"])
}

func TestSQLiteSaveEmptyClearsCollection(t *testing.T) {
	gw := tempSQLite(t)

	require.NoError(t, gw.Save("users", []library.Record{{"id": "1", "name": "Alice"}}))
	require.NoError(t, gw.Save("users", nil))

	out, err := gw.Load("users")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSQLiteCollectionsAreIndependent(t *testing.T) {
	gw := tempSQLite(t)

	require.NoError(t, gw.Save("books", []library.Record{{"id": "b1"}}))
	require.NoError(t, gw.Save("users", []library.Record{{"id": "u1"}, {"id": "u2"}}))

	books, err := gw.Load("books")
	require.NoError(t, err)
	users, err := gw.Load("users")
	require.NoError(t, err)
	assert.Len(t, books, 1)
	assert.Len(t, users, 2)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	gw, err := NewSQLiteGateway(dbPath)
	require.NoError(t, err)
	require.NoError(t, gw.Save("books", []library.Record{{"id": "1", "title": "T"}}))
	require.NoError(t, gw.Close())

	reopened, err := NewSQLiteGateway(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	out, err := reopened.Load("books")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "T", out[0]["title"])
}

func TestSQLiteKeepsRecordOrder(t *testing.T) {
	gw := tempSQLite(t)

	in := make([]library.Record, 0, 50)
	for i := 0; i < 50; i++ {
		in = append(in, library.Record{"id": string(rune('A' + i%26)), "position_check": string(rune('0' + i%10))})
	}
	require.NoError(t, gw.Save("checkouts", in))

	out, err := gw.Load("checkouts")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSQLiteGatewaySatisfiesContract(t *testing.T) {
	var _ library.Gateway = tempSQLite(t)
}
