package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-tracker/library"
)

func tempJSON(t *testing.T) *JSONGateway {
	t.Helper()
	gw, err := NewJSONGateway(t.TempDir())
	require.NoError(t, err)
	return gw
}

func TestJSONLoadMissingFile(t *testing.T) {
	gw := tempJSON(t)

	records, err := gw.Load("books")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestJSONSaveLoadRoundTrip(t *testing.T) {
	gw := tempJSON(t)

	in := []library.Record{
		{"id": "1", "name": "John Doe"},
		{"id": "2", "name": "Jane Doe"},
	}
	require.NoError(t, gw.Save("users", in))

	out, err := gw.Load("users")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestJSONSaveOverwrites(t *testing.T) {
	gw := tempJSON(t)

	require.NoError(t, gw.Save("books", []library.Record{{"id": "1"}, {"id": "2"}}))
	require.NoError(t, gw.Save("books", []library.Record{{"id": "3"}}))

	out, err := gw.Load("books")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "3", out[0]["id"])
}

func TestJSONSaveNilWritesEmptyList(t *testing.T) {
	gw := tempJSON(t)

	require.NoError(t, gw.Save("checkouts", nil))
	out, err := gw.Load("checkouts")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestJSONOneFilePerCollection(t *testing.T) {
	dir := t.TempDir()
	gw, err := NewJSONGateway(dir)
	require.NoError(t, err)

	require.NoError(t, gw.Save("books", []library.Record{{"id": "b"}}))
	require.NoError(t, gw.Save("users", []library.Record{{"id": "u"}}))

	for _, name := range []string{"books.json", "users.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "expected %s to exist", name)
	}
}

func TestJSONLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	gw, err := NewJSONGateway(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "books.json"), []byte("{not json"), 0o644))
	_, err = gw.Load("books")
	assert.Error(t, err)
}

func TestJSONGatewayCreatesNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	_, err := NewJSONGateway(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestJSONGatewaySatisfiesContract(t *testing.T) {
	var _ library.Gateway = tempJSON(t)
}
