package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"library-tracker/library"
)

// JSONGateway persists each collection as <collection>.json inside a
// directory, one file per collection. Saves rewrite the whole file via a
// temp file and rename so a crash mid-write never leaves a torn file.
type JSONGateway struct {
	dir string
}

// NewJSONGateway creates the data directory if needed.
func NewJSONGateway(dir string) (*JSONGateway, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w: %w", library.ErrStorageUnavailable, err)
	}
	return &JSONGateway{dir: dir}, nil
}

func (g *JSONGateway) path(collection string) string {
	return filepath.Join(g.dir, collection+".json")
}

// Load reads the collection file. A missing file yields an empty slice.
func (g *JSONGateway) Load(collection string) ([]library.Record, error) {
	data, err := os.ReadFile(g.path(collection))
	if os.IsNotExist(err) {
		return []library.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w: %w", collection, library.ErrStorageUnavailable, err)
	}

	records := []library.Record{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("load %s: decode file: %w", collection, err)
	}
	return records, nil
}

// Save fully overwrites the collection file.
func (g *JSONGateway) Save(collection string, records []library.Record) error {
	if records == nil {
		records = []library.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("save %s: encode records: %w", collection, err)
	}

	tmp := g.path(collection) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("save %s: %w: %w", collection, library.ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmp, g.path(collection)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save %s: %w: %w", collection, library.ErrStorageUnavailable, err)
	}
	return nil
}
