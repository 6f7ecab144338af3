package sqliteutil

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

// OpenDB opens (creating if necessary) a sqlite database at the given path
// and applies the schema. Re-applying an existing schema is not an error.
func OpenDB(schema, path string) (*sql.DB, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		db.Close()
		return nil, err
	}
	return db, nil
}
