package replay

import (
	"path/filepath"
	"testing"
)

// MustTempDB returns a session database backed by a file in the test's
// temporary directory, closed when the test finishes.
func MustTempDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "replay.db"))
	if err != nil {
		t.Fatalf("open temp replay db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
