package testutil

import (
	"testing"

	"adminSeeder/internal/db"
)

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// The connection is closed via t.Cleanup.
func OpenInMemoryDB(t *testing.T, name string) *db.Conn {
	t.Helper()
	// We use a shared cache memory database so that multiple connections share the same DB if needed.
	d, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}
