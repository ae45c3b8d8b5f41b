package repos_test

import (
	"testing"

	"github.com/parvezdia/textile-waste-management/internal/repos"
)

func TestOpenDBAppliesPragmasPerConnection(t *testing.T) {
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// each in-memory connection is its own database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	// Pragmas ride on the DSN, so any pooled connection has them.
	var busy int
	if err := db.Get(&busy, `PRAGMA busy_timeout`); err != nil {
		t.Fatal(err)
	}
	if busy != 5000 {
		t.Fatalf("busy_timeout = %d, want 5000", busy)
	}
	var fk int
	if err := db.Get(&fk, `PRAGMA foreign_keys`); err != nil {
		t.Fatal(err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}
}
