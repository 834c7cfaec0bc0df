package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenCreatesFileAndRemoveCleansUp(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "scratch.db")

	db, err := Open(ctx, path, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := db.SQL.ExecContext(ctx, `CREATE TABLE t (i INTEGER)`); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file missing: %v", err)
	}

	if err := Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("db file still present")
	}
	// removing again is fine
	if err := Remove(path); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestOpenInMemory(t *testing.T) {
	db, err := Open(context.Background(), ":memory:", 100)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if err := db.SQL.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := Remove(":memory:"); err != nil {
		t.Fatalf("Remove(:memory:): %v", err)
	}
}
