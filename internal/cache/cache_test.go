package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *Cache {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPutAndGet(t *testing.T) {
	db := testDB(t)

	if err := db.Put("x_updates_cache", []byte(`{"at":1,"updates":[]}`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := db.Get("x_updates_cache")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.Value) != `{"at":1,"updates":[]}` {
		t.Errorf("unexpected value %q", got.Value)
	}
	if time.Since(got.UpdatedAt) > 5*time.Second {
		t.Errorf("updated_at too old: %v", got.UpdatedAt)
	}
}

func TestPutOverwrites(t *testing.T) {
	db := testDB(t)

	if err := db.Put("k", []byte("first")); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := db.Put("k", []byte("second")); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := db.Get("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.Value) != "second" {
		t.Errorf("expected last write to win, got %q", got.Value)
	}
}

func TestGetMissing(t *testing.T) {
	db := testDB(t)

	_, err := db.Get("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReopenKeepsValue(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Put("k", []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	db.Close()

	// Migrations must be idempotent on an existing file
	db, err = Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	got, err := db.Get("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.Value) != "v" {
		t.Errorf("expected persisted value, got %q", got.Value)
	}
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	db.Put("a", []byte("1"))
	db.Put("b", []byte("2"))

	count, size, err := db.Stats(dbPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
	if size == 0 {
		t.Error("expected non-zero db size")
	}
}

func TestOpenCreatesDir(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "deep", "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("opening db in nested dir: %v", err)
	}
	db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}
