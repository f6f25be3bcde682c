package cache

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huandu/go-sqlbuilder"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("cache: key not found")

// Entry is a stored value together with the time it was last written.
type Entry struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

// Cache is a small key-value store on top of sqlite. Values are written
// wholesale; the last write for a key wins.
type Cache struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	if err := migrateUp(dbPath); err != nil {
		return nil, fmt.Errorf("migrating cache: %w", err)
	}

	writeDB, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	return &Cache{readDB: readDB, writeDB: writeDB}, nil
}

func migrateUp(dbPath string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+dbPath)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		errs = append(errs, c.readDB.Close())
	}
	if c.writeDB != nil {
		errs = append(errs, c.writeDB.Close())
	}
	return errors.Join(errs...)
}

// Put overwrites the value stored under key.
func (c *Cache) Put(key string, value []byte) error {
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("kv").
		Cols("key", "value", "updated_at").
		Values(key, value, time.Now().UTC().Format(time.RFC3339Nano))
	ib.SQL("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at")

	query, args := ib.Build()
	if _, err := c.writeDB.Exec(query, args...); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Get(key string) (Entry, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("value", "updated_at").From("kv").Where(sb.Equal("key", key))
	query, args := sb.Build()

	var (
		value   []byte
		updated string
	)
	err := c.readDB.QueryRow(query, args...).Scan(&value, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("reading %s: %w", key, err)
	}

	t, _ := time.Parse(time.RFC3339Nano, updated)
	return Entry{Key: key, Value: value, UpdatedAt: t}, nil
}

// Stats returns the number of stored keys and the size of the db file.
func (c *Cache) Stats(dbPath string) (int, int64, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)").From("kv")
	query, args := sb.Build()

	var count int
	if err := c.readDB.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, 0, fmt.Errorf("counting keys: %w", err)
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		return count, 0, fmt.Errorf("stat %s: %w", dbPath, err)
	}
	return count, info.Size(), nil
}
