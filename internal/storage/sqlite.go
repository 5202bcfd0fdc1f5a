package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ledgerbook/internal/store"

	_ "modernc.org/sqlite"
)

// DB is a SQLite database holding the ledger and archive namespaces.
type DB struct {
	db      *sql.DB
	ledger  *Store
	archive *Store
}

// Store is one key-value table exposed as a store.Store.
type Store struct {
	db      *sql.DB
	table   string
	queries *Queries
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Pinger = (*Store)(nil)
)

func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection keeps the pragmas below in effect for every statement.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", pragma, err)
		}
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite database ready", "path", dbPath, "schema_version", version)

	return &DB{
		db:      db,
		ledger:  newStore(db, LedgerTable),
		archive: newStore(db, ArchiveTable),
	}, nil
}

func newStore(db *sql.DB, table string) *Store {
	return &Store{db: db, table: table, queries: New(db, table)}
}

// Ledger returns the namespace of live ledger data.
func (d *DB) Ledger() *Store { return d.ledger }

// Archive returns the namespace of archives and reports.
func (d *DB) Archive() *Store { return d.archive }

func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.queries.GetValue(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, store.ReadError("get", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if err := s.queries.UpsertValue(ctx, key, value); err != nil {
		return store.WriteError("set", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.queries.DeleteValue(ctx, key); err != nil {
		return store.WriteError("delete", key, err)
	}
	return nil
}

// ListKeysWithPrefix runs an indexed range scan over [prefix, next(prefix)).
func (s *Store) ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.queries.ListKeys(ctx, prefix, prefixUpperBound(prefix))
	if err != nil {
		return nil, store.ReadError("list", prefix, err)
	}
	return keys, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// prefixUpperBound returns the smallest string greater than every string
// with the given prefix, or "" if there is none.
func prefixUpperBound(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return ""
}
