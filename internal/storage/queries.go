package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Table names of the two key-value namespaces.
const (
	LedgerTable  = "ledger_kv"
	ArchiveTable = "archive_kv"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the prepared SQL text for one key-value table.
type Queries struct {
	db DBTX

	getValue     string
	upsertValue  string
	deleteValue  string
	listKeys     string
	listKeyRange string
}

func New(db DBTX, table string) *Queries {
	return &Queries{
		db:           db,
		getValue:     fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, table),
		upsertValue:  fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, table),
		deleteValue:  fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, table),
		listKeys:     fmt.Sprintf(`SELECT key FROM %s WHERE key >= ? ORDER BY key`, table),
		listKeyRange: fmt.Sprintf(`SELECT key FROM %s WHERE key >= ? AND key < ? ORDER BY key`, table),
	}
}

func (q *Queries) GetValue(ctx context.Context, key string) ([]byte, error) {
	row := q.db.QueryRowContext(ctx, q.getValue, key)
	var value []byte
	err := row.Scan(&value)
	return value, err
}

func (q *Queries) UpsertValue(ctx context.Context, key string, value []byte) error {
	_, err := q.db.ExecContext(ctx, q.upsertValue, key, value)
	return err
}

func (q *Queries) DeleteValue(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, q.deleteValue, key)
	return err
}

// ListKeys returns the keys in [from, to). An empty to means no upper bound.
func (q *Queries) ListKeys(ctx context.Context, from, to string) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if to == "" {
		rows, err = q.db.QueryContext(ctx, q.listKeys, from)
	} else {
		rows, err = q.db.QueryContext(ctx, q.listKeyRange, from, to)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
