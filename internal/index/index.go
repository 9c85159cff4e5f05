// Package index is an optional SQLite-backed mirror of live key metadata,
// used to make Keys/Scan/List fast without a full bucket-file scan once a
// store grows large. It is disabled by default; when disabled the root
// package falls back to scanning bucket files directly. Fully rebuildable
// from the bucket store at any time, so its own persistence is a cache, not
// a source of truth.
//
// Grounded on the teacher's internal/turso/db.DB: same ncruces/go-sqlite3
// driver/embed import pair, same WAL+busy-timeout pragmas, same
// Open/InitSchema/Close shape, repurposed to one small table rather than
// the task/dep/blocked_cache schema.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gitkv-project/gitkv/internal/record"
)

// Index mirrors each live key's bucket id and value type for fast lookups.
type Index struct {
	conn *sql.DB
	path string
}

// Open creates or opens the index database at path, initializing its schema.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure index dir: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping index db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(5 * time.Minute)

	idx := &Index{conn: conn, path: path}
	if err := idx.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) initSchema() error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := idx.conn.Exec(pragma); err != nil {
			return fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS keys (
		key       TEXT PRIMARY KEY,
		bucket_id TEXT NOT NULL,
		type      TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_keys_bucket ON keys(bucket_id);
	`
	if _, err := idx.conn.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (idx *Index) Close() error {
	if idx.conn == nil {
		return nil
	}
	err := idx.conn.Close()
	idx.conn = nil
	return err
}

// Upsert records or refreshes a live key's mirror row.
func (idx *Index) Upsert(ctx context.Context, bucketID string, r *record.Record) error {
	_, err := idx.conn.ExecContext(ctx,
		`INSERT INTO keys (key, bucket_id, type, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET bucket_id=excluded.bucket_id, type=excluded.type, updated_at=excluded.updated_at`,
		r.Key, bucketID, string(r.Type), r.UpdatedAt)
	return err
}

// Remove deletes a key's mirror row, e.g. after a tombstone is observed.
func (idx *Index) Remove(ctx context.Context, key string) error {
	_, err := idx.conn.ExecContext(ctx, `DELETE FROM keys WHERE key = ?`, key)
	return err
}

// Keys returns every mirrored live key, sorted.
func (idx *Index) Keys(ctx context.Context) ([]string, error) {
	rows, err := idx.conn.QueryContext(ctx, `SELECT key FROM keys ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// Rebuild replaces the entire mirror from the given live record set,
// keyed by bucket id, in one transaction.
func (idx *Index) Rebuild(ctx context.Context, liveByBucket map[string][]*record.Record) error {
	tx, err := idx.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM keys`); err != nil {
		return fmt.Errorf("clear keys: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO keys (key, bucket_id, type, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for bucketID, records := range liveByBucket {
		for _, r := range records {
			if !r.Live() {
				continue
			}
			if _, err := stmt.ExecContext(ctx, r.Key, bucketID, string(r.Type), r.UpdatedAt); err != nil {
				return fmt.Errorf("insert %s: %w", r.Key, err)
			}
		}
	}

	return tx.Commit()
}
