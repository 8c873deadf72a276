// Package cacheindex persists the disk-cache index: which model keys have
// verified weights on disk, where, and with what size/checksum. The index
// survives restarts so cache validity can be checked without re-downloading.
package cacheindex

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one row of the index.
type Entry struct {
	Key       string
	DiskPath  string
	Checksum  string
	Size      uint64
	FetchedAt time.Time
}

type Index struct {
	db *sql.DB
}

// Open opens (creating if needed) the index database at path.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	idx := &Index{db: db}
	if err := idx.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (x *Index) migrate() error {
	_, err := x.db.Exec(`
CREATE TABLE IF NOT EXISTS models (
  key TEXT PRIMARY KEY,
  disk_path TEXT NOT NULL,
  checksum TEXT NOT NULL DEFAULT '',
  size INTEGER NOT NULL DEFAULT 0,
  fetched_at INTEGER NOT NULL DEFAULT 0
);
`)
	return err
}

// Get returns the entry for key, or ok=false when absent.
func (x *Index) Get(ctx context.Context, key string) (Entry, bool, error) {
	row := x.db.QueryRowContext(ctx,
		"SELECT key, disk_path, checksum, size, fetched_at FROM models WHERE key=?;", key)
	var e Entry
	var fetched int64
	if err := row.Scan(&e.Key, &e.DiskPath, &e.Checksum, &e.Size, &fetched); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	e.FetchedAt = time.Unix(fetched, 0)
	return e, true, nil
}

// Put inserts or replaces the entry for e.Key.
func (x *Index) Put(ctx context.Context, e Entry) error {
	fetched := e.FetchedAt.Unix()
	if e.FetchedAt.IsZero() {
		fetched = time.Now().Unix()
	}
	_, err := x.db.ExecContext(ctx,
		`INSERT INTO models (key, disk_path, checksum, size, fetched_at) VALUES (?,?,?,?,?)
		 ON CONFLICT(key) DO UPDATE SET disk_path=excluded.disk_path, checksum=excluded.checksum,
		 size=excluded.size, fetched_at=excluded.fetched_at;`,
		e.Key, e.DiskPath, e.Checksum, e.Size, fetched)
	return err
}

// Delete removes the entry for key; deleting a missing key is not an error.
func (x *Index) Delete(ctx context.Context, key string) error {
	if x.db == nil {
		return nil
	}
	_, err := x.db.ExecContext(ctx, "DELETE FROM models WHERE key=?;", key)
	return err
}

// List returns all entries ordered by key.
func (x *Index) List(ctx context.Context) ([]Entry, error) {
	rows, err := x.db.QueryContext(ctx,
		"SELECT key, disk_path, checksum, size, fetched_at FROM models ORDER BY key;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var fetched int64
		if err := rows.Scan(&e.Key, &e.DiskPath, &e.Checksum, &e.Size, &fetched); err != nil {
			return nil, err
		}
		e.FetchedAt = time.Unix(fetched, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (x *Index) Close() error {
	if x.db == nil {
		return nil
	}
	return x.db.Close()
}
