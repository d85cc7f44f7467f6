// Package store keeps the history of scraped records in sqlite so a run can
// report which records are new.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/josequispe9/ScraperMELI-Linkedin/models"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	site       TEXT NOT NULL,
	key        TEXT NOT NULL,
	term       TEXT NOT NULL,
	data       TEXT NOT NULL,
	first_seen TEXT NOT NULL,
	PRIMARY KEY (site, key)
);
CREATE INDEX IF NOT EXISTS idx_records_first_seen ON records (site, first_seen);`

// DB is the record history.
type DB struct {
	db        *sql.DB
	batchSize int
	now       func() time.Time
}

// Open opens (creating if needed) the database at path. batchSize bounds the
// records written per transaction.
func Open(ctx context.Context, path string, batchSize int) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// one writer
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	if batchSize <= 0 {
		batchSize = 50
	}
	return &DB{db: db, batchSize: batchSize, now: time.Now}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// SaveRecords inserts the records of one site and returns how many keys were
// not stored before. Known keys keep their first_seen.
func (d *DB) SaveRecords(ctx context.Context, site string, records []models.Record) (int, error) {
	added := 0
	for start := 0; start < len(records); start += d.batchSize {
		end := min(start+d.batchSize, len(records))
		n, err := d.saveBatch(ctx, site, records[start:end])
		if err != nil {
			return added, err
		}
		added += n
	}
	return added, nil
}

func (d *DB) saveBatch(ctx context.Context, site string, batch []models.Record) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO records (site, key, term, data, first_seen)
VALUES (?, ?, ?, ?, ?);`)
	if err != nil {
		return 0, fmt.Errorf("store: prepare: %w", err)
	}
	defer stmt.Close()

	seen := d.now().UTC().Format(time.RFC3339)
	added := 0
	for _, r := range batch {
		data, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("store: marshal %s: %w", r.Key(), err)
		}
		res, err := stmt.ExecContext(ctx, site, r.Key(), r.Term(), string(data), seen)
		if err != nil {
			return 0, fmt.Errorf("store: insert %s: %w", r.Key(), err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return added, nil
}

// Count returns the number of stored records for site.
func (d *DB) Count(ctx context.Context, site string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE site = ?;`, site).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}
