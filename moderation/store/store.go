// Package store persists moderation samples in a per-profile SQLite
// database. The table is append-only in normal operation; rows are
// removed only by the maintenance commands and by the pre-training trim.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Sample one labeled moderation outcome
type Sample struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Label     int       `json:"label"` // 0=pass 1=violation
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store a sample store bound to one database file
type Store struct {
	path string
	db   *sql.DB
}

var mu sync.Mutex
var databases = map[string]*sql.DB{}

const schema = `
CREATE TABLE IF NOT EXISTS samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL,
	label INTEGER NOT NULL,
	category TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// Open open (or reuse) the store for a database file. Connections are
// pooled per path and shared by every Store bound to it.
func Open(path string) (*Store, error) {
	mu.Lock()
	defer mu.Unlock()

	if db, has := databases[path]; has {
		return &Store{path: path, db: db}, nil
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// SQLite permits one writer; readers may share
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	databases[path] = db
	return &Store{path: path, db: db}, nil
}

// CloseAll close every pooled database (process shutdown, tests)
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	for path, db := range databases {
		db.Close()
		delete(databases, path)
	}
}

// Save append one sample. The store assigns id and created_at.
func (store *Store) Save(text string, label int, category string) error {
	tx, err := store.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO samples (text, label, category) VALUES (?, ?, ?)",
		text, label, nullable(category),
	); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Count the number of samples
func (store *Store) Count() (int, error) {
	var count int
	err := store.db.QueryRow("SELECT COUNT(*) FROM samples").Scan(&count)
	return count, err
}

// RecentIDs the ids of the most recent samples, newest first
func (store *Store) RecentIDs(limit int) ([]int64, error) {
	rows, err := store.db.Query("SELECT id FROM samples ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LoadByIDs load samples by id. Missing ids are skipped.
func (store *Store) LoadByIDs(ids []int64) ([]Sample, error) {
	if len(ids) == 0 {
		return []Sample{}, nil
	}

	placeholders := make([]byte, 0, len(ids)*2-1)
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}

	query := fmt.Sprintf(
		"SELECT id, text, label, COALESCE(category, ''), created_at FROM samples WHERE id IN (%s)",
		string(placeholders),
	)
	rows, err := store.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSamples(rows)
}

// List the most recent samples, newest first
func (store *Store) List(limit int) ([]Sample, error) {
	rows, err := store.db.Query(
		"SELECT id, text, label, COALESCE(category, ''), created_at FROM samples ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSamples(rows)
}

// FindByText the most recent sample with the exact text
func (store *Store) FindByText(text string) (*Sample, error) {
	row := store.db.QueryRow(
		"SELECT id, text, label, COALESCE(category, ''), created_at FROM samples WHERE text = ? ORDER BY id DESC LIMIT 1",
		text,
	)
	var sample Sample
	err := row.Scan(&sample.ID, &sample.Text, &sample.Label, &sample.Category, &sample.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sample, nil
}

// DeleteByText delete every sample whose text contains the substring.
// Maintenance only.
func (store *Store) DeleteByText(substr string) (int64, error) {
	result, err := store.db.Exec("DELETE FROM samples WHERE instr(text, ?) > 0", substr)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// TrimTo delete the oldest samples until at most max remain. Returns
// the number of rows removed.
func (store *Store) TrimTo(max int) (int64, error) {
	count, err := store.Count()
	if err != nil {
		return 0, err
	}
	if max <= 0 || count <= max {
		return 0, nil
	}

	result, err := store.db.Exec(
		"DELETE FROM samples WHERE id IN (SELECT id FROM samples ORDER BY id ASC LIMIT ?)",
		count-max,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanSamples(rows *sql.Rows) ([]Sample, error) {
	samples := []Sample{}
	for rows.Next() {
		var sample Sample
		if err := rows.Scan(&sample.ID, &sample.Text, &sample.Label, &sample.Category, &sample.CreatedAt); err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

func nullable(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
