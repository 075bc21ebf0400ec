package db

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Registry records room metadata: which rooms have existed, when they
// were created and when they were last active. Room content (figures,
// selections) is deliberately never stored; a room's drawing state
// lives only in memory for the lifetime of its event loop.
type Registry struct {
	db *sql.DB
}

type RoomRecord struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// Open creates the database file (and its directory) if needed and
// bootstraps the schema.
func Open(path string) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_active DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_rooms_last_active ON rooms(last_active);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Registry{db: db}, nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}

// Touch upserts a room record and bumps its last_active timestamp.
func (r *Registry) Touch(roomID string) error {
	_, err := r.db.Exec(`
		INSERT INTO rooms (id) VALUES (?)
		ON CONFLICT(id) DO UPDATE SET last_active = CURRENT_TIMESTAMP`,
		roomID)
	return err
}

// ListRooms returns known rooms, most recently active first.
func (r *Registry) ListRooms(limit, offset int) ([]RoomRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, created_at, last_active FROM rooms
		ORDER BY last_active DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RoomRecord
	for rows.Next() {
		var rec RoomRecord
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.LastActive); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes a room record.
func (r *Registry) Delete(roomID string) error {
	_, err := r.db.Exec("DELETE FROM rooms WHERE id = ?", roomID)
	return err
}

// Count returns the number of known rooms.
func (r *Registry) Count() (int, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM rooms").Scan(&n)
	return n, err
}

// DeleteIdleBefore removes records whose last activity is older than
// cutoff, skipping the ids in exclude (rooms that are currently
// live). It returns the number of records removed.
func (r *Registry) DeleteIdleBefore(cutoff time.Time, exclude []string) (int64, error) {
	// CURRENT_TIMESTAMP stores 'YYYY-MM-DD HH:MM:SS' in UTC; bind the
	// cutoff in the same format so the comparison is well-defined.
	query := "DELETE FROM rooms WHERE last_active < ?"
	args := []any{cutoff.UTC().Format("2006-01-02 15:04:05")}
	if len(exclude) > 0 {
		query += " AND id NOT IN (?" + strings.Repeat(",?", len(exclude)-1) + ")"
		for _, id := range exclude {
			args = append(args, id)
		}
	}

	res, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
