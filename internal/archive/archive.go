// Package archive is the durable store of official draws, played grids and
// generated reports. All writes go through a single serialized writer;
// readers run against WAL snapshots.
package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	conn *sql.DB
	path string

	// writeMu serializes all mutations. SQLite WAL mode lets readers
	// proceed against a consistent snapshot while a write is in flight.
	writeMu sync.Mutex
}

// Open creates or opens a SQLite database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// IntegrityCheck runs SQLite's quick check plus the (game, draw_date)
// uniqueness invariant. Returns a list of problems, empty when healthy.
func (db *DB) IntegrityCheck() ([]string, error) {
	var problems []string

	var verdict string
	if err := db.conn.QueryRow("PRAGMA quick_check").Scan(&verdict); err != nil {
		return nil, fmt.Errorf("quick_check: %w", err)
	}
	if verdict != "ok" {
		problems = append(problems, "quick_check: "+verdict)
	}

	rows, err := db.conn.Query(
		`SELECT game, draw_date, COUNT(*) FROM draws GROUP BY game, draw_date HAVING COUNT(*) > 1`,
	)
	if err != nil {
		return nil, fmt.Errorf("uniqueness check: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var game, date string
		var n int
		if err := rows.Scan(&game, &date, &n); err != nil {
			return nil, err
		}
		problems = append(problems, fmt.Sprintf("duplicate draw: %s %s (%d rows)", game, date, n))
	}
	return problems, rows.Err()
}

// GetSetting reads a configuration key, "" if absent.
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSetting writes a configuration key.
func (db *DB) SetSetting(key, value string) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	_, err := db.conn.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value,
	)
	return err
}
