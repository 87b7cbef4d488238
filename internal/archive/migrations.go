package archive

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS draws (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    game TEXT NOT NULL,
    draw_date TEXT NOT NULL,
    main_numbers TEXT NOT NULL,
    special_numbers TEXT NOT NULL DEFAULT '',
    tiers TEXT NOT NULL DEFAULT '[]',
    ingested_at TEXT DEFAULT (datetime('now')),
    UNIQUE(game, draw_date)
);

CREATE TABLE IF NOT EXISTS played_grids (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    game TEXT NOT NULL,
    date_played TEXT NOT NULL,
    main_numbers TEXT NOT NULL,
    special_numbers TEXT NOT NULL DEFAULT '',
    model_tag TEXT NOT NULL DEFAULT '',
    cost REAL NOT NULL DEFAULT 0,
    gross_gain REAL NOT NULL DEFAULT 0,
    net_gain REAL NOT NULL DEFAULT 0,
    tier_hit INTEGER NOT NULL DEFAULT 0,
    settled INTEGER NOT NULL DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    game TEXT NOT NULL,
    kind TEXT NOT NULL,
    period_id TEXT NOT NULL,
    payload TEXT NOT NULL,
    body_markdown TEXT NOT NULL DEFAULT '',
    generated_at TEXT DEFAULT (datetime('now')),
    UNIQUE(game, kind, period_id)
);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_draws_game_date ON draws(game, draw_date);
CREATE INDEX IF NOT EXISTS idx_played_game_date ON played_grids(game, date_played);
CREATE INDEX IF NOT EXISTS idx_reports_game ON reports(game, kind);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
