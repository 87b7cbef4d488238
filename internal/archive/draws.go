package archive

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jfmartin/lotoscope/internal/errs"
	"github.com/jfmartin/lotoscope/internal/rules"
)

// InsertDraw validates and stores an official draw. The insert is keyed on
// (game, draw_date): a second insert for the same key is a no-op and
// returns inserted=false. A draw failing rules validation is rejected with
// a SchemaMismatch error and no side effect.
func (db *DB) InsertDraw(d Draw) (inserted bool, err error) {
	const op = "archive.InsertDraw"

	if !rules.ValidateDraw(d.Game, d.Main, d.Special) {
		return false, errs.Newf(errs.SchemaMismatch, op,
			"draw %s %s rejected by rules: main=%v special=%v",
			d.Game, d.Date.Format(DateLayout), d.Main, d.Special)
	}

	tiers, err := json.Marshal(d.Tiers)
	if err != nil {
		return false, errs.Wrap(errs.StorageFailure, op, err)
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	res, err := db.conn.Exec(
		`INSERT INTO draws (game, draw_date, main_numbers, special_numbers, tiers)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(game, draw_date) DO NOTHING`,
		string(d.Game), NormalizeDate(d.Date).Format(DateLayout),
		encodeNumbers(d.Main), encodeNumbers(d.Special), string(tiers),
	)
	if err != nil {
		return false, errs.Wrap(errs.StorageFailure, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errs.Wrap(errs.StorageFailure, op, err)
	}
	return n > 0, nil
}

// DrawFilter narrows a GetDraws query. Zero values mean "no bound".
type DrawFilter struct {
	Since time.Time
	Until time.Time
	Limit int
}

// GetDraws returns draws for a game ordered by ascending draw date.
func (db *DB) GetDraws(game rules.Game, f DrawFilter) ([]Draw, error) {
	const op = "archive.GetDraws"

	query := `SELECT game, draw_date, main_numbers, special_numbers, tiers, ingested_at
		FROM draws WHERE game = ?`
	args := []any{string(game)}

	if !f.Since.IsZero() {
		query += " AND draw_date >= ?"
		args = append(args, NormalizeDate(f.Since).Format(DateLayout))
	}
	if !f.Until.IsZero() {
		query += " AND draw_date <= ?"
		args = append(args, NormalizeDate(f.Until).Format(DateLayout))
	}
	query += " ORDER BY draw_date ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.StorageFailure, op, err)
	}
	defer rows.Close()
	return scanDraws(rows)
}

// LatestDraw returns the newest draw for a game, nil if the archive holds none.
func (db *DB) LatestDraw(game rules.Game) (*Draw, error) {
	const op = "archive.LatestDraw"

	row := db.conn.QueryRow(
		`SELECT game, draw_date, main_numbers, special_numbers, tiers, ingested_at
		FROM draws WHERE game = ? ORDER BY draw_date DESC LIMIT 1`, string(game),
	)
	d, err := scanDrawRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.StorageFailure, op, err)
	}
	return d, nil
}

// GetDraw returns the draw for an exact (game, date) key, nil if absent.
func (db *DB) GetDraw(game rules.Game, date time.Time) (*Draw, error) {
	const op = "archive.GetDraw"

	row := db.conn.QueryRow(
		`SELECT game, draw_date, main_numbers, special_numbers, tiers, ingested_at
		FROM draws WHERE game = ? AND draw_date = ?`,
		string(game), NormalizeDate(date).Format(DateLayout),
	)
	d, err := scanDrawRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.StorageFailure, op, err)
	}
	return d, nil
}

// CountDraws returns the number of stored draws for a game.
func (db *DB) CountDraws(game rules.Game) (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM draws WHERE game = ?", string(game)).Scan(&n)
	if err != nil {
		return 0, errs.Wrap(errs.StorageFailure, "archive.CountDraws", err)
	}
	return n, nil
}

type drawScanner interface {
	Scan(dest ...any) error
}

func scanDraws(rows *sql.Rows) ([]Draw, error) {
	var draws []Draw
	for rows.Next() {
		d, err := scanDrawRow(rows)
		if err != nil {
			return nil, errs.Wrap(errs.StorageFailure, "archive.scanDraws", err)
		}
		draws = append(draws, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.StorageFailure, "archive.scanDraws", err)
	}
	return draws, nil
}

func scanDrawRow(row drawScanner) (*Draw, error) {
	var d Draw
	var game, date, main, special, tiers string
	if err := row.Scan(&game, &date, &main, &special, &tiers, &d.IngestedAt); err != nil {
		return nil, err
	}

	d.Game = rules.Game(game)
	parsed, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return nil, err
	}
	d.Date = parsed

	if d.Main, err = decodeNumbers(main); err != nil {
		return nil, err
	}
	if d.Special, err = decodeNumbers(special); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tiers), &d.Tiers); err != nil {
		return nil, err
	}
	return &d, nil
}
