package archive

import (
	"database/sql"

	"github.com/jfmartin/lotoscope/internal/errs"
	"github.com/jfmartin/lotoscope/internal/rules"
)

// InsertReport stores a generated report, replacing any previous report for
// the same (game, kind, period).
func (db *DB) InsertReport(game rules.Game, kind, periodID, payload, bodyMarkdown string) error {
	const op = "archive.InsertReport"

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	_, err := db.conn.Exec(
		`INSERT INTO reports (game, kind, period_id, payload, body_markdown)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(game, kind, period_id) DO UPDATE SET
			payload = excluded.payload,
			body_markdown = excluded.body_markdown,
			generated_at = datetime('now')`,
		string(game), kind, periodID, payload, bodyMarkdown,
	)
	if err != nil {
		return errs.Wrap(errs.StorageFailure, op, err)
	}
	return nil
}

// GetReport returns a stored report, nil if absent.
func (db *DB) GetReport(game rules.Game, kind, periodID string) (*StoredReport, error) {
	const op = "archive.GetReport"

	row := db.conn.QueryRow(
		`SELECT id, game, kind, period_id, payload, body_markdown, generated_at
		FROM reports WHERE game = ? AND kind = ? AND period_id = ?`,
		string(game), kind, periodID,
	)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.StorageFailure, op, err)
	}
	return r, nil
}

// ListReports returns all stored reports, newest first.
func (db *DB) ListReports() ([]StoredReport, error) {
	const op = "archive.ListReports"

	rows, err := db.conn.Query(
		`SELECT id, game, kind, period_id, payload, body_markdown, generated_at
		FROM reports ORDER BY generated_at DESC, id DESC`,
	)
	if err != nil {
		return nil, errs.Wrap(errs.StorageFailure, op, err)
	}
	defer rows.Close()

	var reports []StoredReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, errs.Wrap(errs.StorageFailure, op, err)
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.StorageFailure, op, err)
	}
	return reports, nil
}

// GetStats aggregates archive statistics for one game.
func (db *DB) GetStats(game rules.Game) (*Stats, error) {
	const op = "archive.GetStats"
	s := &Stats{}

	err := db.conn.QueryRow(
		`SELECT COUNT(*), COALESCE(MIN(draw_date), ''), COALESCE(MAX(draw_date), '')
		FROM draws WHERE game = ?`, string(game),
	).Scan(&s.Draws, &s.FirstDraw, &s.LastDraw)
	if err != nil {
		return nil, errs.Wrap(errs.StorageFailure, op, err)
	}

	err = db.conn.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(settled), 0) FROM played_grids WHERE game = ?`,
		string(game),
	).Scan(&s.PlayedGrids, &s.Settled)
	if err != nil {
		return nil, errs.Wrap(errs.StorageFailure, op, err)
	}

	err = db.conn.QueryRow(
		`SELECT COUNT(*) FROM reports WHERE game = ?`, string(game),
	).Scan(&s.Reports)
	if err != nil {
		return nil, errs.Wrap(errs.StorageFailure, op, err)
	}
	return s, nil
}

func scanReport(row drawScanner) (*StoredReport, error) {
	var r StoredReport
	var game string
	if err := row.Scan(&r.ID, &game, &r.Kind, &r.PeriodID, &r.Payload,
		&r.BodyMarkdown, &r.GeneratedAt); err != nil {
		return nil, err
	}
	r.Game = rules.Game(game)
	return &r, nil
}
