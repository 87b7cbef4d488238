package archive

import (
	"time"

	"github.com/jfmartin/lotoscope/internal/errs"
	"github.com/jfmartin/lotoscope/internal/rules"
)

// InsertPlayed records a played grid and returns its ID.
func (db *DB) InsertPlayed(g PlayedGrid) (int64, error) {
	const op = "archive.InsertPlayed"

	if !rules.ValidateGrid(g.Game, g.Main, g.Special) {
		return 0, errs.Newf(errs.SchemaMismatch, op,
			"grid rejected by rules: game=%s main=%v special=%v", g.Game, g.Main, g.Special)
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	res, err := db.conn.Exec(
		`INSERT INTO played_grids (game, date_played, main_numbers, special_numbers, model_tag, cost)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(g.Game), NormalizeDate(g.DatePlayed).Format(DateLayout),
		encodeNumbers(g.Main), encodeNumbers(g.Special), g.ModelTag, g.Cost,
	)
	if err != nil {
		return 0, errs.Wrap(errs.StorageFailure, op, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errs.Wrap(errs.StorageFailure, op, err)
	}
	return id, nil
}

// UpdatePlayedOutcome settles one grid against an official result.
// net_gain is gross minus the recorded ticket cost.
func (db *DB) UpdatePlayedOutcome(id int64, tierHit int, grossGain float64) error {
	const op = "archive.UpdatePlayedOutcome"

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	res, err := db.conn.Exec(
		`UPDATE played_grids
		SET tier_hit = ?, gross_gain = ?, net_gain = ? - cost, settled = 1
		WHERE id = ?`,
		tierHit, grossGain, grossGain, id,
	)
	if err != nil {
		return errs.Wrap(errs.StorageFailure, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.StorageFailure, op, err)
	}
	if n == 0 {
		return errs.Newf(errs.StorageFailure, op, "played grid %d not found", id)
	}
	return nil
}

// PlayedFilter narrows a ListPlayed query. Zero values mean "no bound".
type PlayedFilter struct {
	Since         time.Time
	Until         time.Time
	UnsettledOnly bool
}

// ListPlayed returns played grids for a game ordered by ascending play date.
func (db *DB) ListPlayed(game rules.Game, f PlayedFilter) ([]PlayedGrid, error) {
	const op = "archive.ListPlayed"

	query := `SELECT id, game, date_played, main_numbers, special_numbers, model_tag,
		cost, gross_gain, net_gain, tier_hit, settled, created_at
		FROM played_grids WHERE game = ?`
	args := []any{string(game)}

	if !f.Since.IsZero() {
		query += " AND date_played >= ?"
		args = append(args, NormalizeDate(f.Since).Format(DateLayout))
	}
	if !f.Until.IsZero() {
		query += " AND date_played <= ?"
		args = append(args, NormalizeDate(f.Until).Format(DateLayout))
	}
	if f.UnsettledOnly {
		query += " AND settled = 0"
	}
	query += " ORDER BY date_played ASC, id ASC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.StorageFailure, op, err)
	}
	defer rows.Close()

	var grids []PlayedGrid
	for rows.Next() {
		var g PlayedGrid
		var game, date, main, special string
		var settled int
		if err := rows.Scan(&g.ID, &game, &date, &main, &special, &g.ModelTag,
			&g.Cost, &g.GrossGain, &g.NetGain, &g.TierHit, &settled, &g.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.StorageFailure, op, err)
		}
		g.Game = rules.Game(game)
		if g.DatePlayed, err = time.ParseInLocation(DateLayout, date, time.UTC); err != nil {
			return nil, errs.Wrap(errs.StorageFailure, op, err)
		}
		if g.Main, err = decodeNumbers(main); err != nil {
			return nil, errs.Wrap(errs.StorageFailure, op, err)
		}
		if g.Special, err = decodeNumbers(special); err != nil {
			return nil, errs.Wrap(errs.StorageFailure, op, err)
		}
		g.Settled = settled != 0
		grids = append(grids, g)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.StorageFailure, op, err)
	}
	return grids, nil
}
