package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfmartin/lotoscope/internal/errs"
	"github.com/jfmartin/lotoscope/internal/rules"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to open test db")
	t.Cleanup(func() { db.Close() })
	return db
}

func date(s string) time.Time {
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return d
}

func lotoDraw(day string, main []int, chance int) Draw {
	return Draw{
		Game:    rules.Loto,
		Date:    date(day),
		Main:    main,
		Special: []int{chance},
		Tiers: []TierResult{
			{Rank: 1, Winners: 0, Payout: 0},
			{Rank: 2, Winners: 3, Payout: 120000},
			{Rank: 6, Winners: 15000, Payout: 9.4},
		},
	}
}

func TestInsertDrawRoundTrip(t *testing.T) {
	db := openTestDB(t)

	in := lotoDraw("2024-05-07", []int{3, 17, 22, 38, 44}, 6)
	inserted, err := db.InsertDraw(in)
	require.NoError(t, err)
	assert.True(t, inserted)

	out, err := db.GetDraw(rules.Loto, date("2024-05-07"))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in.Main, out.Main)
	assert.Equal(t, in.Special, out.Special)
	assert.Equal(t, in.Tiers, out.Tiers)
	assert.Equal(t, "2024-05-07", out.Date.Format(DateLayout))
}

func TestInsertDrawDuplicateIsNoOp(t *testing.T) {
	db := openTestDB(t)

	d := lotoDraw("2024-05-07", []int{3, 17, 22, 38, 44}, 6)
	inserted, err := db.InsertDraw(d)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same key, different numbers: the original row must survive untouched.
	d2 := lotoDraw("2024-05-07", []int{1, 2, 3, 4, 5}, 1)
	inserted, err = db.InsertDraw(d2)
	require.NoError(t, err)
	assert.False(t, inserted)

	n, err := db.CountDraws(rules.Loto)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out, _ := db.GetDraw(rules.Loto, date("2024-05-07"))
	assert.Equal(t, []int{3, 17, 22, 38, 44}, out.Main)
}

func TestInsertDrawRejectsInvalid(t *testing.T) {
	db := openTestDB(t)

	// 51 is out of range for LOTO.
	d := lotoDraw("2024-05-07", []int{3, 17, 22, 38, 51}, 6)
	_, err := db.InsertDraw(d)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.SchemaMismatch))

	n, _ := db.CountDraws(rules.Loto)
	assert.Equal(t, 0, n, "rejected draw must leave no side effect")
}

func TestGetDrawsChronologicalWithBounds(t *testing.T) {
	db := openTestDB(t)

	days := []string{"2024-05-11", "2024-05-04", "2024-05-08", "2024-05-06"}
	for i, day := range days {
		_, err := db.InsertDraw(lotoDraw(day, []int{1 + i, 10 + i, 20 + i, 30 + i, 40 + i}, 1+i))
		require.NoError(t, err)
	}

	all, err := db.GetDraws(rules.Loto, DrawFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i].Date.After(all[i-1].Date), "draws must be ascending")
	}

	bounded, err := db.GetDraws(rules.Loto, DrawFilter{
		Since: date("2024-05-05"),
		Until: date("2024-05-09"),
	})
	require.NoError(t, err)
	require.Len(t, bounded, 2)
	assert.Equal(t, "2024-05-06", bounded[0].Date.Format(DateLayout))
	assert.Equal(t, "2024-05-08", bounded[1].Date.Format(DateLayout))

	limited, err := db.GetDraws(rules.Loto, DrawFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestGetDrawsEmptyGame(t *testing.T) {
	db := openTestDB(t)
	draws, err := db.GetDraws(rules.Keno, DrawFilter{})
	require.NoError(t, err)
	assert.Empty(t, draws)
}

func TestLatestDraw(t *testing.T) {
	db := openTestDB(t)

	latest, err := db.LatestDraw(rules.Loto)
	require.NoError(t, err)
	assert.Nil(t, latest)

	db.InsertDraw(lotoDraw("2024-05-04", []int{1, 10, 20, 30, 40}, 1))
	db.InsertDraw(lotoDraw("2024-05-11", []int{2, 11, 21, 31, 41}, 2))
	db.InsertDraw(lotoDraw("2024-05-08", []int{3, 12, 22, 32, 42}, 3))

	latest, err = db.LatestDraw(rules.Loto)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2024-05-11", latest.Date.Format(DateLayout))
}

func TestPlayedGridLifecycle(t *testing.T) {
	db := openTestDB(t)

	id, err := db.InsertPlayed(PlayedGrid{
		Game:       rules.Loto,
		DatePlayed: date("2024-05-06"),
		Main:       []int{3, 17, 22, 38, 44},
		Special:    []int{6},
		ModelTag:   "frequency+recency",
		Cost:       2.20,
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	unsettled, err := db.ListPlayed(rules.Loto, PlayedFilter{UnsettledOnly: true})
	require.NoError(t, err)
	require.Len(t, unsettled, 1)
	assert.Equal(t, "frequency+recency", unsettled[0].ModelTag)

	require.NoError(t, db.UpdatePlayedOutcome(id, 6, 9.40))

	unsettled, err = db.ListPlayed(rules.Loto, PlayedFilter{UnsettledOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unsettled)

	all, err := db.ListPlayed(rules.Loto, PlayedFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	g := all[0]
	assert.True(t, g.Settled)
	assert.Equal(t, 6, g.TierHit)
	assert.InDelta(t, 9.40, g.GrossGain, 1e-9)
	assert.InDelta(t, 9.40-2.20, g.NetGain, 1e-9)
}

func TestInsertPlayedRejectsInvalidGrid(t *testing.T) {
	db := openTestDB(t)

	_, err := db.InsertPlayed(PlayedGrid{
		Game:       rules.Loto,
		DatePlayed: date("2024-05-06"),
		Main:       []int{3, 17, 22, 38}, // one slot short
		Special:    []int{6},
	})
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.SchemaMismatch))
}

func TestUpdatePlayedOutcomeMissingRow(t *testing.T) {
	db := openTestDB(t)
	err := db.UpdatePlayedOutcome(999, 1, 100)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.StorageFailure))
}

func TestReportUpsert(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.InsertReport(rules.EuroDreams, "daily", "2024-05-07", `{"v":1}`, "# v1"))
	require.NoError(t, db.InsertReport(rules.EuroDreams, "daily", "2024-05-07", `{"v":2}`, "# v2"))

	r, err := db.GetReport(rules.EuroDreams, "daily", "2024-05-07")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, `{"v":2}`, r.Payload)

	list, err := db.ListReports()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	missing, err := db.GetReport(rules.Loto, "daily", "2024-05-07")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	db.InsertDraw(lotoDraw("2024-05-04", []int{1, 10, 20, 30, 40}, 1))
	db.InsertDraw(lotoDraw("2024-05-08", []int{2, 11, 21, 31, 41}, 2))
	db.InsertPlayed(PlayedGrid{
		Game: rules.Loto, DatePlayed: date("2024-05-06"),
		Main: []int{1, 2, 3, 4, 5}, Special: []int{1}, Cost: 2.20,
	})

	s, err := db.GetStats(rules.Loto)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Draws)
	assert.Equal(t, "2024-05-04", s.FirstDraw)
	assert.Equal(t, "2024-05-08", s.LastDraw)
	assert.Equal(t, 1, s.PlayedGrids)
	assert.Equal(t, 0, s.Settled)
}

func TestIntegrityCheckHealthy(t *testing.T) {
	db := openTestDB(t)
	db.InsertDraw(lotoDraw("2024-05-04", []int{1, 10, 20, 30, 40}, 1))

	problems, err := db.IntegrityCheck()
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestSettings(t *testing.T) {
	db := openTestDB(t)

	v, err := db.GetSetting("last_ingest")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, db.SetSetting("last_ingest", "2024-05-07"))
	require.NoError(t, db.SetSetting("last_ingest", "2024-05-08"))

	v, err = db.GetSetting("last_ingest")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-08", v)
}

func TestNumberEncodingRoundTrip(t *testing.T) {
	nums := []int{1, 12, 23, 34, 45}
	decoded, err := decodeNumbers(encodeNumbers(nums))
	require.NoError(t, err)
	assert.Equal(t, nums, decoded)

	empty, err := decodeNumbers("")
	require.NoError(t, err)
	assert.Nil(t, empty)
}
