package report

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfmartin/lotoscope/internal/archive"
	"github.com/jfmartin/lotoscope/internal/feature"
	"github.com/jfmartin/lotoscope/internal/recommend"
	"github.com/jfmartin/lotoscope/internal/rules"
)

// dailyHistory builds n consecutive daily draws ending the day before ref.
func dailyHistory(t *testing.T, game rules.Game, n int, ref time.Time) []archive.Draw {
	t.Helper()
	r, err := rules.Get(game)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(21))
	draws := make([]archive.Draw, n)
	day := ref.AddDate(0, 0, -n)
	for i := range draws {
		main := rng.Perm(r.PoolSize())[:r.MainCount]
		for j := range main {
			main[j] += r.MainMin
		}
		var special []int
		if r.SpecialCount > 0 {
			special = rng.Perm(r.SpecialPoolSize())[:r.SpecialCount]
			for j := range special {
				special[j] += r.SpecialMin
			}
		}
		draws[i] = archive.Draw{
			Game:    game,
			Date:    day,
			Main:    main,
			Special: special,
			Tiers: []archive.TierResult{
				{Rank: 1, Winners: i % 2, Payout: 100000},
				{Rank: len(r.PrizeTiers), Winners: 1000, Payout: 2.5},
			},
		}
		day = day.AddDate(0, 0, 1)
	}
	return draws
}

func newBuilder() *Builder {
	return NewBuilder(recommend.New(feature.NewEngine(30)))
}

func TestBuildDailyShape(t *testing.T) {
	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	draws := dailyHistory(t, rules.EuroDreams, 365, ref)
	r, _ := rules.Get(rules.EuroDreams)

	rep, err := newBuilder().Build(context.Background(), Request{
		Game: rules.EuroDreams,
		Kind: Daily,
		Now:  ref,
		Seed: 17,
	}, draws, nil)
	require.NoError(t, err)

	assert.Len(t, rep.Predictions, 3)
	assert.Len(t, rep.PredictedGains.Ranks, len(r.PrizeTiers))
	assert.LessOrEqual(t, len(rep.History), 30)
	assert.NotEmpty(t, rep.Recommendations)
	assert.Empty(t, rep.Warning)
	assert.Equal(t, "2024-06-01", rep.PeriodID)
	assert.NotEmpty(t, rep.Visuals)

	next, _ := rules.NextDrawDate(rules.EuroDreams, ref)
	assert.Equal(t, next.Format(archive.DateLayout), rep.NextDrawDate)

	for _, g := range rep.Predictions {
		assert.True(t, rules.ValidateGrid(rules.EuroDreams, g.Main, g.Special))
		assert.Equal(t, recommend.FairnessNotice, g.Notice)
	}

	// History is newest first and inside the 30 day window.
	for i := 1; i < len(rep.History); i++ {
		assert.Greater(t, rep.History[i-1].Date, rep.History[i].Date)
	}
}

func TestBuildDeterministic(t *testing.T) {
	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	draws := dailyHistory(t, rules.Loto, 120, ref)

	req := Request{Game: rules.Loto, Kind: Weekly, Now: ref, Seed: 9}
	a, err := newBuilder().Build(context.Background(), req, draws, nil)
	require.NoError(t, err)
	b, err := newBuilder().Build(context.Background(), req, draws, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildEmptyArchiveWarning(t *testing.T) {
	rep, err := newBuilder().Build(context.Background(), Request{
		Game: rules.Keno,
		Kind: Daily,
		Now:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Seed: 4,
	}, nil, nil)
	require.NoError(t, err)

	assert.Contains(t, rep.Warning, "insufficient")
	assert.Len(t, rep.Predictions, 3)
	assert.Empty(t, rep.History)
	assert.NotEmpty(t, rep.Recommendations)
	assert.Contains(t, rep.Recommendations[0], "Historique insuffisant")
}

func TestBuildUnknownGame(t *testing.T) {
	_, err := newBuilder().Build(context.Background(), Request{Game: "bingo", Kind: Daily}, nil, nil)
	require.Error(t, err)
}

func TestPeriodID(t *testing.T) {
	now := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-04", PeriodID(Daily, now))
	assert.Equal(t, "2024-W10", PeriodID(Weekly, now))
	assert.Equal(t, "2024-03", PeriodID(Monthly, now))
}

func TestWindowDraws(t *testing.T) {
	ref := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	draws := dailyHistory(t, rules.Loto, 120, ref)

	weekly := windowDraws(draws, Weekly, ref)
	assert.Len(t, weekly, 7)

	monthly := windowDraws(draws, Monthly, ref)
	for _, d := range monthly {
		assert.Equal(t, time.June, d.Date.Month())
	}
	assert.Len(t, monthly, 14, "June 1st through the 14th")

	daily := windowDraws(draws, Daily, ref)
	assert.Len(t, daily, 30)
}

func TestAggregateStats(t *testing.T) {
	window := []archive.Draw{
		{Tiers: []archive.TierResult{{Rank: 1, Winners: 2, Payout: 100}, {Rank: 2, Winners: 0, Payout: 0}}},
		{Tiers: []archive.TierResult{{Rank: 1, Winners: 1, Payout: 300}}},
	}
	played := []archive.PlayedGrid{
		{Settled: true, GrossGain: 12},
		{Settled: true, GrossGain: 0},
		{Settled: false, GrossGain: 0},
	}

	s := aggregate(window, played)
	assert.Equal(t, 2, s.DrawCount)
	assert.InDelta(t, 500.0, s.TotalPayout, 1e-9)
	assert.InDelta(t, 250.0, s.MeanPayout, 1e-9)
	assert.InDelta(t, 300.0, s.MaxPayout, 1e-9)
	assert.Equal(t, 1, s.WinningPlayed)
}

func TestTrendsHotColdAndPairs(t *testing.T) {
	r, _ := rules.Get(rules.Loto)
	window := []archive.Draw{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Main: []int{1, 2, 3, 4, 5}},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Main: []int{1, 2, 10, 20, 30}},
		{Date: time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), Main: []int{1, 2, 11, 21, 31}},
	}

	tb := trends(r, window)
	assert.Len(t, tb.Frequency, r.PoolSize())
	assert.Equal(t, 3, tb.Frequency[1])
	assert.Equal(t, []int{1, 2, 3, 4, 5}, tb.HotNumbers)
	require.NotEmpty(t, tb.Pairs)
	assert.Equal(t, Pair{Numbers: [2]int{1, 2}, Count: 3}, tb.Pairs[0])
	assert.NotEmpty(t, tb.Cycles.Weekly)
	assert.NotEmpty(t, tb.Cycles.Lunar)
}

func TestMarkdownSections(t *testing.T) {
	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	draws := dailyHistory(t, rules.Loto, 120, ref)

	rep, err := newBuilder().Build(context.Background(), Request{
		Game: rules.Loto, Kind: Monthly, Now: ref, Seed: 3,
	}, draws, nil)
	require.NoError(t, err)

	body := Markdown(rep)
	assert.True(t, strings.HasPrefix(body, "# Rapport mensuel"))
	for _, section := range []string{"## Statistiques", "## Prédictions", "## Gains prédits", "## Recommandations"} {
		assert.Contains(t, body, section)
	}
	assert.Contains(t, body, recommend.FairnessNotice)
}
