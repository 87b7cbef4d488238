// Package report assembles daily, weekly and monthly report objects from an
// archive snapshot and the recommender's output. Reports are plain data:
// persistence and rendering happen elsewhere.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/jfmartin/lotoscope/internal/archive"
	"github.com/jfmartin/lotoscope/internal/recommend"
	"github.com/jfmartin/lotoscope/internal/rules"
)

// Kind selects the report window.
type Kind string

const (
	Daily   Kind = "daily"
	Weekly  Kind = "weekly"
	Monthly Kind = "monthly"
)

// defaultGridCount is the number of predicted grids per report.
const defaultGridCount = 3

// historyLimit caps the historique section.
const historyLimit = 30

// Request describes one report build.
type Request struct {
	Game      rules.Game
	Kind      Kind
	Now       time.Time // report reference date; the window ends here
	Seed      int64     // recommender seed; 0 derives one from the next draw date
	GridCount int       // 0 means defaultGridCount
	Features  []string
}

// AggregateStats summarizes the window.
type AggregateStats struct {
	DrawCount     int     `json:"nombre_tirages"`
	TotalPayout   float64 `json:"gain_total"`
	MeanPayout    float64 `json:"gain_moyen"`
	MaxPayout     float64 `json:"gain_max"`
	WinningPlayed int     `json:"grilles_gagnantes"`
}

// GainTable is the per-tier projection block.
type GainTable struct {
	Ranks []recommend.TierProjection `json:"rangs"`
}

// DrawDigest is one historique entry.
type DrawDigest struct {
	Date    string `json:"date"`
	Main    []int  `json:"numeros"`
	Special []int  `json:"numeros_speciaux,omitempty"`
}

// Visual describes one chart the renderer should produce.
type Visual struct {
	Type  string `json:"type"`
	Title string `json:"titre"`
}

// Report is the structured payload handed to renderers.
type Report struct {
	Game            rules.Game             `json:"game"`
	Kind            Kind                   `json:"kind"`
	PeriodID        string                 `json:"period_id"`
	GeneratedAt     time.Time              `json:"generated_at"`
	NextDrawDate    string                 `json:"prochain_tirage"`
	Stats           AggregateStats         `json:"stats"`
	Trends          TrendBlock             `json:"tendances"`
	Predictions     []recommend.ScoredGrid `json:"predictions"`
	PredictedGains  GainTable              `json:"gains_predits"`
	History         []DrawDigest           `json:"historique"`
	Recommendations []string               `json:"recommandations"`
	Visuals         []Visual               `json:"visualisations"`
	Warning         string                 `json:"avertissement,omitempty"`
}

// Builder assembles reports. It owns no storage: callers pass the snapshot.
type Builder struct {
	rec *recommend.Recommender
}

// NewBuilder creates a Builder over the given recommender.
func NewBuilder(rec *recommend.Recommender) *Builder {
	return &Builder{rec: rec}
}

// Build assembles one report from a consistent archive snapshot. draws must
// be in ascending date order, as the store returns them.
func (b *Builder) Build(ctx context.Context, req Request, draws []archive.Draw, played []archive.PlayedGrid) (*Report, error) {
	r, err := rules.Get(req.Game)
	if err != nil {
		return nil, err
	}
	if req.Now.IsZero() {
		req.Now = time.Now().UTC()
	}
	if req.GridCount <= 0 {
		req.GridCount = defaultGridCount
	}

	nextDraw, err := rules.NextDrawDate(req.Game, req.Now)
	if err != nil {
		return nil, err
	}
	seed := req.Seed
	if seed == 0 {
		seed = recommend.DeriveSeed(req.Game, nextDraw)
	}

	window := windowDraws(draws, req.Kind, req.Now)

	rec, err := b.rec.Recommend(ctx, recommend.Request{
		Game:     req.Game,
		Date:     nextDraw,
		Count:    req.GridCount,
		Seed:     seed,
		Features: req.Features,
	}, draws)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Game:           req.Game,
		Kind:           req.Kind,
		PeriodID:       PeriodID(req.Kind, req.Now),
		GeneratedAt:    req.Now,
		NextDrawDate:   nextDraw.Format(archive.DateLayout),
		Stats:          aggregate(window, played),
		Trends:         trends(r, window),
		Predictions:    rec.Grids,
		PredictedGains: GainTable{Ranks: recommend.TierStats(r, window)},
		History:        history(window),
		Visuals: []Visual{
			{Type: "bar", Title: "Fréquence des numéros"},
			{Type: "heatmap", Title: "Paires récurrentes"},
			{Type: "line", Title: "Cycles et saisonnalité"},
		},
	}
	if rec.Warning != nil {
		rep.Warning = rec.Warning.Error()
	}
	rep.Recommendations = recommendations(rep)
	return rep, nil
}

// PeriodID keys a report in storage: date for daily, ISO week for weekly,
// year-month for monthly.
func PeriodID(kind Kind, now time.Time) string {
	switch kind {
	case Weekly:
		y, w := now.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	case Monthly:
		return now.Format("2006-01")
	default:
		return now.Format(archive.DateLayout)
	}
}

// windowDraws slices the snapshot down to the report's window: 30 days for
// daily, 7 for weekly, the calendar month of now for monthly.
func windowDraws(draws []archive.Draw, kind Kind, now time.Time) []archive.Draw {
	var since, until time.Time
	switch kind {
	case Weekly:
		since = now.AddDate(0, 0, -7)
		until = now
	case Monthly:
		since = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		until = since.AddDate(0, 1, 0).Add(-time.Nanosecond)
	default:
		since = now.AddDate(0, 0, -30)
		until = now
	}

	var out []archive.Draw
	for _, d := range draws {
		if !d.Date.Before(since) && !d.Date.After(until) {
			out = append(out, d)
		}
	}
	return out
}

func aggregate(window []archive.Draw, played []archive.PlayedGrid) AggregateStats {
	s := AggregateStats{DrawCount: len(window)}
	payouts := 0
	for _, d := range window {
		for _, t := range d.Tiers {
			if t.Winners > 0 {
				s.TotalPayout += t.Payout * float64(t.Winners)
				if t.Payout > s.MaxPayout {
					s.MaxPayout = t.Payout
				}
				payouts++
			}
		}
	}
	if payouts > 0 {
		s.MeanPayout = s.TotalPayout / float64(payouts)
	}
	for _, g := range played {
		if g.Settled && g.GrossGain > 0 {
			s.WinningPlayed++
		}
	}
	return s
}

// history returns the most recent window draws, newest first, capped.
func history(window []archive.Draw) []DrawDigest {
	n := len(window)
	if n > historyLimit {
		n = historyLimit
	}
	out := make([]DrawDigest, 0, n)
	for i := len(window) - 1; i >= len(window)-n; i-- {
		d := window[i]
		out = append(out, DrawDigest{
			Date:    d.Date.Format(archive.DateLayout),
			Main:    d.Main,
			Special: d.Special,
		})
	}
	return out
}

// recommendations derives short advice strings from the assembled report.
// The list is never empty.
func recommendations(rep *Report) []string {
	var out []string

	if rep.Warning != "" {
		out = append(out, "Historique insuffisant : les grilles proposées sont tirées uniformément.")
	}
	if len(rep.Trends.HotNumbers) > 0 {
		out = append(out, fmt.Sprintf("Numéros chauds sur la période : %v.", rep.Trends.HotNumbers))
	}
	if len(rep.Trends.Pairs) > 0 {
		p := rep.Trends.Pairs[0]
		out = append(out, fmt.Sprintf("La paire %d-%d est sortie %d fois sur la fenêtre.", p.Numbers[0], p.Numbers[1], p.Count))
	}

	// Gain-rate posture: frequent recent payouts suggest playing wider.
	if rep.Stats.DrawCount > 0 {
		rate := float64(rep.Stats.WinningPlayed) / float64(rep.Stats.DrawCount)
		switch {
		case rate >= 0.5:
			out = append(out, "Série de gains élevée : stratégie agressive recommandée (plusieurs grilles).")
		case rep.Stats.TotalPayout == 0:
			out = append(out, "Aucun gain observé sur la fenêtre : stratégie conservatrice recommandée.")
		default:
			out = append(out, "Tendance neutre : conserver le nombre de grilles habituel.")
		}
	}

	out = append(out, recommend.FairnessNotice)
	return out
}
