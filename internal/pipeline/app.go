// Package pipeline wires the components into the application's public
// operations: ingest cycle, grid recommendation, report building, the
// played-grid ledger and the background schedule.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jfmartin/lotoscope/internal/archive"
	"github.com/jfmartin/lotoscope/internal/config"
	"github.com/jfmartin/lotoscope/internal/errs"
	"github.com/jfmartin/lotoscope/internal/feature"
	"github.com/jfmartin/lotoscope/internal/ingest"
	"github.com/jfmartin/lotoscope/internal/recommend"
	"github.com/jfmartin/lotoscope/internal/report"
	"github.com/jfmartin/lotoscope/internal/rules"
	"github.com/jfmartin/lotoscope/internal/scheduler"
)

// feedbackKey is the settings slot holding queued anonymous feedback.
const feedbackKey = "feedback_queue"

// App owns the component graph. One App serves the whole process.
type App struct {
	cfg     *config.Config
	db      *archive.DB
	runner  *ingest.Runner
	rec     *recommend.Recommender
	builder *report.Builder
}

// New assembles the application from a loaded config and an open archive.
func New(cfg *config.Config, db *archive.DB) (*App, error) {
	return NewWithSource(cfg, db, ingest.NewFetcher(cfg))
}

// NewWithSource wires a custom results source instead of the HTTP fetcher.
func NewWithSource(cfg *config.Config, db *archive.DB, src ingest.Source) (*App, error) {
	games, err := enabledGames(cfg)
	if err != nil {
		return nil, err
	}

	engine := feature.NewEngine(cfg.Recommender.MinHistoryDraws)
	rec := recommend.New(engine)
	return &App{
		cfg:     cfg,
		db:      db,
		runner:  ingest.NewRunner(db, src, games),
		rec:     rec,
		builder: report.NewBuilder(rec),
	}, nil
}

// enabledGames resolves the configured game list against the registry.
func enabledGames(cfg *config.Config) ([]rules.Game, error) {
	games := make([]rules.Game, 0, len(cfg.Scheduler.EnabledGames))
	for _, name := range cfg.Scheduler.EnabledGames {
		g := rules.Game(strings.ToUpper(name))
		if _, err := rules.Get(g); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, nil
}

// RunIngestCycle sweeps every enabled game's official source into the
// archive. Overlapping calls are dropped by the runner.
func (a *App) RunIngestCycle(ctx context.Context) (*ingest.Summary, error) {
	return a.runner.Run(ctx)
}

// RecommendRequest is the pipeline-level recommendation call.
type RecommendRequest struct {
	Game   rules.Game
	Count  int
	Seed   *int64 // nil derives from the next draw date
	Unique bool
}

// GetRecommendation samples scored grids for the game's next draw.
func (a *App) GetRecommendation(ctx context.Context, req RecommendRequest) (*recommend.Result, error) {
	next, err := rules.NextDrawDate(req.Game, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	seed := recommend.DeriveSeed(req.Game, next)
	if req.Seed != nil {
		seed = *req.Seed
	} else if a.cfg.Recommender.Seed != nil {
		seed = *a.cfg.Recommender.Seed
	}

	draws, err := a.snapshot(req.Game)
	if err != nil {
		return nil, err
	}
	return a.rec.Recommend(ctx, recommend.Request{
		Game:     req.Game,
		Date:     next,
		Count:    req.Count,
		Seed:     seed,
		Features: a.cfg.Recommender.Features,
		Unique:   req.Unique || a.cfg.Recommender.Unique,
	}, draws)
}

// BuildReport assembles a report over a consistent snapshot and persists
// it for the local server. The in-memory report is the return value.
func (a *App) BuildReport(ctx context.Context, game rules.Game, kind report.Kind) (*report.Report, error) {
	now := time.Now().UTC()
	draws, err := a.snapshot(game)
	if err != nil {
		return nil, err
	}
	played, err := a.db.ListPlayed(game, archive.PlayedFilter{})
	if err != nil {
		return nil, err
	}

	rep, err := a.builder.Build(ctx, report.Request{
		Game:     game,
		Kind:     kind,
		Now:      now,
		Features: a.cfg.Recommender.Features,
	}, draws, played)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	if err := a.db.InsertReport(game, string(rep.Kind), rep.PeriodID, string(payload), report.Markdown(rep)); err != nil {
		return nil, err
	}
	return rep, nil
}

// RecordPlayedGrid validates and stores a ticket in the ledger.
func (a *App) RecordPlayedGrid(game rules.Game, main, special []int, modelTag string) (int64, error) {
	r, err := rules.Get(game)
	if err != nil {
		return 0, err
	}
	return a.db.InsertPlayed(archive.PlayedGrid{
		Game:       game,
		DatePlayed: archive.NormalizeDate(time.Now().UTC()),
		Main:       main,
		Special:    special,
		ModelTag:   modelTag,
		Cost:       r.TicketPrice,
	})
}

// SettleResult summarizes one settlement sweep.
type SettleResult struct {
	Settled int
	Pending int
	Won     int
	Gross   float64
}

// SettlePlayedGrids evaluates unsettled tickets against arrived draws.
// A ticket targets the first draw on or after its play date; tickets whose
// draw has not arrived yet stay pending.
func (a *App) SettlePlayedGrids(ctx context.Context, game rules.Game) (*SettleResult, error) {
	unsettled, err := a.db.ListPlayed(game, archive.PlayedFilter{UnsettledOnly: true})
	if err != nil {
		return nil, err
	}

	res := &SettleResult{}
	for _, g := range unsettled {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.CancelRequested, "pipeline.SettlePlayedGrids", err)
		}

		target, err := targetDrawDate(game, g.DatePlayed)
		if err != nil {
			return nil, err
		}
		draw, err := a.db.GetDraw(game, target)
		if err != nil {
			return nil, err
		}
		if draw == nil {
			res.Pending++
			continue
		}

		rank, gross := settleAgainst(&g, draw)
		if err := a.db.UpdatePlayedOutcome(g.ID, rank, gross); err != nil {
			return nil, err
		}
		res.Settled++
		if gross > 0 {
			res.Won++
			res.Gross += gross
		}
	}
	return res, nil
}

// targetDrawDate is the play date itself when it falls on a draw weekday,
// otherwise the next draw date after it.
func targetDrawDate(game rules.Game, played time.Time) (time.Time, error) {
	r, err := rules.Get(game)
	if err != nil {
		return time.Time{}, err
	}
	d := archive.NormalizeDate(played)
	if r.DrawsOn(d.Weekday()) {
		return d, nil
	}
	return rules.NextDrawDate(game, d)
}

// settleAgainst matches a ticket against a draw and reads the unit payout
// for the hit tier from the draw's own prize table.
func settleAgainst(g *archive.PlayedGrid, draw *archive.Draw) (rank int, gross float64) {
	tier := rules.MatchTier(g.Game, g.Main, g.Special, draw.Main, draw.Special)
	if tier == nil {
		return 0, 0
	}
	for _, tr := range draw.Tiers {
		if tr.Rank == tier.Rank {
			return tier.Rank, tr.Payout
		}
	}
	// Draw arrived without a prize table for this tier; record the hit
	// with a zero payout rather than inventing one.
	return tier.Rank, 0
}

// RunIntegrityCheck runs the archive health checks, logging violations.
func (a *App) RunIntegrityCheck(ctx context.Context) error {
	violations, err := a.db.IntegrityCheck()
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		for _, v := range violations {
			log.Printf("Integrity violation: %s", v)
		}
		return fmt.Errorf("integrity check found %d violations", len(violations))
	}
	return nil
}

// RecordFeedback appends one anonymous feedback line to the queue.
func (a *App) RecordFeedback(msg string) error {
	msg = strings.TrimSpace(strings.ReplaceAll(msg, "\n", " "))
	if msg == "" {
		return nil
	}
	queue, err := a.db.GetSetting(feedbackKey)
	if err != nil {
		return err
	}
	if queue != "" {
		queue += "\n"
	}
	return a.db.SetSetting(feedbackKey, queue+msg)
}

// DrainFeedback flushes the queued feedback lines. The hourly scheduler
// job calls this; the external notifier picks the lines up from the log.
func (a *App) DrainFeedback(ctx context.Context) error {
	queue, err := a.db.GetSetting(feedbackKey)
	if err != nil {
		return err
	}
	if queue == "" {
		return nil
	}
	lines := strings.Split(queue, "\n")
	for _, line := range lines {
		log.Printf("Feedback: %s", line)
	}
	if err := a.db.SetSetting(feedbackKey, ""); err != nil {
		return err
	}
	log.Printf("Drained %d feedback entries", len(lines))
	return nil
}

// RunSchedule blocks, driving the nightly ingest and hourly maintenance
// jobs until ctx is cancelled.
func (a *App) RunSchedule(ctx context.Context) error {
	s, err := scheduler.New(a.cfg.Scheduler.IngestTime, scheduler.Jobs{
		Ingest: func(ctx context.Context) error {
			summary, err := a.RunIngestCycle(ctx)
			if err != nil {
				return err
			}
			log.Printf("Ingest run %s: %d inserted, %d duplicates, %d rejected, %d failures",
				summary.RunID, summary.Inserted(), summary.SkippedDuplicate(), summary.Rejected(), summary.Failures())
			return nil
		},
		IntegrityCheck: a.RunIntegrityCheck,
		FeedbackDrain:  a.DrainFeedback,
	})
	if err != nil {
		return err
	}
	s.Run(ctx)
	return nil
}

// snapshot loads the configured archive window for one game, ascending.
func (a *App) snapshot(game rules.Game) ([]archive.Draw, error) {
	years := a.cfg.Archive.MaxWindowYears
	if years <= 0 {
		years = 10
	}
	since := time.Now().UTC().AddDate(-years, 0, 0)
	return a.db.GetDraws(game, archive.DrawFilter{Since: since})
}
