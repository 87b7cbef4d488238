// Package ingest fetches official results, parses them and appends
// validated draws to the archive. It is the only writer of draw rows.
package ingest

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jfmartin/lotoscope/internal/archive"
	"github.com/jfmartin/lotoscope/internal/errs"
	"github.com/jfmartin/lotoscope/internal/rules"
)

// ErrRunInProgress is returned when a trigger fires while a run holds the
// advisory lock. The trigger is dropped, not queued.
var ErrRunInProgress = errors.New("ingest run already in progress")

// GameSummary is the per-game outcome of one run.
type GameSummary struct {
	Attempts         int    `json:"attempts"`
	Inserted         int    `json:"inserted"`
	SkippedDuplicate int    `json:"skipped_duplicate"`
	Rejected         int    `json:"rejected"`
	Failure          string `json:"failure,omitempty"`
}

// Summary is the outcome of one full ingest run. The counters satisfy
// Inserted + SkippedDuplicate + Rejected + Failures == TotalAttempts.
type Summary struct {
	RunID      string                      `json:"run_id"`
	StartedAt  time.Time                   `json:"started_at"`
	FinishedAt time.Time                   `json:"finished_at"`
	Games      map[rules.Game]*GameSummary `json:"games"`
}

// TotalAttempts sums attempts across games: one per candidate draw, plus
// one per game whose fetch or parse failed outright.
func (s *Summary) TotalAttempts() int {
	n := 0
	for _, g := range s.Games {
		n += g.Attempts
	}
	return n
}

// Inserted sums newly inserted draws across games.
func (s *Summary) Inserted() int {
	n := 0
	for _, g := range s.Games {
		n += g.Inserted
	}
	return n
}

// SkippedDuplicate sums already-archived candidates across games.
func (s *Summary) SkippedDuplicate() int {
	n := 0
	for _, g := range s.Games {
		n += g.SkippedDuplicate
	}
	return n
}

// Rejected sums rules-rejected candidates across games.
func (s *Summary) Rejected() int {
	n := 0
	for _, g := range s.Games {
		n += g.Rejected
	}
	return n
}

// Failures counts games whose fetch or parse failed for the whole run.
func (s *Summary) Failures() int {
	n := 0
	for _, g := range s.Games {
		if g.Failure != "" {
			n++
		}
	}
	return n
}

// Runner drives ingest runs. A run-in-progress advisory lock makes
// overlapping triggers safe: the second trigger is dropped.
type Runner struct {
	db     *archive.DB
	source Source
	games  []rules.Game

	mu      sync.Mutex
	running bool
}

// NewRunner creates a Runner over the given source for the enabled games.
func NewRunner(db *archive.DB, source Source, games []rules.Game) *Runner {
	return &Runner{db: db, source: source, games: games}
}

// Run executes one ingest cycle: for every enabled game, fetch, parse,
// validate, de-duplicate and insert in ascending draw-date order. A failure
// on one game never aborts the others.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrRunInProgress
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Games:     make(map[rules.Game]*GameSummary, len(r.games)),
	}

	for _, game := range r.games {
		gs := &GameSummary{}
		summary.Games[game] = gs

		if err := ctx.Err(); err != nil {
			gs.Attempts++
			gs.Failure = errs.Wrap(errs.CancelRequested, "ingest.Run", err).Error()
			continue
		}

		r.runGame(ctx, game, gs)
	}

	summary.FinishedAt = time.Now().UTC()
	log.Printf("ingest run %s: %d inserted, %d duplicates, %d rejected, %d failures",
		summary.RunID, summary.Inserted(), summary.SkippedDuplicate(),
		summary.Rejected(), summary.Failures())
	return summary, nil
}

func (r *Runner) runGame(ctx context.Context, game rules.Game, gs *GameSummary) {
	payload, err := r.source.FetchGameResults(ctx, game)
	if err != nil {
		gs.Attempts++
		gs.Failure = err.Error()
		log.Printf("ingest %s: fetch failed: %v", game, err)
		return
	}

	candidates, err := Parse(game, payload)
	if err != nil {
		gs.Attempts++
		gs.Failure = err.Error()
		log.Printf("ingest %s: parse failed: %v", game, err)
		return
	}

	// Apply in ascending draw-date order.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Date.Before(candidates[j].Date)
	})

	for _, d := range candidates {
		gs.Attempts++
		inserted, err := r.db.InsertDraw(d)
		switch {
		case err == nil && inserted:
			gs.Inserted++
		case err == nil:
			gs.SkippedDuplicate++
		case errs.IsKind(err, errs.SchemaMismatch):
			gs.Rejected++
			log.Printf("ingest %s: draw %s rejected: %v", game, d.Date.Format(archive.DateLayout), err)
		default:
			// Storage failure aborts this game; the failing candidate's
			// attempt is accounted for by the failure counter, remaining
			// candidates are not counted as attempted.
			gs.Failure = err.Error()
			log.Printf("ingest %s: storage failure: %v", game, err)
			return
		}
	}
}
