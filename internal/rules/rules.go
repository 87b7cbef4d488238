// Package rules holds the canonical description of each supported game:
// number ranges, draw weekdays, ticket cost and the ordered prize tiers.
// The registry is read-only at runtime.
package rules

import (
	"time"

	"github.com/jfmartin/lotoscope/internal/errs"
)

// Game identifies a lottery game.
type Game string

const (
	Loto         Game = "LOTO"
	EuroMillions Game = "EUROMILLIONS"
	EuroDreams   Game = "EURODREAMS"
	Keno         Game = "KENO"
)

// Tier is one official payout level. Rank 1 is the jackpot. MainHits and
// SpecialHits form the match signature; SpecialHits < 0 means the special
// count does not matter for the tier.
type Tier struct {
	Rank        int
	ID          string
	MainHits    int
	SpecialHits int
}

// GameRules describes one game. Immutable after registration.
type GameRules struct {
	Name Game

	MainCount int // numbers drawn per official draw
	MainMin   int
	MainMax   int

	SpecialCount int // 0 if the game has no secondary pool
	SpecialMin   int
	SpecialMax   int

	// PickCount is the number of main slots on a ticket. Equal to MainCount
	// for every game except KENO, where 20 numbers are drawn but a ticket
	// marks 10.
	PickCount int

	DrawWeekdays []time.Weekday
	TicketPrice  float64
	PrizeTiers   []Tier
}

// PoolSize returns the size of the legal main-number pool.
func (r GameRules) PoolSize() int { return r.MainMax - r.MainMin + 1 }

// SpecialPoolSize returns the size of the special pool, 0 if none.
func (r GameRules) SpecialPoolSize() int {
	if r.SpecialCount == 0 {
		return 0
	}
	return r.SpecialMax - r.SpecialMin + 1
}

// DrawsOn reports whether the game draws on the given weekday.
func (r GameRules) DrawsOn(d time.Weekday) bool {
	for _, w := range r.DrawWeekdays {
		if w == d {
			return true
		}
	}
	return false
}

var registry = map[Game]GameRules{
	Loto: {
		Name:      Loto,
		MainCount: 5, MainMin: 1, MainMax: 49,
		SpecialCount: 1, SpecialMin: 1, SpecialMax: 10,
		PickCount:    5,
		DrawWeekdays: []time.Weekday{time.Monday, time.Wednesday, time.Saturday},
		TicketPrice:  2.20,
		PrizeTiers: []Tier{
			{1, "5+1", 5, 1}, {2, "5+0", 5, 0}, {3, "4+1", 4, 1},
			{4, "4+0", 4, 0}, {5, "3+1", 3, 1}, {6, "3+0", 3, 0},
			{7, "2+1", 2, 1}, {8, "2+0", 2, 0}, {9, "0+1", 0, 1},
		},
	},
	EuroMillions: {
		Name:      EuroMillions,
		MainCount: 5, MainMin: 1, MainMax: 50,
		SpecialCount: 2, SpecialMin: 1, SpecialMax: 12,
		PickCount:    5,
		DrawWeekdays: []time.Weekday{time.Tuesday, time.Friday},
		TicketPrice:  2.50,
		PrizeTiers: []Tier{
			{1, "5+2", 5, 2}, {2, "5+1", 5, 1}, {3, "5+0", 5, 0},
			{4, "4+2", 4, 2}, {5, "4+1", 4, 1}, {6, "4+0", 4, 0},
			{7, "3+2", 3, 2}, {8, "2+2", 2, 2}, {9, "3+1", 3, 1},
			{10, "3+0", 3, 0}, {11, "1+2", 1, 2}, {12, "2+1", 2, 1},
			{13, "2+0", 2, 0},
		},
	},
	EuroDreams: {
		Name:      EuroDreams,
		MainCount: 6, MainMin: 1, MainMax: 40,
		SpecialCount: 1, SpecialMin: 1, SpecialMax: 5,
		PickCount:    6,
		DrawWeekdays: []time.Weekday{time.Monday, time.Thursday},
		TicketPrice:  2.50,
		PrizeTiers: []Tier{
			{1, "6+1", 6, 1}, {2, "6+0", 6, 0}, {3, "5", 5, -1},
			{4, "4", 4, -1}, {5, "3", 3, -1}, {6, "2", 2, -1},
		},
	},
	Keno: {
		Name:      Keno,
		MainCount: 20, MainMin: 1, MainMax: 70,
		PickCount: 10,
		DrawWeekdays: []time.Weekday{
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
			time.Thursday, time.Friday, time.Saturday,
		},
		TicketPrice: 1.00,
		PrizeTiers: []Tier{
			{1, "10", 10, -1}, {2, "9", 9, -1}, {3, "8", 8, -1},
			{4, "7", 7, -1}, {5, "6", 6, -1}, {6, "5", 5, -1},
			{7, "0", 0, -1},
		},
	},
}

// Get returns the rules for a game, or an UnknownGame error.
func Get(game Game) (GameRules, error) {
	r, ok := registry[game]
	if !ok {
		return GameRules{}, errs.Newf(errs.UnknownGame, "rules.Get", "no game registered as %q", game)
	}
	return r, nil
}

// All returns every registered game in a stable order.
func All() []GameRules {
	return []GameRules{
		registry[Loto], registry[EuroMillions], registry[EuroDreams], registry[Keno],
	}
}

// NextDrawDate returns the smallest date strictly after today whose weekday
// the game draws on.
func NextDrawDate(game Game, today time.Time) (time.Time, error) {
	r, err := Get(game)
	if err != nil {
		return time.Time{}, err
	}
	d := today.UTC().Truncate(24 * time.Hour)
	for i := 1; i <= 7; i++ {
		cand := d.AddDate(0, 0, i)
		if r.DrawsOn(cand.Weekday()) {
			return cand, nil
		}
	}
	// unreachable: every game has at least one draw weekday
	return time.Time{}, errs.Newf(errs.UnknownGame, "rules.NextDrawDate", "game %q has no draw weekdays", game)
}

// ValidateNumbers checks one slot group: correct count, all within
// [min, max], all distinct.
func ValidateNumbers(nums []int, count, min, max int) bool {
	if len(nums) != count {
		return false
	}
	seen := make(map[int]struct{}, len(nums))
	for _, n := range nums {
		if n < min || n > max {
			return false
		}
		if _, dup := seen[n]; dup {
			return false
		}
		seen[n] = struct{}{}
	}
	return true
}

// ValidateDraw checks an official draw's number groups against the rules.
func ValidateDraw(game Game, main, special []int) bool {
	r, err := Get(game)
	if err != nil {
		return false
	}
	if !ValidateNumbers(main, r.MainCount, r.MainMin, r.MainMax) {
		return false
	}
	if r.SpecialCount == 0 {
		return len(special) == 0
	}
	return ValidateNumbers(special, r.SpecialCount, r.SpecialMin, r.SpecialMax)
}

// ValidateGrid checks a player grid: PickCount main slots, the usual special
// slots.
func ValidateGrid(game Game, main, special []int) bool {
	r, err := Get(game)
	if err != nil {
		return false
	}
	if !ValidateNumbers(main, r.PickCount, r.MainMin, r.MainMax) {
		return false
	}
	if r.SpecialCount == 0 {
		return len(special) == 0
	}
	return ValidateNumbers(special, r.SpecialCount, r.SpecialMin, r.SpecialMax)
}

// MatchTier returns the best tier hit by a grid against a draw, or nil.
// The match signature is (main hits, special hits); tiers with
// SpecialHits < 0 match any special count.
func MatchTier(game Game, gridMain, gridSpecial, drawMain, drawSpecial []int) *Tier {
	r, err := Get(game)
	if err != nil {
		return nil
	}
	mainHits := countHits(gridMain, drawMain)
	specialHits := countHits(gridSpecial, drawSpecial)
	for i := range r.PrizeTiers {
		t := r.PrizeTiers[i]
		if t.MainHits != mainHits {
			continue
		}
		if t.SpecialHits < 0 || t.SpecialHits == specialHits {
			return &t
		}
	}
	return nil
}

func countHits(grid, draw []int) int {
	set := make(map[int]struct{}, len(draw))
	for _, n := range draw {
		set[n] = struct{}{}
	}
	hits := 0
	for _, n := range grid {
		if _, ok := set[n]; ok {
			hits++
		}
	}
	return hits
}
