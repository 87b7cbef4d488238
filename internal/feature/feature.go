// Package feature computes per-number weight maps over an archive window.
// Every feature function is pure: same draws in, same map out. Maps cover
// the full legal range with strictly positive weights.
package feature

import (
	"context"
	"fmt"
	"time"

	"github.com/jfmartin/lotoscope/internal/archive"
	"github.com/jfmartin/lotoscope/internal/errs"
	"github.com/jfmartin/lotoscope/internal/rules"
)

// Map assigns a weight to every number of a pool.
type Map map[int]float64

// epsilon is the weight floor. Zero weights would collapse multiplicative
// combination, so everything clamps here.
const epsilon = 1e-3

// Names lists every feature in its canonical order.
var Names = []string{
	"frequency",
	"cooccurrence_bias",
	"recency",
	"repeating_pairs",
	"lunar",
	"periodic",
	"bayesian",
	"markov",
	"neural",
	"anomaly",
	"long_cycle",
	"fractal",
}

// SpecialNames are the features computed over the secondary pool.
var SpecialNames = []string{"frequency", "recency"}

// pool is an inclusive integer range.
type pool struct {
	min, max int
}

func (p pool) size() int { return p.max - p.min + 1 }

// uniform returns the neutral map: every number at 1.0.
func (p pool) uniform() Map {
	m := make(Map, p.size())
	for n := p.min; n <= p.max; n++ {
		m[n] = 1.0
	}
	return m
}

// clamp enforces the positive-weight invariant in place.
func clamp(m Map) Map {
	for n, w := range m {
		if w < epsilon {
			m[n] = epsilon
		}
	}
	return m
}

// Set holds the computed maps for one request. Warning carries a non-fatal
// InsufficientHistory signal when the window was too short.
type Set struct {
	Maps    map[string]Map
	Warning error
}

// Engine computes feature sets. NeuralBudget caps the regressor fit.
type Engine struct {
	MinDraws     int
	NeuralBudget time.Duration
}

// NewEngine returns an Engine with the given minimum history.
func NewEngine(minDraws int) *Engine {
	if minDraws <= 0 {
		minDraws = 30
	}
	return &Engine{MinDraws: minDraws, NeuralBudget: 5 * time.Second}
}

// Compute builds the named feature maps over the main pool for a target
// draw date. An empty or too-short window yields uniform maps for every
// requested feature plus an InsufficientHistory warning in the Set.
func (e *Engine) Compute(ctx context.Context, r rules.GameRules, draws []archive.Draw, target time.Time, names []string) (*Set, error) {
	const op = "feature.Compute"

	if len(names) == 0 {
		names = Names
	}
	p := pool{r.MainMin, r.MainMax}

	set := &Set{Maps: make(map[string]Map, len(names))}
	if len(draws) < e.MinDraws {
		for _, name := range names {
			set.Maps[name] = p.uniform()
		}
		set.Warning = errs.Newf(errs.InsufficientHistory, op,
			"%s: %d draws in window, need %d", r.Name, len(draws), e.MinDraws)
		return set, nil
	}

	sets := mainSets(draws)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.CancelRequested, op, err)
		}
		m, err := e.compute(ctx, name, p, sets, draws, target)
		if err != nil {
			return nil, err
		}
		set.Maps[name] = clamp(m)
	}
	return set, nil
}

// ComputeSpecial builds frequency and recency maps over the secondary pool.
// Games without a secondary pool get an empty set.
func (e *Engine) ComputeSpecial(r rules.GameRules, draws []archive.Draw) *Set {
	set := &Set{Maps: make(map[string]Map, len(SpecialNames))}
	if r.SpecialCount == 0 {
		return set
	}

	p := pool{r.SpecialMin, r.SpecialMax}
	if len(draws) < e.MinDraws {
		for _, name := range SpecialNames {
			set.Maps[name] = p.uniform()
		}
		set.Warning = errs.Newf(errs.InsufficientHistory, "feature.ComputeSpecial",
			"%s: %d draws in window, need %d", r.Name, len(draws), e.MinDraws)
		return set
	}

	sets := specialSets(draws)
	set.Maps["frequency"] = clamp(frequency(p, sets))
	set.Maps["recency"] = clamp(recency(p, sets))
	return set
}

func (e *Engine) compute(ctx context.Context, name string, p pool, sets [][]int, draws []archive.Draw, target time.Time) (Map, error) {
	switch name {
	case "frequency":
		return frequency(p, sets), nil
	case "cooccurrence_bias":
		return cooccurrenceBias(p, sets), nil
	case "recency":
		return recency(p, sets), nil
	case "repeating_pairs":
		return repeatingPairs(p, sets, defaultPairThreshold), nil
	case "lunar":
		return lunar(p, sets, target), nil
	case "periodic":
		return periodic(p, draws), nil
	case "bayesian":
		return bayesian(p, sets), nil
	case "markov":
		return markov(p, sets), nil
	case "neural":
		return neural(ctx, p, sets, e.NeuralBudget)
	case "anomaly":
		return anomaly(p, sets), nil
	case "long_cycle":
		return longCycle(p, sets), nil
	case "fractal":
		return fractal(p), nil
	default:
		return nil, fmt.Errorf("unknown feature %q", name)
	}
}

// mainSets extracts the main-number sets in draw order.
func mainSets(draws []archive.Draw) [][]int {
	sets := make([][]int, len(draws))
	for i, d := range draws {
		sets[i] = d.Main
	}
	return sets
}

// specialSets extracts the secondary-number sets in draw order.
func specialSets(draws []archive.Draw) [][]int {
	sets := make([][]int, len(draws))
	for i, d := range draws {
		sets[i] = d.Special
	}
	return sets
}
