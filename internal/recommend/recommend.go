// Package recommend turns feature maps into scored candidate grids. It
// never touches storage: callers hand it an archive snapshot and a seed,
// and identical inputs produce identical grids.
package recommend

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/jfmartin/lotoscope/internal/archive"
	"github.com/jfmartin/lotoscope/internal/errs"
	"github.com/jfmartin/lotoscope/internal/feature"
	"github.com/jfmartin/lotoscope/internal/rules"
)

// FairnessNotice is attached to every grid. Renderers must surface it:
// draws are independent and the score carries no predictive guarantee.
const FairnessNotice = "Les tirages sont indépendants ; ce score n'offre aucune garantie prédictive."

// ScoredGrid is one candidate grid with its scoring annotations.
type ScoredGrid struct {
	Main          []int              `json:"main_numbers"`
	Special       []int              `json:"special_numbers,omitempty"`
	Score         float64            `json:"score"`
	Confidence    float64            `json:"confidence"`
	EstimatedGain float64            `json:"estimated_gain"`
	JackpotFlag   bool               `json:"jackpot_flag"`
	Breakdown     map[string]float64 `json:"breakdown"`
	Notice        string             `json:"notice"`
}

// Request describes one recommendation run.
type Request struct {
	Game     rules.Game
	Date     time.Time // target draw date; zero neutralizes date features
	Count    int
	Seed     int64
	Features []string // empty selects every feature
	Unique   bool
}

// Result carries the grids plus a non-fatal history warning, if any.
type Result struct {
	Grids   []ScoredGrid
	Warning error
}

// uniqueRetryFactor bounds redraws in unique mode: Count * factor.
const uniqueRetryFactor = 20

// Recommender samples grids from combined feature weights.
type Recommender struct {
	engine *feature.Engine
}

// New creates a Recommender over the given feature engine.
func New(engine *feature.Engine) *Recommender {
	return &Recommender{engine: engine}
}

// DeriveSeed builds the default per-request seed from date + game.
func DeriveSeed(game rules.Game, date time.Time) int64 {
	seed := int64(date.Year())*10000 + int64(date.Month())*100 + int64(date.Day())
	for _, b := range []byte(game) {
		seed = seed*31 + int64(b)
	}
	return seed
}

// Recommend produces req.Count scored grids from the archive snapshot.
func (rc *Recommender) Recommend(ctx context.Context, req Request, draws []archive.Draw) (*Result, error) {
	const op = "recommend.Recommend"

	r, err := rules.Get(req.Game)
	if err != nil {
		return nil, err
	}
	if req.Count <= 0 {
		req.Count = 1
	}

	set, err := rc.engine.Compute(ctx, r, draws, req.Date, req.Features)
	if err != nil {
		return nil, err
	}
	specialSet := rc.engine.ComputeSpecial(r, draws)

	combined := combine(set.Maps, r.MainMin, r.MainMax)
	dist := normalize(combined)
	specialDist := normalize(combine(specialSet.Maps, r.SpecialMin, r.SpecialMax))

	tierStats := TierStats(r, draws)
	rng := rand.New(rand.NewSource(req.Seed))

	result := &Result{Warning: set.Warning}
	seen := make(map[string]struct{})
	retriesLeft := req.Count * uniqueRetryFactor

	for len(result.Grids) < req.Count {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.CancelRequested, op, err)
		}

		main := sampleDistinct(rng, dist, r.PickCount)
		var special []int
		if r.SpecialCount > 0 {
			special = sampleDistinct(rng, specialDist, r.SpecialCount)
		}

		if req.Unique {
			key := gridKey(main)
			if _, dup := seen[key]; dup {
				retriesLeft--
				if retriesLeft <= 0 {
					return nil, errs.Newf(errs.UniqueExhausted, op,
						"could not draw %d distinct grids for %s", req.Count, req.Game)
				}
				continue
			}
			seen[key] = struct{}{}
		}

		result.Grids = append(result.Grids, score(r, set.Maps, dist, tierStats, main, special))
	}
	return result, nil
}

// combine multiplies the selected maps into a single weight map over
// [min, max]. The product runs in sorted feature order: float
// multiplication is not associative enough to survive Go's randomized map
// iteration, and results must be bit-identical across runs.
func combine(maps map[string]feature.Map, min, max int) feature.Map {
	names := make([]string, 0, len(maps))
	for name := range maps {
		names = append(names, name)
	}
	sort.Strings(names)

	combined := make(feature.Map, max-min+1)
	for n := min; n <= max; n++ {
		w := 1.0
		for _, name := range names {
			if v, ok := maps[name][n]; ok {
				w *= v
			}
		}
		combined[n] = w
	}
	return combined
}

// normalize turns a weight map into a probability distribution. The sum
// runs over sorted numbers so that the same weights always normalize to
// bit-identical probabilities; map iteration order would not.
func normalize(m feature.Map) feature.Map {
	nums := make([]int, 0, len(m))
	for n := range m {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	total := 0.0
	for _, n := range nums {
		total += m[n]
	}
	dist := make(feature.Map, len(m))
	if total == 0 {
		uniform := 1.0 / float64(len(m))
		for _, n := range nums {
			dist[n] = uniform
		}
		return dist
	}
	for _, n := range nums {
		dist[n] = m[n] / total
	}
	return dist
}

// sampleDistinct draws count distinct numbers by weighted sampling,
// redrawing collisions. Ties on equal weights resolve to the lower number
// through the ascending cumulative walk.
func sampleDistinct(rng *rand.Rand, dist feature.Map, count int) []int {
	numbers := make([]int, 0, len(dist))
	for n := range dist {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	chosen := make(map[int]struct{}, count)
	for len(chosen) < count {
		x := rng.Float64()
		cum := 0.0
		pick := numbers[len(numbers)-1]
		for _, n := range numbers {
			cum += dist[n]
			if x < cum {
				pick = n
				break
			}
		}
		chosen[pick] = struct{}{}
	}

	out := make([]int, 0, count)
	for n := range chosen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func gridKey(nums []int) string {
	return fmt.Sprint(nums)
}
