package recommend

import (
	"math"
	"sort"

	"github.com/jfmartin/lotoscope/internal/archive"
	"github.com/jfmartin/lotoscope/internal/feature"
	"github.com/jfmartin/lotoscope/internal/rules"
)

// TierProjection is the empirical statistics of one prize tier over an
// archive window.
type TierProjection struct {
	Rank         int     `json:"rang"`
	ID           string  `json:"id"`
	Probability  float64 `json:"probabilite"`
	ExpectedGain float64 `json:"gain_espere"`
}

// TierStats computes, per tier, the fraction of window draws that
// triggered it (at least one winner) and the mean unit payout when
// triggered. No hard-coded multipliers: everything comes from the archive.
func TierStats(r rules.GameRules, draws []archive.Draw) []TierProjection {
	stats := make([]TierProjection, len(r.PrizeTiers))
	for i, t := range r.PrizeTiers {
		stats[i] = TierProjection{Rank: t.Rank, ID: t.ID}
	}
	if len(draws) == 0 {
		return stats
	}

	triggered := make(map[int]int)
	payoutSum := make(map[int]float64)
	for _, d := range draws {
		for _, tr := range d.Tiers {
			if tr.Winners > 0 {
				triggered[tr.Rank]++
				payoutSum[tr.Rank] += tr.Payout
			}
		}
	}

	window := float64(len(draws))
	for i := range stats {
		rank := stats[i].Rank
		if n := triggered[rank]; n > 0 {
			stats[i].Probability = float64(n) / window
			stats[i].ExpectedGain = payoutSum[rank] / float64(n)
		}
	}
	return stats
}

// score assembles the full annotation for one sampled grid.
func score(r rules.GameRules, maps map[string]feature.Map, dist feature.Map, tiers []TierProjection, main, special []int) ScoredGrid {
	conf := confidence(dist, main)
	return ScoredGrid{
		Main:          main,
		Special:       special,
		Score:         gridScore(dist, main),
		Confidence:    conf,
		EstimatedGain: estimatedGain(tiers, conf),
		JackpotFlag:   conf >= 0.90,
		Breakdown:     breakdown(maps, main),
		Notice:        FairnessNotice,
	}
}

// gridScore is the geometric mean of the chosen numbers' combined
// probabilities, normalized so a uniform distribution scores 1.0.
func gridScore(dist feature.Map, chosen []int) float64 {
	if len(chosen) == 0 {
		return 0
	}
	logSum := 0.0
	for _, n := range chosen {
		logSum += math.Log(dist[n])
	}
	geoMean := math.Exp(logSum / float64(len(chosen)))
	return geoMean * float64(len(dist))
}

// confidence is one minus the normalized entropy of the distribution
// restricted to the chosen numbers: 0 when the chosen weights are even,
// approaching 1 as they concentrate.
func confidence(dist feature.Map, chosen []int) float64 {
	if len(chosen) < 2 {
		return 0
	}
	total := 0.0
	for _, n := range chosen {
		total += dist[n]
	}
	if total == 0 {
		return 0
	}

	entropy := 0.0
	for _, n := range chosen {
		q := dist[n] / total
		if q > 0 {
			entropy -= q * math.Log(q)
		}
	}
	norm := entropy / math.Log(float64(len(chosen)))
	c := 1.0 - norm
	if c < 0 {
		return 0
	}
	return c
}

// estimatedGain is the probability-weighted mean tier payout, scaled by
// confidence. An estimate derived from past payouts, never a promise.
func estimatedGain(tiers []TierProjection, conf float64) float64 {
	expected := 0.0
	for _, t := range tiers {
		expected += t.Probability * t.ExpectedGain
	}
	return expected * conf
}

// breakdown reports, per feature, the geometric mean of the feature's raw
// weights over the chosen main numbers.
func breakdown(maps map[string]feature.Map, chosen []int) map[string]float64 {
	names := make([]string, 0, len(maps))
	for name := range maps {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]float64, len(names))
	for _, name := range names {
		m := maps[name]
		logSum := 0.0
		for _, n := range chosen {
			logSum += math.Log(m[n])
		}
		out[name] = math.Exp(logSum / float64(len(chosen)))
	}
	return out
}
