package feature

import (
	"math"

	"github.com/jfmartin/lotoscope/internal/archive"
)

// defaultPairThreshold: a pair or triple must co-occur strictly more often
// than this to mark its members.
const defaultPairThreshold = 5

// appearances counts, per number, the draws containing it.
func appearances(p pool, sets [][]int) map[int]int {
	counts := make(map[int]int, p.size())
	for _, set := range sets {
		for _, n := range set {
			if n >= p.min && n <= p.max {
				counts[n]++
			}
		}
	}
	return counts
}

// frequency: appearances(n) / window size.
func frequency(p pool, sets [][]int) Map {
	counts := appearances(p, sets)
	window := float64(len(sets))
	m := make(Map, p.size())
	for n := p.min; n <= p.max; n++ {
		m[n] = float64(counts[n]) / window
	}
	return m
}

// cooccurrenceBias: exp(appearances(n) / window size). Emphasizes numbers
// drawn often; floors at e^0 = 1 for absent numbers.
func cooccurrenceBias(p pool, sets [][]int) Map {
	counts := appearances(p, sets)
	window := float64(len(sets))
	m := make(Map, p.size())
	for n := p.min; n <= p.max; n++ {
		m[n] = math.Exp(float64(counts[n]) / window)
	}
	return m
}

// recency: decayed sum over draws containing n of exp(-lambda * age), age
// counted in draws with the newest draw at age 0. Lambda is tuned for a
// half-life of a quarter of the window.
func recency(p pool, sets [][]int) Map {
	window := len(sets)
	halfLife := float64(window) / 4.0
	if halfLife < 1 {
		halfLife = 1
	}
	lambda := math.Ln2 / halfLife

	m := make(Map, p.size())
	for n := p.min; n <= p.max; n++ {
		m[n] = 0
	}
	for i, set := range sets {
		age := float64(window - 1 - i)
		decay := math.Exp(-lambda * age)
		for _, n := range set {
			if n >= p.min && n <= p.max {
				m[n] += decay
			}
		}
	}
	return m
}

// repeatingPairs marks numbers appearing in any pair or triple whose joint
// occurrence count exceeds the threshold. Marked numbers weigh 2.0.
func repeatingPairs(p pool, sets [][]int, threshold int) Map {
	type pair [2]int
	type triple [3]int
	pairCounts := make(map[pair]int)
	tripleCounts := make(map[triple]int)

	for _, set := range sets {
		for i := 0; i < len(set); i++ {
			for j := i + 1; j < len(set); j++ {
				a, b := set[i], set[j]
				if a > b {
					a, b = b, a
				}
				pairCounts[pair{a, b}]++
				for k := j + 1; k < len(set); k++ {
					c := set[k]
					t := triple{a, b, c}
					sortTriple((*[3]int)(&t))
					tripleCounts[t]++
				}
			}
		}
	}

	marked := make(map[int]bool)
	for pr, c := range pairCounts {
		if c > threshold {
			marked[pr[0]] = true
			marked[pr[1]] = true
		}
	}
	for tr, c := range tripleCounts {
		if c > threshold {
			marked[tr[0]] = true
			marked[tr[1]] = true
			marked[tr[2]] = true
		}
	}

	m := make(Map, p.size())
	for n := p.min; n <= p.max; n++ {
		if marked[n] {
			m[n] = 2.0
		} else {
			m[n] = 1.0
		}
	}
	return m
}

func sortTriple(t *[3]int) {
	if t[0] > t[1] {
		t[0], t[1] = t[1], t[0]
	}
	if t[1] > t[2] {
		t[1], t[2] = t[2], t[1]
	}
	if t[0] > t[1] {
		t[0], t[1] = t[1], t[0]
	}
}

// periodic: 1 + mean over ISO weeks of the count of draws in that week
// containing n. Smooths seasonal bias.
func periodic(p pool, draws []archive.Draw) Map {
	type week struct{ year, num int }
	perWeek := make(map[week]map[int]int)
	for _, d := range draws {
		y, w := d.Date.ISOWeek()
		key := week{y, w}
		if perWeek[key] == nil {
			perWeek[key] = make(map[int]int)
		}
		for _, n := range d.Main {
			perWeek[key][n]++
		}
	}

	weeks := float64(len(perWeek))
	m := make(Map, p.size())
	for n := p.min; n <= p.max; n++ {
		total := 0
		for _, counts := range perWeek {
			total += counts[n]
		}
		if weeks > 0 {
			m[n] = 1.0 + float64(total)/weeks
		} else {
			m[n] = 1.0
		}
	}
	return m
}

// bayesian: posterior proportional to a uniform prior times the empirical
// frequency likelihood.
func bayesian(p pool, sets [][]int) Map {
	freq := frequency(p, sets)
	prior := 1.0 / float64(p.size())
	m := make(Map, p.size())
	for n := p.min; n <= p.max; n++ {
		m[n] = prior * freq[n]
	}
	return m
}

// anomaly: z-score of each number's frequency against the window's
// mean/std across numbers. |z| > 2 flags an anomaly, weighted 1 + |z|.
func anomaly(p pool, sets [][]int) Map {
	freq := frequency(p, sets)

	var sum float64
	for n := p.min; n <= p.max; n++ {
		sum += freq[n]
	}
	mean := sum / float64(p.size())

	var variance float64
	for n := p.min; n <= p.max; n++ {
		d := freq[n] - mean
		variance += d * d
	}
	variance /= float64(p.size())
	std := math.Sqrt(variance)

	m := make(Map, p.size())
	for n := p.min; n <= p.max; n++ {
		if std == 0 {
			m[n] = 1.0
			continue
		}
		z := math.Abs((freq[n] - mean) / std)
		if z > 2 {
			m[n] = 1.0 + z
		} else {
			m[n] = 1.0
		}
	}
	return m
}
