package report

import (
	"sort"
	"time"

	"github.com/jfmartin/lotoscope/internal/archive"
	"github.com/jfmartin/lotoscope/internal/feature"
	"github.com/jfmartin/lotoscope/internal/rules"
)

// hotColdCount is how many numbers each of the hot and cold lists carries.
const hotColdCount = 5

// pairLimit caps the detected-pairs list.
const pairLimit = 10

// Pair is a recurring number pair with its window occurrence count.
type Pair struct {
	Numbers [2]int `json:"numeros"`
	Count   int    `json:"occurrences"`
}

// CycleSummary buckets the mean draw sum over several calendar cycles.
// Bucket keys are French labels; values are mean sums of the main numbers.
type CycleSummary struct {
	Weekly   map[string]float64 `json:"hebdomadaire"`
	Monthly  map[string]float64 `json:"mensuel"`
	Seasonal map[string]float64 `json:"saisonnier"`
	Lunar    map[string]float64 `json:"lunaire"`
}

// TrendBlock is the trend section of a report.
type TrendBlock struct {
	Frequency   map[int]int  `json:"frequences"`
	HotNumbers  []int        `json:"numeros_chauds"`
	ColdNumbers []int        `json:"numeros_froids"`
	Pairs       []Pair       `json:"paires"`
	Cycles      CycleSummary `json:"cycles"`
}

var weekdayLabels = map[int]string{
	0: "dimanche", 1: "lundi", 2: "mardi", 3: "mercredi",
	4: "jeudi", 5: "vendredi", 6: "samedi",
}

var monthLabels = map[int]string{
	1: "janvier", 2: "février", 3: "mars", 4: "avril",
	5: "mai", 6: "juin", 7: "juillet", 8: "août",
	9: "septembre", 10: "octobre", 11: "novembre", 12: "décembre",
}

var seasonLabels = []string{"hiver", "printemps", "été", "automne"}

var lunarLabels = []string{"nouvelle", "croissante", "pleine", "décroissante"}

// trends computes the trend block over the window slice.
func trends(r rules.GameRules, window []archive.Draw) TrendBlock {
	freq := make(map[int]int, r.PoolSize())
	for n := r.MainMin; n <= r.MainMax; n++ {
		freq[n] = 0
	}
	pairCounts := make(map[[2]int]int)

	for _, d := range window {
		for i, a := range d.Main {
			freq[a]++
			for _, b := range d.Main[i+1:] {
				key := [2]int{a, b}
				if b < a {
					key = [2]int{b, a}
				}
				pairCounts[key]++
			}
		}
	}

	return TrendBlock{
		Frequency:   freq,
		HotNumbers:  rankNumbers(freq, true),
		ColdNumbers: rankNumbers(freq, false),
		Pairs:       topPairs(pairCounts),
		Cycles:      cycles(window),
	}
}

// rankNumbers orders the pool by frequency, descending for hot and
// ascending for cold, number ascending on ties.
func rankNumbers(freq map[int]int, hot bool) []int {
	nums := make([]int, 0, len(freq))
	for n := range freq {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool {
		a, b := nums[i], nums[j]
		if freq[a] != freq[b] {
			if hot {
				return freq[a] > freq[b]
			}
			return freq[a] < freq[b]
		}
		return a < b
	})
	if len(nums) > hotColdCount {
		nums = nums[:hotColdCount]
	}
	return nums
}

// topPairs returns pairs seen at least twice, most frequent first.
func topPairs(counts map[[2]int]int) []Pair {
	pairs := make([]Pair, 0, len(counts))
	for key, c := range counts {
		if c >= 2 {
			pairs = append(pairs, Pair{Numbers: key, Count: c})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		if pairs[i].Numbers[0] != pairs[j].Numbers[0] {
			return pairs[i].Numbers[0] < pairs[j].Numbers[0]
		}
		return pairs[i].Numbers[1] < pairs[j].Numbers[1]
	})
	if len(pairs) > pairLimit {
		pairs = pairs[:pairLimit]
	}
	return pairs
}

func cycles(window []archive.Draw) CycleSummary {
	type bucket struct {
		sum   float64
		count int
	}
	weekly := make(map[string]*bucket)
	monthly := make(map[string]*bucket)
	seasonal := make(map[string]*bucket)
	lunar := make(map[string]*bucket)

	add := func(m map[string]*bucket, key string, v float64) {
		b := m[key]
		if b == nil {
			b = &bucket{}
			m[key] = b
		}
		b.sum += v
		b.count++
	}

	for _, d := range window {
		total := 0.0
		for _, n := range d.Main {
			total += float64(n)
		}
		add(weekly, weekdayLabels[int(d.Date.Weekday())], total)
		add(monthly, monthLabels[int(d.Date.Month())], total)
		add(seasonal, seasonLabels[seasonIndex(d.Date.Month())], total)
		phase := int(feature.MoonPhaseDegrees(d.Date) / 90.0)
		add(lunar, lunarLabels[phase%4], total)
	}

	means := func(m map[string]*bucket) map[string]float64 {
		out := make(map[string]float64, len(m))
		for k, b := range m {
			out[k] = b.sum / float64(b.count)
		}
		return out
	}
	return CycleSummary{
		Weekly:   means(weekly),
		Monthly:  means(monthly),
		Seasonal: means(seasonal),
		Lunar:    means(lunar),
	}
}

// seasonIndex maps a month to its meteorological season, December
// wrapping into winter.
func seasonIndex(m time.Month) int {
	switch m {
	case time.December, time.January, time.February:
		return 0
	case time.March, time.April, time.May:
		return 1
	case time.June, time.July, time.August:
		return 2
	default:
		return 3
	}
}
