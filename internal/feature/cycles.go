package feature

import (
	"math"
	"time"
)

// Synodic month constants for the lunar feature. Epoch is the new moon of
// 2000-01-06 18:14 UTC.
var lunarEpoch = time.Date(2000, 1, 6, 18, 14, 0, 0, time.UTC)

const synodicDays = 29.530588853

// MoonPhaseDegrees returns the lunar phase angle in degrees, 0 = new moon.
func MoonPhaseDegrees(t time.Time) float64 {
	days := t.Sub(lunarEpoch).Hours() / 24.0
	frac := math.Mod(days/synodicDays, 1.0)
	if frac < 0 {
		frac += 1.0
	}
	return frac * 360.0
}

// lunar scales frequency by 1 + sin(moon phase) for the target date.
// Without a target date the map neutralizes to plain frequency.
func lunar(p pool, sets [][]int, target time.Time) Map {
	freq := frequency(p, sets)
	if target.IsZero() {
		return freq
	}

	factor := 1.0 + math.Sin(MoonPhaseDegrees(target)*math.Pi/180.0)
	m := make(Map, p.size())
	for n := p.min; n <= p.max; n++ {
		m[n] = freq[n] * factor
	}
	return m
}

// longCycle looks for periodicity in each number's indicator series via
// autocorrelation. The weight is the detected peak period length, 1.0 when
// no clear peak stands out.
func longCycle(p pool, sets [][]int) Map {
	window := len(sets)
	m := make(Map, p.size())

	for n := p.min; n <= p.max; n++ {
		series := make([]float64, window)
		for i, set := range sets {
			for _, v := range set {
				if v == n {
					series[i] = 1
					break
				}
			}
		}
		m[n] = peakPeriod(series)
	}
	return m
}

// peakPeriod returns the lag of the strongest positive autocorrelation
// peak, 1.0 when the series is flat or no lag clears the threshold.
func peakPeriod(series []float64) float64 {
	n := len(series)
	if n < 8 {
		return 1.0
	}

	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(n)

	var c0 float64
	for _, v := range series {
		d := v - mean
		c0 += d * d
	}
	if c0 == 0 {
		return 1.0
	}

	const minCorrelation = 0.2
	bestLag, bestCorr := 0, minCorrelation
	for lag := 2; lag <= n/2; lag++ {
		var c float64
		for i := 0; i < n-lag; i++ {
			c += (series[i] - mean) * (series[i+lag] - mean)
		}
		corr := c / c0
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return 1.0
	}
	return float64(bestLag)
}

// fractal is the deterministic smoothing map cos(n * pi / 180) + 1,
// independent of history.
func fractal(p pool) Map {
	m := make(Map, p.size())
	for n := p.min; n <= p.max; n++ {
		m[n] = math.Cos(float64(n)*math.Pi/180.0) + 1.0
	}
	return m
}
