package feature

import (
	"math"
	"testing"
)

var testPool = pool{1, 10}

func TestFrequency(t *testing.T) {
	sets := [][]int{
		{1, 2, 3},
		{1, 2, 4},
		{1, 5, 6},
		{1, 2, 7},
	}
	m := frequency(testPool, sets)

	if math.Abs(m[1]-1.0) > 1e-12 {
		t.Errorf("freq(1) = %f, expected 1.0", m[1])
	}
	if math.Abs(m[2]-0.75) > 1e-12 {
		t.Errorf("freq(2) = %f, expected 0.75", m[2])
	}
	if m[10] != 0 {
		t.Errorf("freq(10) = %f, expected 0 before clamping", m[10])
	}
	for n := testPool.min; n <= testPool.max; n++ {
		if _, ok := m[n]; !ok {
			t.Errorf("map missing number %d", n)
		}
	}
}

func TestCooccurrenceBias(t *testing.T) {
	sets := [][]int{{1, 2}, {1, 3}}
	m := cooccurrenceBias(testPool, sets)

	if math.Abs(m[1]-math.E) > 1e-12 {
		t.Errorf("bias(1) = %f, expected e", m[1])
	}
	if math.Abs(m[10]-1.0) > 1e-12 {
		t.Errorf("bias(10) = %f, expected 1.0 (e^0)", m[10])
	}
}

func TestRecencyFavorsRecentDraws(t *testing.T) {
	// 1 appears only in the oldest draw, 2 only in the newest.
	sets := make([][]int, 40)
	for i := range sets {
		sets[i] = []int{5}
	}
	sets[0] = []int{1, 5}
	sets[39] = []int{2, 5}

	m := recency(testPool, sets)
	if m[2] <= m[1] {
		t.Errorf("recency(2)=%f should exceed recency(1)=%f", m[2], m[1])
	}
	// Newest appearance has age 0: full weight.
	if math.Abs(m[2]-1.0) > 1e-12 {
		t.Errorf("recency(2) = %f, expected 1.0", m[2])
	}
}

func TestRecencyHalfLife(t *testing.T) {
	// Window 40, half-life 10: an appearance 10 draws ago weighs 0.5.
	sets := make([][]int, 40)
	for i := range sets {
		sets[i] = []int{5}
	}
	sets[29] = []int{3, 5} // age 10

	m := recency(testPool, sets)
	if math.Abs(m[3]-0.5) > 1e-9 {
		t.Errorf("recency at half-life = %f, expected 0.5", m[3])
	}
}

func TestRepeatingPairs(t *testing.T) {
	// Pair (1,2) occurs 6 times (> 5), the rest stay below the threshold.
	sets := [][]int{
		{1, 2, 3}, {1, 2, 4}, {1, 2, 5}, {1, 2, 6}, {1, 2, 7}, {1, 2, 8},
	}
	m := repeatingPairs(testPool, sets, defaultPairThreshold)

	if m[1] != 2.0 || m[2] != 2.0 {
		t.Errorf("expected 1 and 2 marked, got m[1]=%f m[2]=%f", m[1], m[2])
	}
	if m[3] != 1.0 {
		t.Errorf("expected 3 unmarked, got %f", m[3])
	}
}

func TestRepeatingPairsMarksTriples(t *testing.T) {
	// Triple {4,5,6} recurs regardless of order within the draws.
	sets := [][]int{
		{4, 5, 6}, {6, 4, 5}, {5, 6, 4},
	}
	m := repeatingPairs(testPool, sets, 2)

	for _, n := range []int{4, 5, 6} {
		if m[n] != 2.0 {
			t.Errorf("expected %d marked via triple, got %f", n, m[n])
		}
	}
	if m[7] != 1.0 {
		t.Errorf("expected 7 unmarked, got %f", m[7])
	}
}

func TestRepeatingPairsBelowThreshold(t *testing.T) {
	sets := [][]int{{1, 2, 3}, {1, 2, 4}}
	m := repeatingPairs(testPool, sets, defaultPairThreshold)
	for n := testPool.min; n <= testPool.max; n++ {
		if m[n] != 1.0 {
			t.Errorf("expected all unmarked, got m[%d]=%f", n, m[n])
		}
	}
}

func TestBayesianProportionalToFrequency(t *testing.T) {
	sets := [][]int{{1, 2}, {1, 3}, {1, 2}, {1, 4}}
	m := bayesian(testPool, sets)
	freq := frequency(testPool, sets)

	prior := 1.0 / float64(testPool.size())
	for n := testPool.min; n <= testPool.max; n++ {
		want := prior * freq[n]
		if math.Abs(m[n]-want) > 1e-12 {
			t.Errorf("bayesian(%d) = %f, expected %f", n, m[n], want)
		}
	}
}

func TestAnomalyFlagsOutlier(t *testing.T) {
	// Number 1 dominates; its frequency z-score should exceed 2.
	sets := make([][]int, 50)
	for i := range sets {
		sets[i] = []int{1}
	}
	sets[0] = []int{1, 2}

	m := anomaly(testPool, sets)
	if m[1] <= 1.0 {
		t.Errorf("expected anomaly weight > 1 for dominant number, got %f", m[1])
	}
	if m[5] != 1.0 {
		t.Errorf("expected neutral weight for unremarkable number, got %f", m[5])
	}
}

func TestAnomalyUniformSeries(t *testing.T) {
	// Every number equally frequent: zero std, everything neutral.
	sets := make([][]int, 0, 10)
	for n := 1; n <= 10; n++ {
		sets = append(sets, []int{n})
	}
	m := anomaly(testPool, sets)
	for n := testPool.min; n <= testPool.max; n++ {
		if m[n] != 1.0 {
			t.Errorf("expected 1.0 for %d, got %f", n, m[n])
		}
	}
}

func TestMarkovTransitions(t *testing.T) {
	// 1 is always followed by a draw containing 2.
	sets := [][]int{{1}, {2}, {1}, {2}, {1}}
	m := markov(testPool, sets)

	// Last draw contains 1; T[1][2] = 1.0.
	if math.Abs(m[2]-1.0) > 1e-12 {
		t.Errorf("markov(2) = %f, expected 1.0", m[2])
	}
	if m[3] != 0 {
		t.Errorf("markov(3) = %f, expected 0 before clamping", m[3])
	}
}

func TestMarkovNoEvidence(t *testing.T) {
	m := markov(testPool, [][]int{{1, 2}})
	for n := testPool.min; n <= testPool.max; n++ {
		if m[n] != 1.0 {
			t.Errorf("expected uniform map with a single draw, got m[%d]=%f", n, m[n])
		}
	}
}
