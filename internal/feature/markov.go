package feature

// markov builds a transition matrix over consecutive draws:
// T[a][b] = P(next draw contains b | current draw contains a).
// The emitted weight for n is the maximum T[a][n] over the numbers a of the
// most recent draw, 1.0 everywhere when there is no transition evidence.
func markov(p pool, sets [][]int) Map {
	if len(sets) < 2 {
		return p.uniform()
	}

	// counts[a][b] = times b appeared in the draw following one containing a.
	counts := make(map[int]map[int]int)
	from := make(map[int]int) // transitions observed out of a

	for i := 0; i < len(sets)-1; i++ {
		for _, a := range sets[i] {
			if a < p.min || a > p.max {
				continue
			}
			if counts[a] == nil {
				counts[a] = make(map[int]int)
			}
			from[a]++
			for _, b := range sets[i+1] {
				if b >= p.min && b <= p.max {
					counts[a][b]++
				}
			}
		}
	}

	last := sets[len(sets)-1]
	m := make(Map, p.size())
	for n := p.min; n <= p.max; n++ {
		best := 0.0
		for _, a := range last {
			total := from[a]
			if total == 0 {
				continue
			}
			prob := float64(counts[a][n]) / float64(total)
			if prob > best {
				best = prob
			}
		}
		m[n] = best // clamp lifts unseen transitions off zero
	}
	return m
}
