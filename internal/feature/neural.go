package feature

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/jfmartin/lotoscope/internal/errs"
)

// neuralSeed fixes the regressor's weight initialization so the feature is
// reproducible across runs.
const neuralSeed = 0x10705EC0

const (
	neuralHidden = 8
	neuralEpochs = 60
	neuralRate   = 0.05
)

// neural fits a small feed-forward regressor mapping one-hot draw vectors
// to the (normalized) sum of the draw's numbers, then emits per-number
// weights from the magnitude of each input's learned contribution.
// The fit is bounded by the budget and abortable through ctx.
func neural(ctx context.Context, p pool, sets [][]int, budget time.Duration) (Map, error) {
	const op = "feature.neural"

	size := p.size()
	rng := rand.New(rand.NewSource(neuralSeed))

	// Xavier-ish init, deterministic.
	w1 := make([][]float64, size)
	for i := range w1 {
		w1[i] = make([]float64, neuralHidden)
		for h := range w1[i] {
			w1[i][h] = (rng.Float64() - 0.5) / float64(neuralHidden)
		}
	}
	w2 := make([]float64, neuralHidden)
	for h := range w2 {
		w2[h] = (rng.Float64() - 0.5) / float64(neuralHidden)
	}

	// Targets: sum of draw numbers scaled into [0, 1].
	maxSum := 0.0
	targets := make([]float64, len(sets))
	inputs := make([][]int, len(sets)) // indices of hot inputs
	for i, set := range sets {
		sum := 0
		idx := make([]int, 0, len(set))
		for _, n := range set {
			if n >= p.min && n <= p.max {
				sum += n
				idx = append(idx, n-p.min)
			}
		}
		targets[i] = float64(sum)
		inputs[i] = idx
		if targets[i] > maxSum {
			maxSum = targets[i]
		}
	}
	if maxSum == 0 {
		return p.uniform(), nil
	}
	for i := range targets {
		targets[i] /= maxSum
	}

	deadline := time.Now().Add(budget)
	hidden := make([]float64, neuralHidden)

	for epoch := 0; epoch < neuralEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.CancelRequested, op, err)
		}
		if time.Now().After(deadline) {
			break // use whatever the fit reached inside the budget
		}

		for i, idx := range inputs {
			// Forward: hidden = tanh(sum of hot rows), out = hidden . w2.
			for h := 0; h < neuralHidden; h++ {
				sum := 0.0
				for _, j := range idx {
					sum += w1[j][h]
				}
				hidden[h] = math.Tanh(sum)
			}
			out := 0.0
			for h := 0; h < neuralHidden; h++ {
				out += hidden[h] * w2[h]
			}

			// Backward: squared error, plain SGD.
			errOut := out - targets[i]
			for h := 0; h < neuralHidden; h++ {
				gradW2 := errOut * hidden[h]
				gradHidden := errOut * w2[h] * (1 - hidden[h]*hidden[h])
				w2[h] -= neuralRate * gradW2
				for _, j := range idx {
					w1[j][h] -= neuralRate * gradHidden
				}
			}
		}
	}

	// Contribution magnitude of each input unit.
	m := make(Map, size)
	for n := p.min; n <= p.max; n++ {
		contrib := 0.0
		for h := 0; h < neuralHidden; h++ {
			contrib += w1[n-p.min][h] * w2[h]
		}
		m[n] = 1.0 + math.Abs(contrib)
	}
	return m, nil
}
