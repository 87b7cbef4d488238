package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jfmartin/lotoscope/internal/config"
	"github.com/jfmartin/lotoscope/internal/errs"
	"github.com/jfmartin/lotoscope/internal/rules"
)

// Source produces the raw official results payload for a game.
type Source interface {
	FetchGameResults(ctx context.Context, game rules.Game) ([]byte, error)
}

// Fetcher is the HTTP Source. Each game gets its own circuit breaker so a
// broken upstream cannot burn the whole retry budget run after run.
type Fetcher struct {
	client      *http.Client
	urls        map[rules.Game]string
	maxRetries  int
	backoffBase time.Duration
	backoffCap  time.Duration
	breakers    map[rules.Game]*gobreaker.CircuitBreaker
}

// NewFetcher builds a Fetcher from the ingestor config section.
func NewFetcher(cfg *config.Config) *Fetcher {
	urls := make(map[rules.Game]string)
	breakers := make(map[rules.Game]*gobreaker.CircuitBreaker)
	for _, r := range rules.All() {
		if url := cfg.SourceURL(string(r.Name)); url != "" {
			urls[r.Name] = url
		}
		breakers[r.Name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "ingest-" + string(r.Name),
			Timeout: 30 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 8
			},
		})
	}
	return &Fetcher{
		client:      &http.Client{Timeout: cfg.IngestTimeout()},
		urls:        urls,
		maxRetries:  cfg.Ingestor.MaxRetries,
		backoffBase: time.Duration(cfg.Ingestor.BackoffBaseSeconds) * time.Second,
		backoffCap:  time.Duration(cfg.Ingestor.BackoffCapSeconds) * time.Second,
		breakers:    breakers,
	}
}

// FetchGameResults GETs the configured URL for a game, retrying with
// bounded exponential backoff. All waits respect ctx cancellation.
func (f *Fetcher) FetchGameResults(ctx context.Context, game rules.Game) ([]byte, error) {
	const op = "ingest.FetchGameResults"

	url, ok := f.urls[game]
	if !ok {
		return nil, errs.Newf(errs.NetworkFailure, op, "no source URL configured for %s", game)
	}

	var lastErr error
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if attempt > 1 {
			wait := f.backoff(attempt - 1)
			select {
			case <-ctx.Done():
				return nil, errs.Wrap(errs.CancelRequested, op, ctx.Err())
			case <-time.After(wait):
			}
		}

		body, err := f.fetchOnce(ctx, game, url)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, errs.Wrap(errs.CancelRequested, op, ctx.Err())
		}
		lastErr = err
	}
	return nil, errs.Wrap(errs.NetworkFailure, op,
		fmt.Errorf("%s after %d attempts: %w", game, f.maxRetries, lastErr))
}

func (f *Fetcher) fetchOnce(ctx context.Context, game rules.Game, url string) ([]byte, error) {
	body, err := f.breakers[game].Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "lotoscope/1.0 (draw archive)")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}

// backoff returns the wait before retry n (1-based): base doubled per
// retry, capped. Deterministic, no jitter.
func (f *Fetcher) backoff(n int) time.Duration {
	wait := f.backoffBase
	for i := 1; i < n; i++ {
		wait *= 2
		if wait >= f.backoffCap {
			return f.backoffCap
		}
	}
	if wait > f.backoffCap {
		return f.backoffCap
	}
	return wait
}
