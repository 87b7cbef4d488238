package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronSpec(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"00:01", "1 0 * * *", true},
		{"23:59", "59 23 * * *", true},
		{"7:30", "30 7 * * *", true},
		{"24:00", "", false},
		{"12:60", "", false},
		{"nope", "", false},
		{"12", "", false},
	}
	for _, tc := range tests {
		got, err := cronSpec(tc.in)
		if !tc.ok {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestNewRegistersJobs(t *testing.T) {
	s, err := New("00:01", Jobs{
		Ingest:         func(ctx context.Context) error { return nil },
		IntegrityCheck: func(ctx context.Context) error { return nil },
		FeedbackDrain:  func(ctx context.Context) error { return nil },
	})
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 3)

	partial, err := New("00:01", Jobs{Ingest: func(ctx context.Context) error { return nil }})
	require.NoError(t, err)
	assert.Len(t, partial.cron.Entries(), 1)
}

func TestNewRejectsBadIngestTime(t *testing.T) {
	_, err := New("25:00", Jobs{})
	require.Error(t, err)
}

func TestWrapSwallowsJobErrors(t *testing.T) {
	s := &Scheduler{}
	calls := 0
	cb := s.wrap("failing", func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})

	// The callback must not panic or propagate; the schedule keeps going.
	cb()
	cb()
	assert.Equal(t, 2, calls)
}
