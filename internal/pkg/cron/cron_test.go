package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, s *Scheduler, name string, want JobStatus) *TaskResult {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		res, err := s.GetTask(name)
		require.NoError(t, err)
		if res.Status == want {
			return res
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %q never reached status %q", name, want)
	return nil
}

func TestRunTriggersJobAndRecordsOutcome(t *testing.T) {
	s := New()
	ran := make(chan struct{}, 1)
	s.Register(Job{
		Name:     "ping",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			ran <- struct{}{}
			return nil
		},
	})

	require.NoError(t, s.Run(context.Background(), "ping"))
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
	res := waitForStatus(t, s, "ping", StatusOK)
	assert.Empty(t, res.Message)
}

func TestFailedJobKeepsErrorMessage(t *testing.T) {
	s := New()
	s.Register(Job{
		Name:     "flaky",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			return errors.New("upstream down")
		},
	})

	require.NoError(t, s.Run(context.Background(), "flaky"))
	res := waitForStatus(t, s, "flaky", StatusFailed)
	assert.Equal(t, "upstream down", res.Message)
}

func TestUnknownJobIsAnError(t *testing.T) {
	s := New()
	require.Error(t, s.Run(context.Background(), "nope"))
	_, err := s.GetTask("nope")
	require.Error(t, err)
}

func TestListSnapshotsRegisteredJobs(t *testing.T) {
	s := New()
	s.Register(Job{Name: "a", Description: "first", Interval: time.Minute, Fn: func(ctx context.Context) error { return nil }})
	s.Register(Job{Name: "b", Description: "second", Interval: time.Hour, Fn: func(ctx context.Context) error { return nil }})

	items := s.List()
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, StatusIdle, item.Status)
		assert.False(t, item.NextRunAt.IsZero())
	}
}
