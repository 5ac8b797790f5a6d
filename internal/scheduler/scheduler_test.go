package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pricing-engine/internal/observability"
)

type funcJob struct {
	calls atomic.Int32
	run   func(ctx context.Context, call int32) error
}

func (j *funcJob) Name() string { return "test-job" }

func (j *funcJob) Run(ctx context.Context) error {
	return j.run(ctx, j.calls.Add(1))
}

func TestNew_Spec(t *testing.T) {
	job := &funcJob{run: func(context.Context, int32) error { return nil }}

	s, err := New(job, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, DefaultSpec, s.Spec())

	s.Start()
	defer s.Stop()
	next := s.Next()
	assert.Equal(t, 2, next.Hour())
	assert.Equal(t, 30, next.Minute())
	assert.Equal(t, time.UTC, next.Location())

	_, err = New(job, "not a cron spec", nil)
	assert.Error(t, err)

	_, err = New(nil, DefaultSpec, nil)
	assert.Error(t, err)
}

func TestTryRun_SkipsOverlap(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	job := &funcJob{run: func(context.Context, int32) error {
		close(started)
		<-release
		return nil
	}}
	s, err := New(job, DefaultSpec, zaptest.NewLogger(t))
	require.NoError(t, err)

	skippedBefore := testutil.ToFloat64(observability.DefaultMetrics.ScheduledRunsSkipped)

	done := make(chan bool)
	go func() { done <- s.TryRun() }()
	<-started
	assert.True(t, s.Running())

	assert.False(t, s.TryRun())
	assert.Equal(t, skippedBefore+1, testutil.ToFloat64(observability.DefaultMetrics.ScheduledRunsSkipped))

	close(release)
	assert.True(t, <-done)
	assert.False(t, s.Running())
	assert.Equal(t, int32(1), job.calls.Load())

	h := s.History()
	require.Len(t, h, 1)
	assert.True(t, h[0].Success)
	assert.Equal(t, "test-job", h[0].JobName)
}

func TestTryRun_Retries(t *testing.T) {
	job := &funcJob{run: func(_ context.Context, call int32) error {
		if call == 1 {
			return errors.New("transient")
		}
		return nil
	}}
	s, err := New(job, DefaultSpec, zaptest.NewLogger(t), WithRetries(2, time.Millisecond))
	require.NoError(t, err)

	require.True(t, s.TryRun())
	assert.Equal(t, int32(2), job.calls.Load())
	assert.True(t, s.History()[0].Success)
}

func TestTryRun_RecordsFailure(t *testing.T) {
	job := &funcJob{run: func(context.Context, int32) error { return errors.New("write failed") }}
	s, err := New(job, DefaultSpec, zaptest.NewLogger(t), WithRetries(1, time.Millisecond))
	require.NoError(t, err)

	s.TryRun()
	assert.Equal(t, int32(2), job.calls.Load())
	h := s.History()
	require.Len(t, h, 1)
	assert.False(t, h[0].Success)
	assert.Equal(t, "write failed", h[0].Error)
}

func TestTryRun_NoRetriesByDefault(t *testing.T) {
	job := &funcJob{run: func(context.Context, int32) error { return errors.New("write failed") }}

	s, err := New(job, DefaultSpec, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.True(t, s.TryRun())
	assert.Equal(t, int32(1), job.calls.Load())
	assert.False(t, s.History()[0].Success)

	// Zero retries with a delay never waits.
	job.calls.Store(0)
	s, err = New(job, DefaultSpec, zaptest.NewLogger(t), WithRetries(0, time.Hour))
	require.NoError(t, err)
	start := time.Now()
	s.TryRun()
	assert.Equal(t, int32(1), job.calls.Load())
	assert.Less(t, time.Since(start), time.Minute)
}

func TestStop_CancelsInFlightRun(t *testing.T) {
	started := make(chan struct{})
	job := &funcJob{run: func(ctx context.Context, _ int32) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}
	s, err := New(job, DefaultSpec, zaptest.NewLogger(t))
	require.NoError(t, err)
	s.Start()

	done := make(chan struct{})
	go func() {
		s.TryRun()
		close(done)
	}()
	<-started
	s.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run was not cancelled")
	}
	h := s.History()
	require.Len(t, h, 1)
	assert.Contains(t, h[0].Error, context.Canceled.Error())
}
