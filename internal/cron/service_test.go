package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
	"github.com/Gulhayo05/Surprise-Bag/pkg/metrics"
)

type fakeLock struct {
	held     bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

// scriptedJob runs fn and records the deadline it was given.
type scriptedJob struct {
	name     string
	fn       func() error
	limit    time.Duration
	runs     int
	deadline time.Duration
}

func (j *scriptedJob) Name() string { return j.name }

func (j *scriptedJob) Run(ctx context.Context) error {
	j.runs++
	if dl, ok := ctx.Deadline(); ok {
		j.deadline = time.Until(dl)
	}
	if j.fn == nil {
		return nil
	}
	return j.fn()
}

type slowJob struct{ scriptedJob }

func (j *slowJob) Timeout() time.Duration { return j.limit }

func newTestService(t *testing.T, lock Lock, m *metrics.CronJobMetrics, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: registry, Lock: lock, Metrics: m})
	require.NoError(t, err)
	return svc
}

func TestTickRunsEveryJobDespiteFailures(t *testing.T) {
	ok := &scriptedJob{name: "pickup_reminders"}
	failing := &scriptedJob{name: "outbox_retention", fn: func() error { return errors.New("boom") }}
	panicking := &scriptedJob{name: "notification_cleanup", fn: func() error { panic("nil map") }}
	last := &scriptedJob{name: "last"}
	lock := &fakeLock{}

	reg := prometheus.NewRegistry()
	svc := newTestService(t, lock, metrics.NewCronJobMetrics(reg), ok, failing, panicking, last)

	require.NoError(t, svc.tick(context.Background()))

	for _, job := range []*scriptedJob{ok, failing, panicking, last} {
		assert.Equal(t, 1, job.runs, job.name)
	}
	assert.Equal(t, 1, lock.releases)
	assert.False(t, lock.held)

	runs, err := testutil.GatherAndCount(reg, "surprisebag_cron_job_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 4, runs)
}

func TestRunGuardedConvertsPanics(t *testing.T) {
	err := runGuarded(context.Background(), &scriptedJob{name: "x", fn: func() error { panic("kaboom") }})
	assert.ErrorContains(t, err, "kaboom")
}

func TestTickSkipsWhenLockHeldElsewhere(t *testing.T) {
	job := &scriptedJob{name: "only"}
	lock := &fakeLock{held: true}

	require.NoError(t, newTestService(t, lock, nil, job).tick(context.Background()))

	assert.Zero(t, job.runs)
	assert.Zero(t, lock.releases)
}

func TestTickStopsOnCancelledContext(t *testing.T) {
	job := &scriptedJob{name: "only"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestService(t, &fakeLock{}, nil, job).tick(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, job.runs)
}

func TestJobsRunUnderDeadline(t *testing.T) {
	plain := &scriptedJob{name: "plain"}
	slow := &slowJob{scriptedJob{name: "slow", limit: time.Hour}}

	svc := newTestService(t, &fakeLock{}, nil, plain, slow)
	require.NoError(t, svc.tick(context.Background()))

	assert.Equal(t, defaultInterval, svc.interval)
	assert.InDelta(t, defaultJobTimeout.Seconds(), plain.deadline.Seconds(), 5)
	assert.InDelta(t, time.Hour.Seconds(), slow.deadline.Seconds(), 5)
}

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.Nop()})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Lock: &fakeLock{}})
	assert.Error(t, err)
}
