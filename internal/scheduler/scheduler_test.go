package scheduler

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-engine/internal/raceday"
)

func testScheduler() *Scheduler {
	log := logrus.New()
	log.SetOutput(io.Discard)

	// Jobs are scheduled far enough out that none fire during the test.
	svc := raceday.NewService(raceday.Config{}, nil, nil, nil, nil, nil, nil, nil, log)
	return NewScheduler(svc, log)
}

func TestSchedulerStartRequiresJobs(t *testing.T) {
	s := testScheduler()
	assert.Error(t, s.Start())
}

func TestSchedulerLifecycle(t *testing.T) {
	s := testScheduler()

	require.NoError(t, s.ScheduleOddsPolling(3600))
	require.NoError(t, s.ScheduleNearPostPass())

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start(), "double start must fail")
	assert.Len(t, s.Entries(), 2)

	next := s.GetNextRun()
	assert.False(t, next.IsZero())
	assert.True(t, next.After(time.Now().Add(30*time.Second)))

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.NoError(t, s.Stop(), "stop is idempotent")
}

func TestSchedulerRejectsJobsWhileRunning(t *testing.T) {
	s := testScheduler()

	require.NoError(t, s.ScheduleOddsPolling(3600))
	require.NoError(t, s.Start())
	defer func() { _ = s.Stop() }()

	assert.Error(t, s.ScheduleOddsPolling(3600))
	assert.Error(t, s.ScheduleNearPostPass())
}
