package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minqi/bottomfisher/pkg/config"
	"github.com/minqi/bottomfisher/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
}

func (j *stubJob) Name() string              { return j.name }
func (j *stubJob) Schedule() string          { return j.schedule }
func (j *stubJob) Run(context.Context) error { return nil }

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"})
}

func TestAddJobRejectsDuplicate(t *testing.T) {
	s := New(testLogger())

	job := &stubJob{name: "daily_selection", schedule: "0 30 15 * * 1-5"}
	require.NoError(t, s.AddJob(job))

	err := s.AddJob(job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(testLogger())

	err := s.AddJob(&stubJob{name: "broken", schedule: "not a cron expr"})
	assert.Error(t, err)
}

func TestRunJobUnknown(t *testing.T) {
	s := New(testLogger())

	err := s.RunJob("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestJobHistoryKeepsBoundedResults(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyLimit+20; i++ {
		h.Add(JobResult{JobName: "j", Success: i%2 == 0})
	}

	assert.Len(t, h.Results, historyLimit)

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, "j", latest.JobName)
	assert.InDelta(t, 0.5, h.SuccessRate(), 0.01)
}

func TestJobHistoryEmpty(t *testing.T) {
	h := &JobHistory{}

	_, ok := h.Latest()
	assert.False(t, ok)
	assert.Zero(t, h.SuccessRate())
}
