package cronmanager

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvery(t *testing.T) {
	assert.Equal(t, "@every 30s", Every(30))
}

func TestLoadAndRun(t *testing.T) {
	var runs atomic.Int32
	cm := NewCronManager(JobRegistry{
		"autosave": Job{Func: func() { runs.Add(1) }, Schedule: Every(1)},
	})
	require.NoError(t, cm.LoadJobs())
	assert.True(t, cm.Scheduled("autosave"))

	cm.Start()
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	cm.Stop()
}

func TestLoadJobsBadSchedule(t *testing.T) {
	cm := NewCronManager(JobRegistry{
		"broken": Job{Func: func() {}, Schedule: "every now and then"},
	})
	assert.Error(t, cm.LoadJobs())
	assert.False(t, cm.Scheduled("broken"))
}

func TestReschedule(t *testing.T) {
	cm := NewCronManager(JobRegistry{
		"autosave": Job{Func: func() {}, Schedule: Every(30)},
	})
	require.NoError(t, cm.LoadJobs())

	require.NoError(t, cm.Reschedule("autosave", Every(60)))
	assert.True(t, cm.Scheduled("autosave"))
	assert.Equal(t, "@every 60s", cm.jobRegistry["autosave"].Schedule)

	assert.Error(t, cm.Reschedule("autosave", "bogus"))
	assert.Equal(t, "@every 60s", cm.jobRegistry["autosave"].Schedule)
	assert.True(t, cm.Scheduled("autosave"))

	assert.Error(t, cm.Reschedule("missing", Every(5)))

	cm.RemoveJob("autosave")
	assert.False(t, cm.Scheduled("autosave"))
	require.NoError(t, cm.Reschedule("autosave", Every(10)))
	assert.True(t, cm.Scheduled("autosave"))
}
