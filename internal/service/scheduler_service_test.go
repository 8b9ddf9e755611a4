package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("00:05")
	require.NoError(t, err)
	assert.Equal(t, "0 5 0 * * *", spec)

	spec, err = buildDailySpec("23:59")
	require.NoError(t, err)
	assert.Equal(t, "0 59 23 * * *", spec)

	for _, bad := range []string{"", "24:00", "7", "07:60", "ab:cd"} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestSchedulerRegistersJobs(t *testing.T) {
	s := NewSchedulerService(time.UTC, zap.NewNop())
	_, err := s.ScheduleDaily("00:05", func() {})
	require.NoError(t, err)
	_, err = s.ScheduleInterval(30*time.Second, func() {})
	require.NoError(t, err)
	_, err = s.ScheduleInterval(0, func() {})
	assert.Error(t, err)
	assert.Len(t, s.cron.Entries(), 2)

	s.Start()
	s.Stop()
}
