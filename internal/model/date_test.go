package model

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func berlin(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	return loc
}

func TestEndOfDayOnClockChangeDays(t *testing.T) {
	loc := berlin(t)

	// Clocks go back at 03:00 on 2026-10-25.
	end, err := Date("2026-10-25").EndOfDay(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 25, 23, 59, 59, 0, loc), end)
	assert.Equal(t, 23, end.Hour())

	// Clocks go forward at 02:00 on 2026-03-29.
	end, err = Date("2026-03-29").EndOfDay(loc)
	require.NoError(t, err)
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Minute())
}

func TestAtOnClockChangeDays(t *testing.T) {
	loc := berlin(t)

	at, err := Date("2026-10-25").At(loc, "18:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 25, 18, 0, 0, 0, loc), at)
	assert.Equal(t, 18, at.Hour())

	at, err = Date("2026-03-29").At(loc, "10:30")
	require.NoError(t, err)
	assert.Equal(t, 10, at.Hour())
	assert.Equal(t, 30, at.Minute())
}

func TestOnTimeLateEveningAfterClocksGoBack(t *testing.T) {
	loc := berlin(t)
	task := Task{ID: 1, Status: TaskPending, DueDate: "2026-10-25"}

	assert.True(t, task.OnTimeAt(time.Date(2026, 10, 25, 23, 30, 0, 0, loc)))
	assert.False(t, task.OnTimeAt(time.Date(2026, 10, 26, 0, 0, 0, 0, loc)))

	deadline, err := Task{DueDate: "2026-10-25", EndTime: "22:00"}.Deadline(loc)
	require.NoError(t, err)
	assert.Equal(t, 22, deadline.Hour())
}
