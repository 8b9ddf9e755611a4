package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariationsDropsMalformedKeys(t *testing.T) {
	raw := []byte(`{"2":{"title":"Tuesday Check"},"monday":{"title":"x"},"9":{"title":"y"},"4":"oops","5":{}}`)
	variations, dropped := ParseVariations(raw)

	require.Len(t, variations, 1)
	assert.Equal(t, "Tuesday Check", variations[2].Title)
	assert.Equal(t, []string{"4", "9", "monday"}, dropped)
}

func TestVariationsUnmarshalNeverFails(t *testing.T) {
	var schedule ScheduledTask
	err := json.Unmarshal([]byte(`{"title":"Setup","dailyVariations":["broken"]}`), &schedule)
	require.NoError(t, err)
	assert.Nil(t, schedule.DailyVariations)
	assert.Equal(t, "Setup", schedule.Title)
}

func TestVariationsScanAndValue(t *testing.T) {
	original := Variations{1: {Title: "Monday"}, 5: {Description: "Friday wrap-up"}}
	value, err := original.Value()
	require.NoError(t, err)

	var scanned Variations
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, original, scanned)

	got, ok := scanned.For(time.Friday)
	assert.True(t, ok)
	assert.Equal(t, "Friday wrap-up", got.Description)

	var empty Variations
	value, err = empty.Value()
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestScheduleTargets(t *testing.T) {
	assert.True(t, ScheduledTask{MemberID: "ALL"}.TargetsAll())

	id, ok := ScheduledTask{MemberID: " 42 "}.TargetMember()
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	_, ok = ScheduledTask{MemberID: "nobody"}.TargetMember()
	assert.False(t, ok)
}

func TestValidateSchedule(t *testing.T) {
	schedule := ScheduledTask{Title: " Setup ", MemberID: "All", Recurrence: "Daily", EndTime: "18:30"}
	schedule.Normalize()
	require.NoError(t, Validate(schedule))
	assert.Equal(t, "Setup", schedule.Title)
	assert.Equal(t, AllMembers, schedule.MemberID)

	bad := ScheduledTask{Title: "Setup", MemberID: "someone", Recurrence: RecurDaily}
	assert.Error(t, Validate(bad))

	bad = ScheduledTask{Title: "Setup", MemberID: "3", Recurrence: "hourly"}
	assert.Error(t, Validate(bad))

	bad = ScheduledTask{Title: "Setup", MemberID: "3", Recurrence: RecurDaily, EndTime: "25:00"}
	assert.Error(t, Validate(bad))
}

func TestNormalizeOneTimeDefaults(t *testing.T) {
	schedule := ScheduledTask{Title: "Venue walk", MemberID: "1", Recurrence: RecurOneTime,
		DailyVariations: Variations{1: {Title: "ignored"}}}
	schedule.Normalize()
	assert.Equal(t, SchedulePending, schedule.Status)
	assert.Nil(t, schedule.DailyVariations)
}

func TestDateHelpers(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2026, 10, 18, 1, 30, 0, 0, loc)
	assert.Equal(t, Date("2026-10-18"), DateOf(now))
	assert.True(t, Date("2026-10-17").Before("2026-10-18"))
	assert.True(t, Date("2026-10-18").Valid())
	assert.False(t, Date("18.10.2026").Valid())

	end, err := Date("2026-10-18").EndOfDay(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 18, 23, 59, 59, 0, loc), end)
}
