package service

import (
	"strings"
	"time"

	"crewdesk/internal/model"
)

// Decision is the outcome of evaluating a schedule for one calendar day.
type Decision struct {
	ShouldGenerate bool
	Title          string
	Description    string
	Reason         string
}

const (
	reasonInactive     = "inactive"
	reasonAlreadyToday = "already generated today"
	reasonWeekend      = "weekend"
	reasonNotYet       = "scheduled in the future"
	reasonFired        = "one-time schedule already fired"
	reasonUnscheduled  = "one-time schedule has no start"
	reasonUnknown      = "unknown recurrence"
)

// Evaluate decides whether the schedule produces tasks on now's calendar day
// and which title and description they carry. The activity flag and the
// lastGenerated marker are checked before any recurrence rule.
func Evaluate(schedule model.ScheduledTask, now time.Time) Decision {
	decision := Decision{Title: schedule.Title, Description: schedule.Description}

	if !schedule.IsActive {
		decision.Reason = reasonInactive
		return decision
	}
	today := model.DateOf(now)
	if schedule.LastGenerated == today {
		decision.Reason = reasonAlreadyToday
		return decision
	}

	switch model.Recurrence(strings.ToLower(string(schedule.Recurrence))) {
	case model.RecurDaily:
		decision.ShouldGenerate = true
	case model.RecurWeekdays:
		weekday := now.Weekday()
		if weekday == time.Saturday || weekday == time.Sunday {
			decision.Reason = reasonWeekend
			return decision
		}
		decision.ShouldGenerate = true
		if variation, ok := schedule.DailyVariations.For(weekday); ok {
			if title := strings.TrimSpace(variation.Title); title != "" {
				decision.Title = title
			}
			if description := strings.TrimSpace(variation.Description); description != "" {
				decision.Description = description
			}
		}
	case model.RecurOneTime:
		switch {
		case schedule.Status == model.ScheduleCompleted:
			decision.Reason = reasonFired
		case schedule.ScheduledAt == nil:
			decision.Reason = reasonUnscheduled
		case today.Before(model.DateOf(schedule.ScheduledAt.In(now.Location()))):
			decision.Reason = reasonNotYet
		default:
			decision.ShouldGenerate = true
		}
	default:
		decision.Reason = reasonUnknown
	}
	return decision
}
