package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"crewdesk/internal/model"
	"crewdesk/internal/repository"
)

// MemberOutcome is what happened to one member during a fan-out.
type MemberOutcome string

const (
	OutcomeCreated   MemberOutcome = "created"
	OutcomeDuplicate MemberOutcome = "duplicate"
	OutcomeFailed    MemberOutcome = "failed"
)

// MemberResult reports the fan-out outcome for a single member.
type MemberResult struct {
	MemberID uint          `json:"memberId"`
	TaskID   uint          `json:"taskId,omitempty"`
	Outcome  MemberOutcome `json:"outcome"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
}

// GenerationResult is the per-member batch result for one schedule.
type GenerationResult struct {
	ScheduleID uint           `json:"scheduleId"`
	Title      string         `json:"title"`
	Claimed    bool           `json:"claimed"`
	Released   bool           `json:"released,omitempty"`
	Members    []MemberResult `json:"members"`
	Err        error          `json:"-"`
	Error      string         `json:"error,omitempty"`
}

func (r GenerationResult) count(outcome MemberOutcome) int {
	n := 0
	for _, m := range r.Members {
		if m.Outcome == outcome {
			n++
		}
	}
	return n
}

func (r GenerationResult) Created() int    { return r.count(OutcomeCreated) }
func (r GenerationResult) Duplicates() int { return r.count(OutcomeDuplicate) }
func (r GenerationResult) Failed() int     { return r.count(OutcomeFailed) }

// Complete reports whether every targeted member ended up with a task.
func (r GenerationResult) Complete() bool {
	return r.Err == nil && r.Failed() == 0
}

type dedupKey struct {
	schedule uint
	member   uint
	day      model.Date
}

// Generator fans a due schedule out into per-member tasks.
type Generator struct {
	schedules ScheduleStore
	tasks     TaskStore
	log       *zap.Logger
}

func NewGenerator(schedules ScheduleStore, tasks TaskStore, log *zap.Logger) *Generator {
	return &Generator{schedules: schedules, tasks: tasks, log: log.Named("generator")}
}

// Generate claims the schedule for today and creates one task per target member.
// Only the caller that wins the claim fans out. Existing tasks for the same
// (schedule, member, day) are skipped; the store's unique index catches the rest.
// A failure for one member never stops the others.
func (g *Generator) Generate(ctx context.Context, schedule model.ScheduledTask, decision Decision, roster []model.Member, existing []model.Task, now time.Time) GenerationResult {
	today := model.DateOf(now)
	result := GenerationResult{ScheduleID: schedule.ID, Title: decision.Title}
	oneTime := schedule.Recurrence == model.RecurOneTime

	claimed, err := g.schedules.ClaimGeneration(ctx, schedule.ID, today, oneTime)
	if err != nil {
		g.log.Error("claim schedule", zap.Uint("schedule", schedule.ID), zap.Error(err))
		result.Err = err
		result.Error = err.Error()
		return result
	}
	if !claimed {
		g.log.Debug("schedule already claimed", zap.Uint("schedule", schedule.ID), zap.Stringer("day", today))
		return result
	}
	result.Claimed = true

	seen := make(map[dedupKey]uint, len(existing))
	remember := func(tasks []model.Task) {
		for _, task := range tasks {
			if task.OriginScheduleID == nil {
				continue
			}
			day := task.GenerationDay
			if day.IsZero() {
				day = model.DateOf(task.CreatedAt.In(now.Location()))
			}
			seen[dedupKey{*task.OriginScheduleID, task.MemberID, day}] = task.ID
		}
	}
	remember(existing)
	if stored, err := g.tasks.ListGenerated(ctx, schedule.ID, today); err != nil {
		g.log.Warn("load generated tasks", zap.Uint("schedule", schedule.ID), zap.Error(err))
	} else {
		remember(stored)
	}

	for _, member := range resolveTargets(schedule, roster) {
		key := dedupKey{schedule.ID, member.ID, today}
		if taskID, ok := seen[key]; ok {
			result.Members = append(result.Members, MemberResult{MemberID: member.ID, TaskID: taskID, Outcome: OutcomeDuplicate})
			continue
		}

		task := buildTask(schedule, decision, member.ID, now)
		if err := g.tasks.Create(ctx, &task); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				result.Members = append(result.Members, MemberResult{MemberID: member.ID, Outcome: OutcomeDuplicate})
				continue
			}
			g.log.Error("create generated task",
				zap.Uint("schedule", schedule.ID), zap.Uint("member", member.ID), zap.Error(err))
			result.Members = append(result.Members, MemberResult{MemberID: member.ID, Outcome: OutcomeFailed, Err: err, Error: err.Error()})
			continue
		}
		seen[key] = task.ID
		result.Members = append(result.Members, MemberResult{MemberID: member.ID, TaskID: task.ID, Outcome: OutcomeCreated})
	}

	// Nothing landed: hand the day back so a later run can retry.
	if result.Created() == 0 && result.Failed() > 0 {
		previousStatus := schedule.Status
		if oneTime && previousStatus == "" {
			previousStatus = model.SchedulePending
		}
		if err := g.schedules.ReleaseGeneration(ctx, schedule.ID, today, schedule.LastGenerated, previousStatus); err != nil {
			g.log.Error("release schedule", zap.Uint("schedule", schedule.ID), zap.Error(err))
		} else {
			result.Released = true
		}
	}

	g.log.Info("schedule generated",
		zap.Uint("schedule", schedule.ID),
		zap.Stringer("day", today),
		zap.Int("created", result.Created()),
		zap.Int("duplicates", result.Duplicates()),
		zap.Int("failed", result.Failed()))
	return result
}

// resolveTargets expands "all" to the roster, or finds the single assignee.
// An unknown assignee yields no targets.
func resolveTargets(schedule model.ScheduledTask, roster []model.Member) []model.Member {
	if schedule.TargetsAll() {
		return roster
	}
	id, ok := schedule.TargetMember()
	if !ok {
		return nil
	}
	for _, member := range roster {
		if member.ID == id {
			return []model.Member{member}
		}
	}
	return nil
}

func buildTask(schedule model.ScheduledTask, decision Decision, memberID uint, now time.Time) model.Task {
	today := model.DateOf(now)
	due := today
	if schedule.Recurrence == model.RecurOneTime && schedule.DueDate.Valid() {
		due = schedule.DueDate
	}
	origin := schedule.ID
	return model.Task{
		Title:            decision.Title,
		Description:      decision.Description,
		MemberID:         memberID,
		EventName:        schedule.EventName,
		DueDate:          due,
		EndTime:          schedule.EndTime,
		Status:           model.TaskPending,
		OriginScheduleID: &origin,
		GenerationDay:    today,
		AutoExtend:       schedule.AutoExtend,
		ExtensionCount:   0,
		RewardAmount:     schedule.RewardAmount,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
