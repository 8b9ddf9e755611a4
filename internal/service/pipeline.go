package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"crewdesk/internal/model"
	"crewdesk/internal/notify"
)

// GenerationSummary aggregates one generation pass over all active schedules.
type GenerationSummary struct {
	Evaluated  int                `json:"evaluated"`
	Due        int                `json:"due"`
	Claimed    int                `json:"claimed"`
	Created    int                `json:"created"`
	Duplicates int                `json:"duplicates"`
	Failed     int                `json:"failed"`
	Schedules  []GenerationResult `json:"schedules,omitempty"`
}

func (s *GenerationSummary) add(result GenerationResult) {
	s.Due++
	if result.Claimed {
		s.Claimed++
	}
	s.Created += result.Created()
	s.Duplicates += result.Duplicates()
	s.Failed += result.Failed()
	if result.Err != nil {
		s.Failed++
	}
	s.Schedules = append(s.Schedules, result)
}

// PipelineReport describes one full maintenance run.
type PipelineReport struct {
	RunID       string            `json:"runId"`
	StartedAt   time.Time         `json:"startedAt"`
	FinishedAt  time.Time         `json:"finishedAt"`
	Extension   BatchReport       `json:"extension"`
	Generation  GenerationSummary `json:"generation"`
	Elimination BatchReport       `json:"elimination"`
}

// Engine runs the scheduled pipeline: extension, generation, elimination.
type Engine struct {
	schedules ScheduleStore
	tasks     TaskStore
	members   MemberStore
	generator *Generator
	policy    *Policy
	notifier  notify.Notifier
	clock     Clock
	log       *zap.Logger

	// serialises runs and manual task actions inside one process; other processes rely on the claim.
	mu sync.Mutex
}

func NewEngine(schedules ScheduleStore, tasks TaskStore, members MemberStore, notifier notify.Notifier, clock Clock, log *zap.Logger) *Engine {
	return &Engine{
		schedules: schedules,
		tasks:     tasks,
		members:   members,
		generator: NewGenerator(schedules, tasks, log),
		policy:    NewPolicy(tasks, notifier, log),
		notifier:  notifier,
		clock:     clock,
		log:       log.Named("engine"),
	}
}

// Policy exposes the engine's extension and elimination rules.
func (e *Engine) Policy() *Policy {
	return e.policy
}

// RunPipeline extends overdue tasks, generates today's tasks, then eliminates
// exhausted ones. A failing stage is reported and the next one still runs.
func (e *Engine) RunPipeline(ctx context.Context) (*PipelineReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	report := &PipelineReport{RunID: uuid.NewString(), StartedAt: now}
	log := e.log.With(zap.String("run", report.RunID))
	log.Info("pipeline started", zap.Stringer("day", model.DateOf(now)))

	open, err := e.tasks.ListOpen(ctx)
	if err != nil {
		return nil, translate(err, "list open tasks")
	}
	report.Extension = e.policy.Extend(ctx, open, now)

	summary, err := e.generate(ctx, open, now)
	if err != nil {
		log.Error("generation stage", zap.Error(err))
	}
	report.Generation = summary

	open, err = e.tasks.ListOpen(ctx)
	if err != nil {
		report.FinishedAt = e.clock()
		return report, translate(err, "reload open tasks")
	}
	report.Elimination = e.policy.Eliminate(ctx, open, now)
	report.FinishedAt = e.clock()

	log.Info("pipeline finished",
		zap.Int("extended", report.Extension.Changed),
		zap.Int("created", report.Generation.Created),
		zap.Int("eliminated", report.Elimination.Changed),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

// GenerateNow runs only the generation stage.
func (e *Engine) GenerateNow(ctx context.Context) (*GenerationSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	open, err := e.tasks.ListOpen(ctx)
	if err != nil {
		return nil, translate(err, "list open tasks")
	}
	summary, err := e.generate(ctx, open, now)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (e *Engine) generate(ctx context.Context, existing []model.Task, now time.Time) (GenerationSummary, error) {
	var summary GenerationSummary

	schedules, err := e.schedules.ListActive(ctx)
	if err != nil {
		return summary, translate(err, "list schedules")
	}
	roster, err := e.members.ListActive(ctx)
	if err != nil {
		return summary, translate(err, "list members")
	}

	created := make(map[uint][]string)
	for _, schedule := range schedules {
		summary.Evaluated++
		decision := Evaluate(schedule, now)
		if !decision.ShouldGenerate {
			e.log.Debug("schedule skipped", zap.Uint("schedule", schedule.ID), zap.String("reason", decision.Reason))
			continue
		}
		result := e.generator.Generate(ctx, schedule, decision, roster, existing, now)
		summary.add(result)
		for _, member := range result.Members {
			if member.Outcome == OutcomeCreated {
				created[member.MemberID] = append(created[member.MemberID], decision.Title)
			}
		}
	}

	e.announce(ctx, created)
	return summary, nil
}

// announce tells every member which tasks were just assigned to them.
func (e *Engine) announce(ctx context.Context, created map[uint][]string) {
	ids := make([]uint, 0, len(created))
	for id := range created {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		var sb strings.Builder
		sb.WriteString("🆕 <b>New tasks for today</b>\n")
		for _, title := range created[id] {
			sb.WriteString(fmt.Sprintf("• %s\n", html.EscapeString(title)))
		}
		dispatch(ctx, e.notifier, e.log, notify.Member(id), strings.TrimSpace(sb.String()))
	}
}

// ExtendTask is the manual admin extension, within the same cap as the
// automatic policy. Without a target day an overdue task moves to today and
// any other task gains one day. Targets in the past are raised to today.
func (e *Engine) ExtendTask(ctx context.Context, taskID uint, to model.Date) (*model.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, err := e.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("task %d", taskID))
	}
	now := e.clock()
	today := model.DateOf(now)
	day := to
	switch {
	case !to.IsZero() && !to.Valid():
		return nil, errors.Wrapf(ErrValidation, "invalid date %q", to)
	case to.IsZero() && task.DueDate.Before(today):
		day = today
	case to.IsZero():
		day = task.DueDate.AddDays(1)
	case to.Before(today):
		day = today
	}
	if err := task.ExtendTo(day, now); err != nil {
		return nil, err
	}
	if err := e.tasks.Save(ctx, task); err != nil {
		return nil, translate(err, "save task")
	}
	e.log.Info("task extended manually", zap.Uint("task", task.ID), zap.Stringer("due", task.DueDate))
	return task, nil
}

// EliminateTask force-fails a pending task regardless of its extension count.
func (e *Engine) EliminateTask(ctx context.Context, taskID uint, note string) (*model.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, err := e.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("task %d", taskID))
	}
	now := e.clock()
	if strings.TrimSpace(note) == "" {
		note = fmt.Sprintf("[admin] Eliminated on %s.", now.Format("2006-01-02 15:04"))
	}
	message := fmt.Sprintf("❌ Task «%s» was eliminated by an admin.", html.EscapeString(task.Title))
	if err := e.policy.eliminate(ctx, task, note, message, now); err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			return nil, err
		}
		return nil, translate(err, "save task")
	}
	return task, nil
}
