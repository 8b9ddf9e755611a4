package service

import (
	"context"
	"fmt"
	"html"
	"time"

	"go.uber.org/zap"

	"crewdesk/internal/model"
	"crewdesk/internal/notify"
)

// ItemResult is the outcome for one task in a policy batch.
type ItemResult struct {
	TaskID uint   `json:"taskId"`
	Error  string `json:"error,omitempty"`
}

// BatchReport aggregates a policy pass. Changed counts successful transitions.
type BatchReport struct {
	Checked int          `json:"checked"`
	Changed int          `json:"changed"`
	Failed  int          `json:"failed"`
	Items   []ItemResult `json:"items,omitempty"`
}

func (r *BatchReport) record(taskID uint, err error) {
	if err != nil {
		r.Failed++
		r.Items = append(r.Items, ItemResult{TaskID: taskID, Error: err.Error()})
		return
	}
	r.Changed++
	r.Items = append(r.Items, ItemResult{TaskID: taskID})
}

// NeedsExtension reports whether the auto-extension rule applies to task today.
// Extension stops at model.MaxExtensions; the elimination policy takes over from there.
func NeedsExtension(task model.Task, today model.Date) bool {
	return task.Status == model.TaskPending &&
		task.AutoExtend &&
		task.DueDate.Before(today) &&
		task.ExtensionCount < model.MaxExtensions
}

// ShouldEliminate reports whether an exhausted task's deadline has passed.
func ShouldEliminate(task model.Task, now time.Time) (bool, error) {
	if task.Status.Terminal() || task.ExtensionCount < model.MaxExtensions {
		return false, nil
	}
	deadline, err := task.Deadline(now.Location())
	if err != nil {
		return false, err
	}
	return deadline.Before(now), nil
}

// Policy applies the extension and elimination rules to open tasks.
type Policy struct {
	tasks    TaskStore
	notifier notify.Notifier
	log      *zap.Logger
}

func NewPolicy(tasks TaskStore, notifier notify.Notifier, log *zap.Logger) *Policy {
	return &Policy{tasks: tasks, notifier: notifier, log: log.Named("policy")}
}

// Extend rolls every overdue auto-extendable task forward to today. The input
// slice is updated in place so later stages see the new due dates.
func (p *Policy) Extend(ctx context.Context, tasks []model.Task, now time.Time) BatchReport {
	var report BatchReport
	today := model.DateOf(now)
	for i := range tasks {
		task := &tasks[i]
		if !NeedsExtension(*task, today) {
			continue
		}
		report.Checked++

		updated := *task
		if err := updated.ExtendTo(today, now); err != nil {
			report.record(task.ID, err)
			continue
		}
		if err := p.tasks.Save(ctx, &updated); err != nil {
			p.log.Error("extend task", zap.Uint("task", task.ID), zap.Error(err))
			report.record(task.ID, err)
			continue
		}
		*task = updated
		p.log.Info("task extended",
			zap.Uint("task", task.ID),
			zap.Stringer("due", task.DueDate),
			zap.Int("extensions", task.ExtensionCount))
		report.record(task.ID, nil)
	}
	return report
}

// Eliminate fails every exhausted task whose deadline has passed and tells the assignee.
func (p *Policy) Eliminate(ctx context.Context, tasks []model.Task, now time.Time) BatchReport {
	var report BatchReport
	for i := range tasks {
		task := &tasks[i]
		due, err := ShouldEliminate(*task, now)
		if err != nil {
			p.log.Warn("task deadline unreadable", zap.Uint("task", task.ID), zap.Error(err))
			continue
		}
		if !due {
			continue
		}
		report.Checked++

		message := fmt.Sprintf("❌ Task «%s» was eliminated: the deadline %s passed after %d extensions.",
			html.EscapeString(task.Title), task.DueDate, task.ExtensionCount)
		if err := p.eliminate(ctx, task, eliminationNote(now), message, now); err != nil {
			report.record(task.ID, err)
			continue
		}
		report.record(task.ID, nil)
	}
	return report
}

func (p *Policy) eliminate(ctx context.Context, task *model.Task, note, message string, now time.Time) error {
	updated := *task
	if err := updated.Eliminate(note, now); err != nil {
		return err
	}
	if err := p.tasks.Save(ctx, &updated); err != nil {
		p.log.Error("eliminate task", zap.Uint("task", task.ID), zap.Error(err))
		return err
	}
	*task = updated
	p.log.Info("task eliminated", zap.Uint("task", task.ID), zap.Uint("member", task.MemberID))
	dispatch(ctx, p.notifier, p.log, notify.Member(task.MemberID), message)
	return nil
}

func eliminationNote(now time.Time) string {
	return fmt.Sprintf("[system] Eliminated on %s: deadline missed after %d extensions.",
		now.Format("2006-01-02 15:04"), model.MaxExtensions)
}

// dispatch delivers a notification without letting its failure reach the caller.
func dispatch(ctx context.Context, notifier notify.Notifier, log *zap.Logger, target, message string) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, target, message); err != nil {
		log.Warn("notification failed", zap.String("target", target), zap.Error(err))
	}
}
