package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"crewdesk/internal/model"
	"crewdesk/internal/repository"
)

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	tasks   TaskStore
	rewards RewardStore
	label   func(id uint) string
}

func NewReminderService(tasks TaskStore, rewards RewardStore) *ReminderService {
	return &ReminderService{tasks: tasks, rewards: rewards, label: func(id uint) string { return fmt.Sprintf("#%d", id) }}
}

// WithTaskLabel sets how task references are rendered, e.g. as bot short codes.
func (s *ReminderService) WithTaskLabel(label func(id uint) string) *ReminderService {
	if label != nil {
		s.label = label
	}
	return s
}

func (s *ReminderService) DailySummary(ctx context.Context, member model.Member, now time.Time) (string, error) {
	tasks, err := s.tasks.List(ctx, repository.TaskFilter{MemberID: member.ID})
	if err != nil {
		return "", translate(err, "list tasks")
	}
	points, err := s.rewards.TotalPoints(ctx, member.ID)
	if err != nil {
		return "", translate(err, "sum rewards")
	}

	var pending []model.Task
	var inReview []model.Task
	for _, task := range tasks {
		switch {
		case task.Status == model.TaskPending:
			pending = append(pending, task)
		case task.Status == model.TaskCompleted && task.RewardStatus == model.RewardPending:
			inReview = append(inReview, task)
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].DueDate == pending[j].DueDate {
			return pending[i].CreatedAt.After(pending[j].CreatedAt)
		}
		return pending[i].DueDate.Before(pending[j].DueDate)
	})

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s · %s\n\n", now.Format("02.01.2006"), html.EscapeString(member.Name)))

	builder.WriteString("🔥 <b>Open tasks</b>\n")
	if len(pending) == 0 {
		builder.WriteString("— nothing open\n")
	} else {
		for _, task := range pending {
			builder.WriteString(formatTask(task, s.label(task.ID), now))
		}
	}

	builder.WriteString("\n🕵️ <b>Waiting for review</b>\n")
	if len(inReview) == 0 {
		builder.WriteString("— no proofs in review\n")
	} else {
		for _, task := range inReview {
			builder.WriteString(formatReview(task, s.label(task.ID), now))
		}
	}

	builder.WriteString(fmt.Sprintf("\n🏆 Points: <b>%d</b>\n", points))
	return strings.TrimSpace(builder.String()), nil
}

func formatTask(task model.Task, ref string, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	deadline, err := task.Deadline(now.Location())
	if err == nil {
		switch {
		case now.After(deadline):
			icon = "⚠️"
		case deadline.Sub(now) <= 6*time.Hour:
			icon = "⏳"
		}
	}

	title := html.EscapeString(strings.TrimSpace(task.Title))
	sb.WriteString(fmt.Sprintf("%s %s %s", icon, ref, title))

	if name := strings.TrimSpace(task.EventName); name != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(name)))
	}

	if err == nil {
		if now.After(deadline) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s %s — <b>overdue</b>", task.DueDate, task.EffectiveEndTime()))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s %s", task.DueDate, task.EffectiveEndTime()))
		}
	}
	if task.ExtensionCount > 0 {
		sb.WriteString(fmt.Sprintf("\n   🔁 extended %d/%d", task.ExtensionCount, model.MaxExtensions))
	}

	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(task.Description))))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func formatReview(task model.Task, ref string, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📷 %s %s", ref, html.EscapeString(strings.TrimSpace(task.Title))))
	if task.ProofSubmittedAt != nil {
		sb.WriteString(fmt.Sprintf("\n   submitted %s", task.ProofSubmittedAt.In(now.Location()).Format("2006-01-02 15:04")))
	}
	if task.CompletedOnTime != nil && !*task.CompletedOnTime {
		sb.WriteString(" · <b>late</b>")
	}
	sb.WriteByte('\n')
	return sb.String()
}
