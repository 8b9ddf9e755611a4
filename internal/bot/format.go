package bot

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"crewdesk/internal/model"
)

const (
	iconDefault = "🟢"
	iconDue     = "⏳"
	iconOverdue = "⚠️"
)

func formatTask(task model.Task, code string, now time.Time) string {
	var b strings.Builder
	icon := iconDefault
	deadline, err := task.Deadline(now.Location())
	if err == nil {
		if now.After(deadline) {
			icon = iconOverdue
		} else if deadline.Sub(now) <= 6*time.Hour {
			icon = iconDue
		}
	}
	b.WriteString(fmt.Sprintf("%s <b>%s</b> %s\n", icon, code, escape(normalizeTitle(task.Title))))
	if task.EventName != "" {
		b.WriteString(fmt.Sprintf("   🎪 %s\n", escape(task.EventName)))
	}
	if err == nil {
		b.WriteString(fmt.Sprintf("   ⏰ Due: %s %s", task.DueDate, task.EffectiveEndTime()))
		if now.After(deadline) {
			b.WriteString(" · <b>overdue</b>")
		}
		b.WriteByte('\n')
	}
	if task.ExtensionCount > 0 {
		b.WriteString(fmt.Sprintf("   🔁 Extended %d/%d\n", task.ExtensionCount, model.MaxExtensions))
	}
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(task.Description)))
	}
	b.WriteByte('\n')
	return b.String()
}

func formatReview(task model.Task, code string, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📷 <b>%s</b> %s · member #%d\n", code, escape(normalizeTitle(task.Title)), task.MemberID))
	if task.ProofSubmittedAt != nil {
		b.WriteString(fmt.Sprintf("   submitted %s", task.ProofSubmittedAt.In(now.Location()).Format("2006-01-02 15:04")))
		if task.CompletedOnTime != nil && !*task.CompletedOnTime {
			b.WriteString(" · <b>late</b>")
		}
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
