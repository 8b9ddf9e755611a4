package model

import "strings"

// Normalize trims free text and fills defaults before the schedule is validated and stored.
func (s *ScheduledTask) Normalize() {
	s.Title = strings.TrimSpace(s.Title)
	s.Description = strings.TrimSpace(s.Description)
	s.EventName = strings.TrimSpace(s.EventName)
	s.MemberID = strings.TrimSpace(s.MemberID)
	if strings.EqualFold(s.MemberID, AllMembers) {
		s.MemberID = AllMembers
	}
	s.Recurrence = Recurrence(strings.ToLower(strings.TrimSpace(string(s.Recurrence))))
	s.EndTime = strings.TrimSpace(s.EndTime)
	if s.RewardAmount < 0 {
		s.RewardAmount = 0
	}
	if s.Recurrence == RecurOneTime {
		if s.Status == "" {
			s.Status = SchedulePending
		}
	} else {
		s.Status = ""
	}
	if s.Recurrence != RecurWeekdays {
		s.DailyVariations = nil
	}
}

// Normalize trims free text and fills defaults before the task is validated and stored.
func (t *Task) Normalize() {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	t.EventName = strings.TrimSpace(t.EventName)
	t.EndTime = strings.TrimSpace(t.EndTime)
	if t.Status == "" {
		t.Status = TaskPending
	}
	if t.ExtensionCount < 0 {
		t.ExtensionCount = 0
	}
	if t.ExtensionCount > MaxExtensions {
		t.ExtensionCount = MaxExtensions
	}
	if t.RewardAmount < 0 {
		t.RewardAmount = 0
	}
}

// Normalize trims free text and fills defaults before the member is validated and stored.
func (m *Member) Normalize() {
	m.Name = strings.TrimSpace(m.Name)
	m.Phone = strings.TrimSpace(m.Phone)
	m.Username = strings.TrimSpace(m.Username)
	if m.Role == "" {
		m.Role = RoleMember
	}
}
