package model

// TaskStatus is the lifecycle state of a generated or manual task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskCompleted  TaskStatus = "completed"
	TaskEliminated TaskStatus = "eliminated"
)

// Terminal reports whether no policy may move the task any further.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskEliminated
}

// RewardStatus tracks the proof review. The empty value means no proof was submitted yet.
type RewardStatus string

const (
	RewardNone     RewardStatus = ""
	RewardPending  RewardStatus = "pending"
	RewardApproved RewardStatus = "approved"
	RewardRejected RewardStatus = "rejected"
	RewardLate     RewardStatus = "late"
)

// Recurrence is the cadence of a scheduled task.
type Recurrence string

const (
	RecurDaily    Recurrence = "daily"
	RecurWeekdays Recurrence = "weekly-mon-fri"
	RecurOneTime  Recurrence = "one-time"
)

// ScheduleStatus is only meaningful for one-time schedules.
type ScheduleStatus string

const (
	SchedulePending   ScheduleStatus = "pending"
	ScheduleCompleted ScheduleStatus = "completed"
)

// MemberRole separates admins, who review proofs, from regular team members.
type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)
