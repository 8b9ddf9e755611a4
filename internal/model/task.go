package model

import "time"

// Task is a concrete work item assigned to a single member.
type Task struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	Title            string       `gorm:"not null" json:"title" validate:"required,max=200"`
	Description      string       `json:"description"`
	MemberID         uint         `gorm:"index;not null;uniqueIndex:idx_task_dedup,priority:2" json:"memberId" validate:"required"`
	EventName        string       `json:"eventName,omitempty"`
	DueDate          Date         `gorm:"index;not null" json:"dueDate" validate:"required,date"`
	EndTime          string       `json:"endTime,omitempty" validate:"omitempty,clock"`
	Status           TaskStatus   `gorm:"index;not null" json:"status" validate:"required,oneof=pending completed eliminated"`
	OriginScheduleID *uint        `gorm:"uniqueIndex:idx_task_dedup,priority:1" json:"originScheduleId,omitempty"`
	GenerationDay    Date         `gorm:"uniqueIndex:idx_task_dedup,priority:3" json:"generationDay,omitempty" validate:"omitempty,date"`
	AutoExtend       bool         `json:"autoExtend"`
	ExtensionCount   int          `gorm:"not null;default:0" json:"extensionCount" validate:"gte=0,lte=3"`
	RewardAmount     int          `json:"rewardAmount" validate:"gte=0"`
	ProofImage       string       `json:"proofImage,omitempty"`
	ProofSubmittedAt *time.Time   `json:"proofSubmittedAt,omitempty"`
	CompletedOnTime  *bool        `json:"completedOnTime,omitempty"`
	RewardStatus     RewardStatus `gorm:"index" json:"rewardStatus,omitempty" validate:"omitempty,oneof=pending approved rejected late"`
	RewardApprovedAt *time.Time   `json:"rewardApprovedAt"`
	RewardRejectedAt *time.Time   `json:"rewardRejectedAt,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// FromSchedule reports whether the task was produced by the generator.
func (t Task) FromSchedule() bool {
	return t.OriginScheduleID != nil
}

// EffectiveEndTime returns the task end time, falling back to the default.
func (t Task) EffectiveEndTime() string {
	if t.EndTime == "" {
		return DefaultEndTime
	}
	return t.EndTime
}
