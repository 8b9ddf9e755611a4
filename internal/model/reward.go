package model

import "time"

// Reward is a points grant. At most one reward exists per task.
type Reward struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MemberID  uint      `gorm:"index;not null" json:"memberId" validate:"required"`
	Amount    int       `gorm:"not null" json:"amount" validate:"gte=0"`
	Reason    string    `json:"reason"`
	EventName string    `json:"eventName,omitempty"`
	Date      Date      `gorm:"index" json:"date" validate:"required,date"`
	TaskID    *uint     `gorm:"uniqueIndex" json:"taskId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
