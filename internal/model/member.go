package model

import "time"

// Member is a team member on the roster. Members may be linked to a Telegram chat.
type Member struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Name       string     `gorm:"not null" json:"name" validate:"required,max=120"`
	Phone      string     `json:"phone,omitempty" validate:"omitempty,max=32"`
	TelegramID *int64     `gorm:"uniqueIndex" json:"telegramId,omitempty"`
	Username   string     `json:"username,omitempty"`
	Role       MemberRole `gorm:"index" json:"role" validate:"required,oneof=admin member"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (m Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}
