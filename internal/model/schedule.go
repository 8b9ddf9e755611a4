package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// AllMembers is the assignee sentinel that fans a schedule out to the whole roster.
const AllMembers = "all"

// ScheduledTask is a recurrence template that produces concrete tasks.
type ScheduledTask struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"not null" json:"title" validate:"required,max=200"`
	Description     string         `json:"description"`
	MemberID        string         `gorm:"index;not null" json:"memberId" validate:"required,assignee"`
	EventName       string         `json:"eventName,omitempty"`
	Recurrence      Recurrence     `gorm:"not null" json:"recurrence" validate:"required,oneof=daily weekly-mon-fri one-time"`
	DailyVariations Variations     `gorm:"type:text" json:"dailyVariations,omitempty"`
	ScheduledAt     *time.Time     `json:"scheduledAt,omitempty"`
	DueDate         Date           `json:"dueDate,omitempty" validate:"omitempty,date"`
	EndTime         string         `json:"endTime,omitempty" validate:"omitempty,clock"`
	AutoExtend      bool           `json:"autoExtend"`
	RewardAmount    int            `json:"rewardAmount" validate:"gte=0"`
	IsActive        bool           `json:"isActive"`
	LastGenerated   Date           `gorm:"index" json:"lastGenerated,omitempty" validate:"omitempty,date"`
	Status          ScheduleStatus `json:"status,omitempty" validate:"omitempty,oneof=pending completed"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// TargetsAll reports whether the schedule fans out to every roster member.
func (s ScheduledTask) TargetsAll() bool {
	return strings.EqualFold(strings.TrimSpace(s.MemberID), AllMembers)
}

// TargetMember returns the single assignee id when the schedule is not a fan-out.
func (s ScheduledTask) TargetMember() (uint, bool) {
	if s.TargetsAll() {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimSpace(s.MemberID), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Variation overrides the title and/or description for a single weekday.
type Variation struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Variations maps weekday numbers (0=Sunday..6=Saturday) to overrides.
// Decoding is lenient: entries with unknown weekdays or unreadable bodies are dropped.
type Variations map[int]Variation

func (v *Variations) UnmarshalJSON(data []byte) error {
	parsed, _ := parseVariations(data)
	*v = parsed
	return nil
}

// Scan implements sql.Scanner.
func (v *Variations) Scan(value any) error {
	var raw []byte
	switch typed := value.(type) {
	case nil:
		*v = nil
		return nil
	case []byte:
		raw = typed
	case string:
		raw = []byte(typed)
	default:
		return fmt.Errorf("scan variations: unsupported type %T", value)
	}
	parsed, _ := parseVariations(raw)
	*v = parsed
	return nil
}

// Value implements driver.Valuer.
func (v Variations) Value() (driver.Value, error) {
	if len(v) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(map[int]Variation(v))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// For returns the override for a weekday, if any.
func (v Variations) For(weekday time.Weekday) (Variation, bool) {
	if v == nil {
		return Variation{}, false
	}
	variation, ok := v[int(weekday)]
	return variation, ok
}

// ParseVariations decodes a JSON object and reports which keys were dropped.
func ParseVariations(data []byte) (Variations, []string) {
	return parseVariations(data)
}

func parseVariations(data []byte) (Variations, []string) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &entries); err != nil {
		return nil, []string{"*"}
	}

	result := make(Variations, len(entries))
	var dropped []string
	for key, body := range entries {
		day, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || day < 0 || day > 6 {
			dropped = append(dropped, key)
			continue
		}
		var variation Variation
		if err := json.Unmarshal(body, &variation); err != nil {
			dropped = append(dropped, key)
			continue
		}
		variation.Title = strings.TrimSpace(variation.Title)
		variation.Description = strings.TrimSpace(variation.Description)
		if variation.Title == "" && variation.Description == "" {
			continue
		}
		result[day] = variation
	}
	sort.Strings(dropped)
	if len(result) == 0 {
		return nil, dropped
	}
	return result, dropped
}
