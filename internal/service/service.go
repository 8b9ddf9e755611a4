package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"crewdesk/internal/model"
	"crewdesk/internal/repository"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)

// ScheduleStore is the schedule collection as the engine sees it.
type ScheduleStore interface {
	Create(ctx context.Context, schedule *model.ScheduledTask) error
	Save(ctx context.Context, schedule *model.ScheduledTask) error
	FindByID(ctx context.Context, id uint) (*model.ScheduledTask, error)
	ListActive(ctx context.Context) ([]model.ScheduledTask, error)
	ListAll(ctx context.Context) ([]model.ScheduledTask, error)
	Delete(ctx context.Context, id uint) error
	ClaimGeneration(ctx context.Context, id uint, day model.Date, oneTime bool) (bool, error)
	ReleaseGeneration(ctx context.Context, id uint, day, previous model.Date, previousStatus model.ScheduleStatus) error
}

// TaskStore is the task collection as the engine sees it.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	Save(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id uint) (*model.Task, error)
	List(ctx context.Context, filter repository.TaskFilter) ([]model.Task, error)
	ListOpen(ctx context.Context) ([]model.Task, error)
	ListGenerated(ctx context.Context, scheduleID uint, day model.Date) ([]model.Task, error)
	Delete(ctx context.Context, id uint) error
}

// RewardStore is the reward collection as the engine sees it.
type RewardStore interface {
	FindByTask(ctx context.Context, taskID uint) (*model.Reward, error)
	UpsertForTask(ctx context.Context, reward *model.Reward) error
	DeleteByTask(ctx context.Context, taskID uint) (int64, error)
	ListByMember(ctx context.Context, memberID uint) ([]model.Reward, error)
	TotalPoints(ctx context.Context, memberID uint) (int, error)
}

// MemberStore is the roster as the engine sees it.
type MemberStore interface {
	Create(ctx context.Context, member *model.Member) error
	Save(ctx context.Context, member *model.Member) error
	UpsertFromTelegram(ctx context.Context, telegramID int64, name, username string) (*model.Member, error)
	FindByID(ctx context.Context, id uint) (*model.Member, error)
	FindByTelegramID(ctx context.Context, telegramID int64) (*model.Member, error)
	ListActive(ctx context.Context) ([]model.Member, error)
	ListAll(ctx context.Context) ([]model.Member, error)
}

// Clock returns the current instant in the engine's time zone.
type Clock func() time.Time

// NewClock returns a clock reporting wall time in loc.
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}

// translate maps store errors onto the service's sentinels.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Wrap(ErrNotFound, what)
	case errors.Is(err, repository.ErrInvalid):
		return errors.Wrap(ErrValidation, err.Error())
	case errors.Is(err, repository.ErrDuplicate):
		return errors.Wrap(ErrConflict, what)
	default:
		return errors.Wrap(err, what)
	}
}
