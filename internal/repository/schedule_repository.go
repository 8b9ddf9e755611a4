package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"crewdesk/internal/model"
)

// ScheduleRepository stores recurrence templates.
type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) Create(ctx context.Context, schedule *model.ScheduledTask) error {
	schedule.Normalize()
	if err := validate(schedule); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(schedule).Error; err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Save writes every field of an existing schedule.
func (r *ScheduleRepository) Save(ctx context.Context, schedule *model.ScheduledTask) error {
	schedule.Normalize()
	if err := validate(schedule); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(schedule).Error; err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) FindByID(ctx context.Context, id uint) (*model.ScheduledTask, error) {
	var schedule model.ScheduledTask
	if err := r.db.WithContext(ctx).First(&schedule, id).Error; err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *ScheduleRepository) ListActive(ctx context.Context) ([]model.ScheduledTask, error) {
	var schedules []model.ScheduledTask
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").Find(&schedules).Error; err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	return schedules, nil
}

func (r *ScheduleRepository) ListAll(ctx context.Context) ([]model.ScheduledTask, error) {
	var schedules []model.ScheduledTask
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&schedules).Error; err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.ScheduledTask{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete schedule: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClaimGeneration sets last_generated to day only if it is not already day.
// Exactly one concurrent caller gets true. For one-time schedules the status
// flips to completed in the same statement.
func (r *ScheduleRepository) ClaimGeneration(ctx context.Context, id uint, day model.Date, oneTime bool) (bool, error) {
	updates := map[string]interface{}{
		"last_generated": day,
		"updated_at":     time.Now(),
	}
	query := r.db.WithContext(ctx).Model(&model.ScheduledTask{}).
		Where("id = ? AND is_active = ? AND (last_generated IS NULL OR last_generated <> ?)", id, true, day)
	if oneTime {
		updates["status"] = model.ScheduleCompleted
		query = query.Where("status = ?", model.SchedulePending)
	}
	res := query.Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("claim schedule %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ReleaseGeneration undoes a claim made for day, restoring the previous marker.
func (r *ScheduleRepository) ReleaseGeneration(ctx context.Context, id uint, day, previous model.Date, previousStatus model.ScheduleStatus) error {
	updates := map[string]interface{}{
		"last_generated": previous,
		"status":         previousStatus,
		"updated_at":     time.Now(),
	}
	res := r.db.WithContext(ctx).Model(&model.ScheduledTask{}).
		Where("id = ? AND last_generated = ?", id, day).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("release schedule %d: %w", id, res.Error)
	}
	return nil
}
