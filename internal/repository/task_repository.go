package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"crewdesk/internal/model"
)

// TaskFilter narrows task listings. Zero values are ignored.
type TaskFilter struct {
	MemberID     uint
	Status       model.TaskStatus
	RewardStatus model.RewardStatus
	DueDate      model.Date
}

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a task. A clash on the generation dedup key yields ErrDuplicate.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	task.Normalize()
	if err := validate(task); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("create task: %w", ErrDuplicate)
		}
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Save writes every field of an existing task.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	task.Normalize()
	if err := validate(task); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) List(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query := r.db.WithContext(ctx).Model(&model.Task{})
	if filter.MemberID != 0 {
		query = query.Where("member_id = ?", filter.MemberID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.RewardStatus != "" {
		query = query.Where("reward_status = ?", filter.RewardStatus)
	}
	if filter.DueDate != "" {
		query = query.Where("due_date = ?", filter.DueDate)
	}
	var tasks []model.Task
	if err := query.Order("due_date ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListOpen returns every task that no policy has closed yet.
func (r *TaskRepository) ListOpen(ctx context.Context) ([]model.Task, error) {
	return r.List(ctx, TaskFilter{Status: model.TaskPending})
}

// ListGenerated returns the tasks a schedule produced on the given day.
func (r *TaskRepository) ListGenerated(ctx context.Context, scheduleID uint, day model.Date) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("origin_schedule_id = ? AND generation_day = ?", scheduleID, day).
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list generated tasks: %w", err)
	}
	return tasks, nil
}

// Delete removes a task completely.
func (r *TaskRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Task{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
