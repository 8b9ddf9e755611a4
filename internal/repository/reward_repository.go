package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"crewdesk/internal/model"
)

// RewardRepository stores point grants.
type RewardRepository struct {
	db *gorm.DB
}

func NewRewardRepository(db *gorm.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

func (r *RewardRepository) FindByTask(ctx context.Context, taskID uint) (*model.Reward, error) {
	var reward model.Reward
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).First(&reward).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

// UpsertForTask writes the reward keyed by its task id. An existing reward for
// the task is updated in place and keeps its id.
func (r *RewardRepository) UpsertForTask(ctx context.Context, reward *model.Reward) error {
	if reward.TaskID == nil {
		return fmt.Errorf("%w: reward without task id", ErrInvalid)
	}
	if err := validate(reward); err != nil {
		return err
	}

	existing, err := r.FindByTask(ctx, *reward.TaskID)
	switch {
	case err == nil:
		return r.update(ctx, existing, reward)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return fmt.Errorf("find reward: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(reward).Error; err != nil {
		if !isDuplicate(err) {
			return fmt.Errorf("create reward: %w", err)
		}
		// Another caller created it between the lookup and the insert.
		existing, err := r.FindByTask(ctx, *reward.TaskID)
		if err != nil {
			return fmt.Errorf("find reward: %w", err)
		}
		return r.update(ctx, existing, reward)
	}
	return nil
}

func (r *RewardRepository) update(ctx context.Context, existing, reward *model.Reward) error {
	reward.ID = existing.ID
	reward.CreatedAt = existing.CreatedAt
	if err := r.db.WithContext(ctx).Save(reward).Error; err != nil {
		return fmt.Errorf("update reward: %w", err)
	}
	return nil
}

// DeleteByTask removes the reward for a task and reports how many rows went away.
func (r *RewardRepository) DeleteByTask(ctx context.Context, taskID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&model.Reward{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete reward: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *RewardRepository) ListByMember(ctx context.Context, memberID uint) ([]model.Reward, error) {
	var rewards []model.Reward
	if err := r.db.WithContext(ctx).Where("member_id = ?", memberID).Order("date DESC, id DESC").Find(&rewards).Error; err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	return rewards, nil
}

// TotalPoints sums every reward granted to a member.
func (r *RewardRepository) TotalPoints(ctx context.Context, memberID uint) (int, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Reward{}).
		Where("member_id = ?", memberID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("sum rewards: %w", err)
	}
	return int(total), nil
}
