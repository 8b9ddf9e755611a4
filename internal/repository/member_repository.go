package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"crewdesk/internal/model"
)

// MemberRepository handles the team roster.
type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) Create(ctx context.Context, member *model.Member) error {
	member.Normalize()
	if err := validate(member); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("create member: %w", ErrDuplicate)
		}
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

// Save writes every field of an existing member.
func (r *MemberRepository) Save(ctx context.Context, member *model.Member) error {
	member.Normalize()
	if err := validate(member); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(member).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("save member: %w", ErrDuplicate)
		}
		return fmt.Errorf("save member: %w", err)
	}
	return nil
}

// UpsertFromTelegram finds or creates a member based on TelegramID and refreshes the profile.
// New members join as active regular members.
func (r *MemberRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, name, username string) (*model.Member, error) {
	var member model.Member
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&member).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{"username": username}
		if name != "" {
			updates["name"] = name
		}
		if err := db.Model(&member).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update member: %w", err)
		}
		return &member, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if name == "" {
			name = username
		}
		if name == "" {
			name = fmt.Sprintf("tg-%d", telegramID)
		}
		member = model.Member{
			Name:       name,
			Username:   username,
			TelegramID: &telegramID,
			Role:       model.RoleMember,
			Active:     true,
		}
		if err := r.Create(ctx, &member); err != nil {
			return nil, err
		}
		return &member, nil
	default:
		return nil, fmt.Errorf("find member: %w", err)
	}
}

func (r *MemberRepository) FindByID(ctx context.Context, id uint) (*model.Member, error) {
	var member model.Member
	if err := r.db.WithContext(ctx).First(&member, id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *MemberRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.Member, error) {
	var member model.Member
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListActive returns the roster used for "all" fan-out.
func (r *MemberRepository) ListActive(ctx context.Context) ([]model.Member, error) {
	var members []model.Member
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("id ASC").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

func (r *MemberRepository) ListAll(ctx context.Context) ([]model.Member, error) {
	var members []model.Member
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}
