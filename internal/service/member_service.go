package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"crewdesk/internal/model"
)

// MemberService manages the team roster.
type MemberService struct {
	members MemberStore
	log     *zap.Logger
}

func NewMemberService(members MemberStore, log *zap.Logger) *MemberService {
	return &MemberService{members: members, log: log.Named("members")}
}

func (s *MemberService) Create(ctx context.Context, member model.Member) (*model.Member, error) {
	member.ID = 0
	if member.Role == "" {
		member.Role = model.RoleMember
	}
	if err := s.members.Create(ctx, &member); err != nil {
		return nil, translate(err, "create member")
	}
	s.log.Info("member created", zap.Uint("member", member.ID), zap.String("role", string(member.Role)))
	return &member, nil
}

// Register links a Telegram account to the roster, creating the member on first contact.
func (s *MemberService) Register(ctx context.Context, telegramID int64, name, username string) (*model.Member, error) {
	if telegramID == 0 {
		return nil, errors.Wrap(ErrValidation, "telegram id is required")
	}
	member, err := s.members.UpsertFromTelegram(ctx, telegramID, name, username)
	if err != nil {
		return nil, translate(err, "register member")
	}
	return member, nil
}

// EnsureAdmin grants the admin role to a Telegram account, creating the member if needed.
func (s *MemberService) EnsureAdmin(ctx context.Context, telegramID int64) (*model.Member, error) {
	member, err := s.members.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, translate(err, "find admin")
		}
		id := telegramID
		member = &model.Member{
			Name:       fmt.Sprintf("admin-%d", telegramID),
			TelegramID: &id,
			Role:       model.RoleAdmin,
			Active:     true,
		}
		if err := s.members.Create(ctx, member); err != nil {
			return nil, translate(err, "create admin")
		}
		s.log.Info("admin seeded", zap.Uint("member", member.ID), zap.Int64("telegram", telegramID))
		return member, nil
	}
	if member.IsAdmin() && member.Active {
		return member, nil
	}
	member.Role = model.RoleAdmin
	member.Active = true
	if err := s.members.Save(ctx, member); err != nil {
		return nil, translate(err, "promote admin")
	}
	s.log.Info("member promoted to admin", zap.Uint("member", member.ID))
	return member, nil
}

func (s *MemberService) ByTelegram(ctx context.Context, telegramID int64) (*model.Member, error) {
	member, err := s.members.FindByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("telegram user %d", telegramID))
	}
	return member, nil
}

func (s *MemberService) Get(ctx context.Context, id uint) (*model.Member, error) {
	member, err := s.members.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("member %d", id))
	}
	return member, nil
}

func (s *MemberService) List(ctx context.Context) ([]model.Member, error) {
	members, err := s.members.ListAll(ctx)
	if err != nil {
		return nil, translate(err, "list members")
	}
	return members, nil
}

func (s *MemberService) ListActive(ctx context.Context) ([]model.Member, error) {
	members, err := s.members.ListActive(ctx)
	if err != nil {
		return nil, translate(err, "list members")
	}
	return members, nil
}
