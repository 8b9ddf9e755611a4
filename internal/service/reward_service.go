package service

import (
	"context"
	"fmt"
	"html"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"crewdesk/internal/model"
	"crewdesk/internal/notify"
)

// ReviewResult is the outcome of an admin decision on a proof.
type ReviewResult struct {
	Task   *model.Task   `json:"task"`
	Reward *model.Reward `json:"reward,omitempty"`
}

// Balance is a member's accumulated points.
type Balance struct {
	MemberID uint           `json:"memberId"`
	Points   int            `json:"points"`
	Rewards  []model.Reward `json:"rewards"`
}

// RewardService drives proof submission and the approval workflow.
type RewardService struct {
	tasks    TaskStore
	rewards  RewardStore
	members  MemberStore
	notifier notify.Notifier
	clock    Clock
	points   int
	log      *zap.Logger
}

func NewRewardService(tasks TaskStore, rewards RewardStore, members MemberStore, notifier notify.Notifier, clock Clock, points int, log *zap.Logger) *RewardService {
	return &RewardService{
		tasks:    tasks,
		rewards:  rewards,
		members:  members,
		notifier: notifier,
		clock:    clock,
		points:   points,
		log:      log.Named("rewards"),
	}
}

// SubmitProof completes the assignee's pending task. A non-zero memberID must own the task.
func (s *RewardService) SubmitProof(ctx context.Context, taskID, memberID uint, image string) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("task %d", taskID))
	}
	if memberID != 0 && task.MemberID != memberID {
		return nil, errors.Wrapf(ErrForbidden, "task %d belongs to another member", taskID)
	}

	now := s.clock()
	if err := task.SubmitProof(image, now); err != nil {
		return nil, err
	}
	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, translate(err, "save task")
	}

	s.log.Info("proof submitted",
		zap.Uint("task", task.ID),
		zap.Uint("member", task.MemberID),
		zap.Bool("onTime", task.CompletedOnTime != nil && *task.CompletedOnTime))
	s.notifyAdmins(ctx, fmt.Sprintf("📷 Proof submitted for «%s» (task #%d).", html.EscapeString(task.Title), task.ID))
	return task, nil
}

// Approve accepts a proof. On-time tasks get exactly one reward, keyed by task id;
// late ones end up with no reward at all.
func (s *RewardService) Approve(ctx context.Context, taskID uint) (*ReviewResult, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("task %d", taskID))
	}

	now := s.clock()
	rewarded, err := task.Approve(now)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, translate(err, "save task")
	}

	result := &ReviewResult{Task: task}
	if !rewarded {
		if _, err := s.rewards.DeleteByTask(ctx, task.ID); err != nil {
			return result, errors.Wrap(err, "drop reward of late task")
		}
		s.log.Info("proof approved late", zap.Uint("task", task.ID))
		dispatch(ctx, s.notifier, s.log, notify.Member(task.MemberID),
			fmt.Sprintf("⌛ Your proof for «%s» was accepted, but it came after the deadline, so no points this time.", html.EscapeString(task.Title)))
		return result, nil
	}

	taskRef := task.ID
	reward := &model.Reward{
		MemberID:  task.MemberID,
		Amount:    s.points,
		Reason:    task.Title,
		EventName: task.EventName,
		Date:      model.DateOf(now),
		TaskID:    &taskRef,
	}
	if err := s.rewards.UpsertForTask(ctx, reward); err != nil {
		return result, translate(err, "grant reward")
	}
	result.Reward = reward

	s.log.Info("proof approved", zap.Uint("task", task.ID), zap.Uint("reward", reward.ID), zap.Int("points", reward.Amount))
	dispatch(ctx, s.notifier, s.log, notify.Member(task.MemberID),
		fmt.Sprintf("✅ Your proof for «%s» was approved: +%d points.", html.EscapeString(task.Title), reward.Amount))
	return result, nil
}

// Reject declines a proof and revokes any reward already granted for the task.
func (s *RewardService) Reject(ctx context.Context, taskID uint) (*ReviewResult, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("task %d", taskID))
	}

	if err := task.Reject(s.clock()); err != nil {
		return nil, err
	}
	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, translate(err, "save task")
	}
	removed, err := s.rewards.DeleteByTask(ctx, task.ID)
	if err != nil {
		return &ReviewResult{Task: task}, errors.Wrap(err, "revoke reward")
	}

	s.log.Info("proof rejected", zap.Uint("task", task.ID), zap.Int64("revoked", removed))
	dispatch(ctx, s.notifier, s.log, notify.Member(task.MemberID),
		fmt.Sprintf("🚫 Your proof for «%s» was rejected.", html.EscapeString(task.Title)))
	return &ReviewResult{Task: task}, nil
}

// Balance sums a member's rewards.
func (s *RewardService) Balance(ctx context.Context, memberID uint) (*Balance, error) {
	rewards, err := s.rewards.ListByMember(ctx, memberID)
	if err != nil {
		return nil, translate(err, "list rewards")
	}
	points, err := s.rewards.TotalPoints(ctx, memberID)
	if err != nil {
		return nil, translate(err, "sum rewards")
	}
	return &Balance{MemberID: memberID, Points: points, Rewards: rewards}, nil
}

func (s *RewardService) notifyAdmins(ctx context.Context, message string) {
	if s.members == nil {
		return
	}
	members, err := s.members.ListActive(ctx)
	if err != nil {
		s.log.Warn("list admins", zap.Error(err))
		return
	}
	for _, member := range members {
		if member.IsAdmin() {
			dispatch(ctx, s.notifier, s.log, notify.Member(member.ID), message)
		}
	}
}
